package handlers

import (
	"context"
	"fmt"
	"html/template"
	"iter"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	jarvis "github.com/aniketverma/jarvis-portfolio"
	"github.com/aniketverma/jarvis-portfolio/internal/models"
	"github.com/gorilla/websocket"
	"github.com/tmaxmax/go-sse"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/extension"
)

// LLM represents a large language model that streams a reply to a conversation. The iterator yields
// response chunks and stops after the first error.
type LLM interface {
	Chat(ctx context.Context, messages []models.ChatMessage) iter.Seq2[string, error]
}

// Store is the read side of the portfolio content plus the contact-form inbox.
type Store interface {
	Portfolio(ctx context.Context) (models.Portfolio, error)
	PersonalData(ctx context.Context) (*models.PersonalData, error)
	Skills(ctx context.Context) ([]models.SkillCategory, error)
	Experience(ctx context.Context) ([]models.Experience, error)
	Projects(ctx context.Context) ([]models.Project, error)
	Achievements(ctx context.Context) ([]models.Achievement, error)

	BlogPosts(ctx context.Context) ([]models.BlogPost, error)
	ViewBlogPost(ctx context.Context, slug string) (models.BlogPost, error)
	BlogCategories(ctx context.Context) ([]models.BlogCategory, error)

	AddServiceQuery(ctx context.Context, q models.ServiceQuery) (string, error)
}

// Main serves the portfolio pages, the JSON content API, the live view counter stream and the
// assistant's chat socket.
type Main struct {
	sseSrv    *sse.Server
	templates *template.Template
	markdown  goldmark.Markdown
	upgrader  websocket.Upgrader

	llm          LLM
	store        Store
	systemPrompt string

	conns *connRegistry

	logger *slog.Logger
}

// Option customizes Main.
type Option func(*Main)

const (
	errLoggerKey = "err"

	viewsSSEType = "views"
)

// WithSystemPrompt replaces the assistant persona placed ahead of the portfolio data.
func WithSystemPrompt(prompt string) Option {
	return func(m *Main) {
		if prompt != "" {
			m.systemPrompt = prompt
		}
	}
}

// WithAllowedOrigins restricts which browser origins may open the chat socket. "*" allows any origin.
// Without it only same-host origins are accepted.
func WithAllowedOrigins(origins []string) Option {
	return func(m *Main) {
		if len(origins) == 0 {
			return
		}
		m.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(origins, "*") || slices.Contains(origins, origin)
		}
	}
}

// NewMain creates a Main serving content from store and chat replies from llm. It parses the page
// templates from the embedded filesystem.
func NewMain(llm LLM, store Store, logger *slog.Logger, opts ...Option) (Main, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(
		jarvis.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return Main{}, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	m := Main{
		sseSrv: &sse.Server{
			OnSession: func(s *sse.Session) (sse.Subscription, bool) {
				topics := []string{sse.DefaultTopic}

				// Post pages subscribe to their own view counter.
				if slug := s.Req.URL.Query().Get("slug"); slug != "" {
					topics = append(topics, postTopic(slug))
				}

				return sse.Subscription{
					Client:      s,
					LastEventID: s.LastEventID,
					Topics:      topics,
				}, true
			},
		},
		templates: tmpl,
		markdown: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				highlighting.NewHighlighting(highlighting.WithStyle("monokai")),
			),
		),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		llm:          llm,
		store:        store,
		systemPrompt: DefaultSystemPrompt,
		conns:        &connRegistry{conns: map[*websocket.Conn]struct{}{}},
		logger:       logger.With(slog.String("module", "handlers")),
	}
	for _, opt := range opts {
		opt(&m)
	}

	return m, nil
}

func postTopic(slug string) string {
	return fmt.Sprintf("post-%s", slug)
}

// HandleEvents streams server-sent events, currently the live view count of the post named by the
// "slug" query parameter.
func (m Main) HandleEvents(w http.ResponseWriter, r *http.Request) {
	m.sseSrv.ServeHTTP(w, r)
}

func (m Main) publishViews(post models.BlogPost) {
	msg := sse.Message{Type: sse.Type(viewsSSEType)}
	msg.AppendData(fmt.Sprintf("%d", post.Views))
	if err := m.sseSrv.Publish(&msg, postTopic(post.Slug)); err != nil {
		m.logger.Warn("Failed to publish views",
			slog.String("slug", post.Slug),
			slog.String(errLoggerKey, err.Error()))
	}
}

// Shutdown says goodbye to every live chat socket and event stream. Event streams get up to 5 seconds
// to drain before they are forcefully closed.
func (m Main) Shutdown(ctx context.Context) error {
	m.conns.closeAll()

	e := &sse.Message{Type: sse.Type("close")}
	// SSE requires data on every event.
	e.AppendData("bye")
	_ = m.sseSrv.Publish(e)

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	return m.sseSrv.Shutdown(ctx)
}

// connRegistry tracks live chat sockets so they can be closed on shutdown.
type connRegistry struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func (c *connRegistry) add(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conns[conn] = struct{}{}
}

func (c *connRegistry) remove(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conns, conn)
}

func (c *connRegistry) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.conns)
}

func (c *connRegistry) closeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	deadline := time.Now().Add(time.Second)
	for conn := range c.conns {
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = conn.Close()
		delete(c.conns, conn)
	}
}
