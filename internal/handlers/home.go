package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aniketverma/jarvis-portfolio/internal/models"
	"github.com/aniketverma/jarvis-portfolio/internal/services"
)

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	},
	"join": strings.Join,
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

type page struct {
	Title       string
	Description string
	Personal    *models.PersonalData
}

type homePageData struct {
	page
	Skills       []models.SkillCategory
	Experience   []models.Experience
	Projects     []models.Project
	Achievements []models.Achievement
}

type blogPageData struct {
	page
	Posts      []models.BlogPost
	Categories []models.BlogCategory
	Category   string
	Search     string
}

type postPageData struct {
	page
	Post models.BlogPost
	Body template.HTML
}

func (m Main) newPage(r *http.Request, title string) page {
	pd, err := m.store.PersonalData(r.Context())
	if err != nil {
		m.logger.Warn("Failed to load personal data", slog.String(errLoggerKey, err.Error()))
	}
	p := page{Title: title, Personal: pd}
	if pd != nil {
		p.Description = pd.Tagline
		if title == "" {
			p.Title = fmt.Sprintf("%s | %s", pd.Name, pd.Role)
		}
	}
	if p.Title == "" {
		p.Title = "Portfolio"
	}
	return p
}

func (m Main) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := m.templates.ExecuteTemplate(&buf, name, data); err != nil {
		m.logger.Error("Failed to render template",
			slog.String("template", name),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (m Main) notFound(w http.ResponseWriter, r *http.Request) {
	m.render(w, http.StatusNotFound, "not_found.html", m.newPage(r, "Not Found"))
}

// HandleHome renders the portfolio landing page.
func (m Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	p, err := m.store.Portfolio(r.Context())
	if err != nil {
		m.logger.Error("Failed to load portfolio", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.render(w, http.StatusOK, "home.html", homePageData{
		page:         m.newPage(r, ""),
		Skills:       p.Skills,
		Experience:   p.Experience,
		Projects:     p.Projects,
		Achievements: p.Achievements,
	})
}

// HandleBlog renders the blog index, filtered like the posts endpoint.
func (m Main) HandleBlog(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	search := r.URL.Query().Get("search")

	posts, err := m.filteredPosts(r.Context(), category, search)
	if err != nil {
		m.logger.Error("Failed to load blog posts", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	cats, err := m.store.BlogCategories(r.Context())
	if err != nil {
		m.logger.Error("Failed to load blog categories", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if category == "" {
		category = "All"
	}
	m.render(w, http.StatusOK, "blog.html", blogPageData{
		page:       m.newPage(r, "Blog"),
		Posts:      posts,
		Categories: cats,
		Category:   category,
		Search:     search,
	})
}

// HandlePost renders a single blog post with its markdown body converted to HTML.
func (m Main) HandlePost(w http.ResponseWriter, r *http.Request) {
	post, err := m.store.ViewBlogPost(r.Context(), r.PathValue("slug"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			m.notFound(w, r)
			return
		}
		m.logger.Error("Failed to load blog post", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	m.publishViews(post)

	body, err := m.renderMarkdown(post.Content)
	if err != nil {
		m.logger.Error("Failed to render markdown",
			slog.String("slug", post.Slug),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	pg := m.newPage(r, post.Title)
	if post.MetaDescription != "" {
		pg.Description = post.MetaDescription
	} else if post.Excerpt != "" {
		pg.Description = post.Excerpt
	}
	m.render(w, http.StatusOK, "post.html", postPageData{
		page: pg,
		Post: post,
		Body: body,
	})
}

// renderMarkdown converts a post body to HTML. Raw HTML in the source is omitted.
func (m Main) renderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := m.markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}
