package assistant

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/aniketverma/jarvis-portfolio/internal/models"
	"github.com/google/uuid"
)

const errLoggerKey = "err"

const (
	// WelcomeText seeds the transcript the first time the widget opens.
	WelcomeText = "Hello Sir, which resume data do you want?"
	// OfflineText answers a submission made while the uplink is down.
	OfflineText = "Uplink offline, Sir. Please close and reopen the terminal to reconnect."
)

// Transport is the session capability the controller drives. *Session implements it.
type Transport interface {
	Open(ctx context.Context, endpoint string)
	Send(text string) error
	Close()
	State() State
}

// TransportFactory creates a closed transport reporting to handler.
type TransportFactory func(handler Handler) Transport

// Controller owns the widget transcript and its session. All transitions (Open, Close, Submit and
// session events) are serialized; frames are applied in the order the session delivers them.
type Controller struct {
	endpoint     string
	newTransport TransportFactory
	speaker      Speaker
	newID        IDFunc
	onChange     func([]models.Message)
	logger       *slog.Logger

	mu       sync.Mutex
	messages []models.Message
	session  Transport
	// gen identifies the live session. Events tagged with an older generation come from a session
	// that has already been closed and are dropped.
	gen    uint64
	isOpen bool

	// version counts transcript changes so late snapshots never overwrite newer ones.
	version  uint64
	notifyMu sync.Mutex
	notified uint64
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithTransportFactory replaces the default websocket session factory.
func WithTransportFactory(f TransportFactory) ControllerOption {
	return func(c *Controller) {
		c.newTransport = f
	}
}

// WithIDFunc replaces the uuid message id generator.
func WithIDFunc(f IDFunc) ControllerOption {
	return func(c *Controller) {
		c.newID = f
	}
}

// WithOnChange registers a callback receiving a transcript snapshot after every change. It is called
// outside the controller's lock, so it may call back into the controller. Snapshots are delivered in
// change order; one superseded before delivery is skipped.
func WithOnChange(f func([]models.Message)) ControllerOption {
	return func(c *Controller) {
		c.onChange = f
	}
}

// WithControllerLogger sets the logger.
func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController creates a closed widget talking to endpoint. A nil speaker disables speech.
func NewController(endpoint string, speaker Speaker, opts ...ControllerOption) *Controller {
	c := &Controller{
		endpoint: endpoint,
		speaker:  speaker,
		newID:    uuid.NewString,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("module", "widget"))
	if c.newTransport == nil {
		logger := c.logger
		c.newTransport = func(h Handler) Transport {
			return NewSession(h, WithSessionLogger(logger))
		}
	}
	if c.speaker == nil {
		c.speaker = NewSpeech(nil)
	}
	return c
}

// Open shows the widget. The first open greets the visitor; every open makes sure a session exists
// and is connecting. Opening an already open widget creates no second session.
func (c *Controller) Open(ctx context.Context) {
	c.mu.Lock()
	c.isOpen = true

	var (
		greeting *models.Message
		snap     snapshot
	)
	if len(c.messages) == 0 {
		m := models.Message{ID: c.newID(), Text: WelcomeText, Sender: models.SenderAssistant}
		c.messages = append(c.messages, m)
		greeting = &m
		snap = c.changedLocked()
	}

	if c.session == nil {
		c.gen++
		gen := c.gen
		c.session = c.newTransport(func(ev Event) {
			c.handleEvent(gen, ev)
		})
		c.logger.Debug("Session created", slog.Uint64("gen", gen))
	}
	session := c.session
	c.mu.Unlock()

	if greeting != nil {
		c.speaker.Speak(greeting.Text)
		c.notify(snap)
	}
	session.Open(ctx, c.endpoint)
}

// Close hides the widget and tears the session down. The transcript is kept for the next open.
func (c *Controller) Close() {
	c.mu.Lock()
	c.isOpen = false
	session := c.session
	c.session = nil
	c.gen++
	c.mu.Unlock()

	if session != nil {
		session.Close()
	}
}

// Submit appends the user's text and sends it. When the session isn't open, a canned offline answer
// is appended and spoken instead. Blank input is ignored.
func (c *Controller) Submit(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	c.mu.Lock()
	c.messages = append(c.messages, models.Message{ID: c.newID(), Text: text, Sender: models.SenderUser})
	session := c.session
	snap := c.changedLocked()
	c.mu.Unlock()
	c.notify(snap)

	if session != nil && session.State() == StateOpen {
		err := session.Send(text)
		if err == nil {
			return
		}
		if !errors.Is(err, ErrNotOpen) {
			// The session reports the broken connection through its own error frame.
			c.logger.Warn("Failed to send prompt", slog.String(errLoggerKey, err.Error()))
			return
		}
	}

	c.mu.Lock()
	m := models.Message{ID: c.newID(), Text: OfflineText, Sender: models.SenderAssistant}
	c.messages = append(c.messages, m)
	snap = c.changedLocked()
	c.mu.Unlock()

	c.speaker.Speak(m.Text)
	c.notify(snap)
}

// SetMuted mutes or unmutes speech output.
func (c *Controller) SetMuted(muted bool) {
	c.speaker.SetMuted(muted)
}

// Messages returns a snapshot of the transcript.
func (c *Controller) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.messages)
}

// IsOpen reports whether the widget is shown.
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isOpen
}

// SessionState returns the live session's state, or StateClosed without a session.
func (c *Controller) SessionState() State {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		return StateClosed
	}
	return session.State()
}

func (c *Controller) handleEvent(gen uint64, ev Event) {
	c.mu.Lock()
	if gen != c.gen || c.session == nil {
		c.mu.Unlock()
		return
	}

	switch ev.Type {
	case EventOpened:
		c.mu.Unlock()
		c.logger.Debug("Session open")
		return
	case EventClosed:
		c.mu.Unlock()
		c.logger.Debug("Session closed by backend")
		return
	}

	if ev.Frame.Type == models.FrameError {
		c.logger.Warn("Backend error", slog.String(errLoggerKey, ev.Frame.Error))
	}

	var completed *models.Message
	c.messages, completed = Reduce(c.messages, ev.Frame, c.newID)
	snap := c.changedLocked()
	c.mu.Unlock()

	if completed != nil {
		c.speaker.Speak(completed.Text)
	}
	c.notify(snap)
}

type snapshot struct {
	version  uint64
	messages []models.Message
}

// changedLocked records a transcript change and captures it for notify.
func (c *Controller) changedLocked() snapshot {
	c.version++
	return snapshot{version: c.version, messages: slices.Clone(c.messages)}
}

func (c *Controller) notify(s snapshot) {
	if c.onChange == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	if s.version <= c.notified {
		return
	}
	c.notified = s.version
	c.onChange(s.messages)
}
