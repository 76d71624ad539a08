package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aniketverma/jarvis-portfolio/internal/models"
	"github.com/gorilla/websocket"
)

// State is the lifecycle state of a transport session.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// EventType tags a session event.
type EventType int

const (
	// EventOpened is emitted once the backend accepts the connection.
	EventOpened EventType = iota
	// EventFrame carries one inbound frame.
	EventFrame
	// EventClosed is emitted when the connection is lost or refused. It is not emitted for Close.
	EventClosed
)

// Event is an observation surfaced by a session.
type Event struct {
	Type  EventType
	Frame models.Frame
}

// Handler receives session events. Events of one connection are delivered sequentially, in arrival
// order, from a single goroutine.
type Handler func(Event)

// ErrNotOpen is returned by Send when the session isn't open. Callers are expected to check State
// before sending and surface an offline notice themselves.
var ErrNotOpen = errors.New("session is not open")

const closeWriteTimeout = time.Second

// Session owns a single websocket connection to the chat backend.
//
// Failures never cross Open: an unreachable endpoint or a connection dropped mid-stream is reported as
// one synthetic error frame followed by EventClosed. There is no automatic reconnect.
type Session struct {
	dialer  *websocket.Dialer
	handler Handler
	logger  *slog.Logger

	mu    sync.Mutex
	state State
	conn  *websocket.Conn
	// gen increments on every Close so goroutines of a torn-down connection can tell they are stale.
	gen    uint64
	cancel context.CancelFunc
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithDialer overrides the websocket dialer.
func WithDialer(d *websocket.Dialer) SessionOption {
	return func(s *Session) {
		s.dialer = d
	}
}

// WithSessionLogger sets the logger used for dropped frames and connection failures.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a closed session that reports events to handler.
func NewSession(handler Handler, opts ...SessionOption) *Session {
	s := &Session{
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		handler: handler,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("module", "session"))
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open starts connecting to endpoint in the background. It is a no-op unless the session is closed.
func (s *Session) Open(ctx context.Context, endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateClosed {
		return
	}
	s.state = StateConnecting

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.connect(ctx, endpoint, s.gen)
}

func (s *Session) connect(ctx context.Context, endpoint string, gen uint64) {
	conn, resp, err := s.dialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		s.state = StateClosed
		s.mu.Unlock()

		s.logger.Warn("Failed to connect", slog.String("endpoint", endpoint), slog.String(errLoggerKey, err.Error()))
		s.emit(Event{Type: EventFrame, Frame: models.Frame{Type: models.FrameError, Error: err.Error()}})
		s.emit(Event{Type: EventClosed})
		return
	}
	s.state = StateOpen
	s.conn = conn
	s.mu.Unlock()

	s.logger.Debug("Connected", slog.String("endpoint", endpoint))
	s.emit(Event{Type: EventOpened})
	s.readLoop(conn, gen)
}

func (s *Session) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			stale := s.gen != gen
			if !stale {
				s.state = StateClosed
				s.conn = nil
				s.cancel()
			}
			s.mu.Unlock()
			conn.Close()

			if stale {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("Backend closed the connection")
			} else {
				s.logger.Warn("Connection lost", slog.String(errLoggerKey, err.Error()))
				s.emit(Event{Type: EventFrame, Frame: models.Frame{Type: models.FrameError, Error: err.Error()}})
			}
			s.emit(Event{Type: EventClosed})
			return
		}

		frame, err := models.DecodeFrame(data)
		if err != nil {
			s.logger.Warn("Dropping frame", slog.String("frame", string(data)), slog.String(errLoggerKey, err.Error()))
			continue
		}

		if !s.current(gen) {
			return
		}
		s.emit(Event{Type: EventFrame, Frame: frame})
	}
}

// Send writes one user prompt. It returns ErrNotOpen unless the session is open. A failed write tears
// the connection down, which the read loop then reports as an error frame.
func (s *Session) Send(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen || s.conn == nil {
		return ErrNotOpen
	}
	if err := s.conn.WriteJSON(models.Prompt{Message: text}); err != nil {
		s.conn.Close()
		return fmt.Errorf("failed to send prompt: %w", err)
	}
	return nil
}

// Close releases the connection. It is safe to call on a closed session. Frames still in flight on
// the released connection are never delivered.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.gen++
	s.state = StateClosed
	if s.cancel != nil {
		s.cancel()
	}
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
	conn.Close()
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

func (s *Session) emit(ev Event) {
	if s.handler != nil {
		s.handler(ev)
	}
}
