package assistant_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aniketverma/jarvis-portfolio/internal/assistant"
	"github.com/aniketverma/jarvis-portfolio/internal/models"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

// backend is a scripted chat server: every prompt it receives is answered with reply.
type backend struct {
	srv     *httptest.Server
	prompts chan string
	conns   chan *websocket.Conn
}

func newBackend(t *testing.T, reply func(conn *websocket.Conn, prompt string)) *backend {
	t.Helper()
	b := &backend{
		prompts: make(chan string, 16),
		conns:   make(chan *websocket.Conn, 4),
	}
	upgrader := websocket.Upgrader{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		b.conns <- conn
		defer conn.Close()
		for {
			var p models.Prompt
			if err := conn.ReadJSON(&p); err != nil {
				return
			}
			b.prompts <- p.Message
			if reply != nil {
				reply(conn, p.Message)
			}
		}
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) endpoint() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http")
}

func writeFrames(conn *websocket.Conn, frames ...models.Frame) {
	for _, f := range frames {
		_ = conn.WriteJSON(f)
	}
}

type eventLog struct {
	events chan assistant.Event
}

func newEventLog() *eventLog {
	return &eventLog{events: make(chan assistant.Event, 64)}
}

func (l *eventLog) handle(ev assistant.Event) {
	l.events <- ev
}

func (l *eventLog) next(t *testing.T) assistant.Event {
	t.Helper()
	select {
	case ev := <-l.events:
		return ev
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for session event")
	}
	return assistant.Event{}
}

func (l *eventLog) none(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case ev := <-l.events:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(d):
	}
}

func TestSessionStreamsFramesInOrder(t *testing.T) {
	b := newBackend(t, func(conn *websocket.Conn, _ string) {
		writeFrames(conn,
			models.Frame{Type: models.FrameStart},
			models.Frame{Type: models.FrameChunk, Content: "All systems"},
			models.Frame{Type: models.FrameChunk, Content: " operational."},
			models.Frame{Type: models.FrameEnd},
		)
	})
	log := newEventLog()
	s := assistant.NewSession(log.handle)
	t.Cleanup(s.Close)

	s.Open(context.Background(), b.endpoint())
	require.Equal(t, assistant.EventOpened, log.next(t).Type)
	assert.Equal(t, assistant.StateOpen, s.State())

	require.NoError(t, s.Send("status?"))
	assert.Equal(t, "status?", <-b.prompts)

	want := []models.Frame{
		{Type: models.FrameStart},
		{Type: models.FrameChunk, Content: "All systems"},
		{Type: models.FrameChunk, Content: " operational."},
		{Type: models.FrameEnd},
	}
	for _, w := range want {
		ev := log.next(t)
		require.Equal(t, assistant.EventFrame, ev.Type)
		assert.Equal(t, w, ev.Frame)
	}
}

func TestSessionOpenIsIdempotent(t *testing.T) {
	b := newBackend(t, nil)
	log := newEventLog()
	s := assistant.NewSession(log.handle)
	t.Cleanup(s.Close)

	s.Open(context.Background(), b.endpoint())
	s.Open(context.Background(), b.endpoint())
	require.Equal(t, assistant.EventOpened, log.next(t).Type)
	s.Open(context.Background(), b.endpoint())

	log.none(t, 100*time.Millisecond)
	assert.Len(t, b.conns, 1, "only one connection reaches the backend")
}

func TestSessionSendWhenClosed(t *testing.T) {
	s := assistant.NewSession(nil)
	assert.Equal(t, assistant.StateClosed, s.State())
	assert.ErrorIs(t, s.Send("hello"), assistant.ErrNotOpen)
}

func TestSessionUnreachableEndpoint(t *testing.T) {
	b := newBackend(t, nil)
	endpoint := b.endpoint()
	b.srv.Close()

	log := newEventLog()
	s := assistant.NewSession(log.handle)
	s.Open(context.Background(), endpoint)

	ev := log.next(t)
	require.Equal(t, assistant.EventFrame, ev.Type)
	assert.Equal(t, models.FrameError, ev.Frame.Type)
	assert.NotEmpty(t, ev.Frame.Error)
	assert.Equal(t, assistant.EventClosed, log.next(t).Type)
	assert.Equal(t, assistant.StateClosed, s.State())
	assert.ErrorIs(t, s.Send("hello"), assistant.ErrNotOpen)
}

func TestSessionConnectionDropped(t *testing.T) {
	b := newBackend(t, nil)
	log := newEventLog()
	s := assistant.NewSession(log.handle)
	t.Cleanup(s.Close)

	s.Open(context.Background(), b.endpoint())
	require.Equal(t, assistant.EventOpened, log.next(t).Type)

	// Close the TCP connection without a close handshake.
	(<-b.conns).UnderlyingConn().Close()

	ev := log.next(t)
	require.Equal(t, assistant.EventFrame, ev.Type)
	assert.Equal(t, models.FrameError, ev.Frame.Type)
	assert.Equal(t, assistant.EventClosed, log.next(t).Type)
	assert.Equal(t, assistant.StateClosed, s.State())
}

func TestSessionBackendHangsUp(t *testing.T) {
	b := newBackend(t, nil)
	log := newEventLog()
	s := assistant.NewSession(log.handle)
	t.Cleanup(s.Close)

	s.Open(context.Background(), b.endpoint())
	require.Equal(t, assistant.EventOpened, log.next(t).Type)

	conn := <-b.conns
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	require.NoError(t, conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))

	assert.Equal(t, assistant.EventClosed, log.next(t).Type, "a clean hang-up is not an error")
	assert.Equal(t, assistant.StateClosed, s.State())
}

func TestSessionDropsMalformedFrames(t *testing.T) {
	b := newBackend(t, func(conn *websocket.Conn, _ string) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"tool_call"}`))
		writeFrames(conn, models.Frame{Type: models.FrameMessage, Content: "legacy"})
	})
	log := newEventLog()
	s := assistant.NewSession(log.handle)
	t.Cleanup(s.Close)

	s.Open(context.Background(), b.endpoint())
	require.Equal(t, assistant.EventOpened, log.next(t).Type)
	require.NoError(t, s.Send("hi"))

	ev := log.next(t)
	require.Equal(t, assistant.EventFrame, ev.Type)
	assert.Equal(t, models.Frame{Type: models.FrameMessage, Content: "legacy"}, ev.Frame)
}

func TestSessionCloseSilencesConnection(t *testing.T) {
	release := make(chan struct{})
	b := newBackend(t, func(conn *websocket.Conn, _ string) {
		writeFrames(conn, models.Frame{Type: models.FrameStart})
		<-release
		writeFrames(conn, models.Frame{Type: models.FrameChunk, Content: "late"})
	})
	log := newEventLog()
	s := assistant.NewSession(log.handle)

	s.Open(context.Background(), b.endpoint())
	require.Equal(t, assistant.EventOpened, log.next(t).Type)
	require.NoError(t, s.Send("hi"))
	require.Equal(t, models.FrameStart, log.next(t).Frame.Type)

	s.Close()
	s.Close()
	close(release)

	assert.Equal(t, assistant.StateClosed, s.State())
	log.none(t, 200*time.Millisecond)
	assert.ErrorIs(t, s.Send("again"), assistant.ErrNotOpen)
}

func TestSessionReopensAfterClose(t *testing.T) {
	b := newBackend(t, nil)
	log := newEventLog()
	s := assistant.NewSession(log.handle)
	t.Cleanup(s.Close)

	s.Open(context.Background(), b.endpoint())
	require.Equal(t, assistant.EventOpened, log.next(t).Type)
	s.Close()

	s.Open(context.Background(), b.endpoint())
	require.Equal(t, assistant.EventOpened, log.next(t).Type)
	assert.Equal(t, assistant.StateOpen, s.State())
}
