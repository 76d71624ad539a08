package assistant_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aniketverma/jarvis-portfolio/internal/assistant"
	"github.com/aniketverma/jarvis-portfolio/internal/models"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport lets a test drive session events by hand.
type fakeTransport struct {
	mu      sync.Mutex
	handler assistant.Handler
	state   assistant.State
	opens   int
	closes  int
	sent    []string
}

func (f *fakeTransport) Open(context.Context, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if f.state == assistant.StateClosed {
		f.state = assistant.StateConnecting
	}
}

func (f *fakeTransport) Send(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != assistant.StateOpen {
		return assistant.ErrNotOpen
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeTransport) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	f.state = assistant.StateClosed
}

func (f *fakeTransport) State() assistant.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeTransport) accept() {
	f.mu.Lock()
	f.state = assistant.StateOpen
	f.mu.Unlock()
	f.handler(assistant.Event{Type: assistant.EventOpened})
}

func (f *fakeTransport) frames(frames ...models.Frame) {
	for _, fr := range frames {
		f.handler(assistant.Event{Type: assistant.EventFrame, Frame: fr})
	}
}

type transports struct {
	created []*fakeTransport
}

func (ts *transports) factory(h assistant.Handler) assistant.Transport {
	ft := &fakeTransport{handler: h}
	ts.created = append(ts.created, ft)
	return ft
}

func (ts *transports) last() *fakeTransport {
	return ts.created[len(ts.created)-1]
}

// recordingSpeaker stands in for Speech and records what would have been said.
type recordingSpeaker struct {
	mu     sync.Mutex
	spoken []string
	muted  bool
}

func (r *recordingSpeaker) Speak(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.muted {
		r.spoken = append(r.spoken, text)
	}
}

func (r *recordingSpeaker) SetMuted(muted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.muted = muted
}

func (r *recordingSpeaker) said() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.spoken...)
}

func newTestController(opts ...assistant.ControllerOption) (*assistant.Controller, *transports, *recordingSpeaker) {
	ts := &transports{}
	sp := &recordingSpeaker{}
	opts = append([]assistant.ControllerOption{
		assistant.WithTransportFactory(ts.factory),
		assistant.WithIDFunc(seqIDs()),
	}, opts...)
	return assistant.NewController("ws://jarvis.test/ws/chat/", sp, opts...), ts, sp
}

func TestControllerFirstOpenGreets(t *testing.T) {
	c, ts, sp := newTestController()

	c.Open(context.Background())

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, assistant.WelcomeText, msgs[0].Text)
	assert.Equal(t, models.SenderAssistant, msgs[0].Sender)
	assert.Equal(t, []string{assistant.WelcomeText}, sp.said())
	require.Len(t, ts.created, 1)
	assert.Equal(t, 1, ts.last().opens)
	assert.True(t, c.IsOpen())

	c.Close()
	c.Open(context.Background())
	assert.Len(t, c.Messages(), 1, "history survives a reopen without a second greeting")
	assert.Equal(t, []string{assistant.WelcomeText}, sp.said())
}

func TestControllerOpenTwiceCreatesOneSession(t *testing.T) {
	c, ts, _ := newTestController()

	c.Open(context.Background())
	c.Open(context.Background())

	require.Len(t, ts.created, 1)
	assert.Equal(t, assistant.StateConnecting, ts.last().State())
}

func TestControllerStreamedAnswer(t *testing.T) {
	c, ts, sp := newTestController()
	c.Open(context.Background())
	ts.last().accept()

	c.Submit("status?")
	assert.Equal(t, []string{"status?"}, ts.last().sent)

	ts.last().frames(
		models.Frame{Type: models.FrameStart},
		models.Frame{Type: models.FrameChunk, Content: "All systems"},
	)
	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.True(t, msgs[2].Streaming)
	assert.Equal(t, []string{assistant.WelcomeText}, sp.said(), "nothing is spoken mid-stream")

	ts.last().frames(
		models.Frame{Type: models.FrameChunk, Content: " operational."},
		models.Frame{Type: models.FrameEnd},
	)

	msgs = c.Messages()[1:]
	require.Len(t, msgs, 2)
	assert.Equal(t, models.Message{ID: "m2", Text: "status?", Sender: models.SenderUser}, msgs[0])
	assert.Equal(t, "All systems operational.", msgs[1].Text)
	assert.Equal(t, models.SenderAssistant, msgs[1].Sender)
	assert.False(t, msgs[1].Streaming)
	assert.Equal(t, []string{assistant.WelcomeText, "All systems operational."}, sp.said())

	// A stray end after completion must not speak the answer again.
	ts.last().frames(models.Frame{Type: models.FrameEnd})
	assert.Len(t, sp.said(), 2)
}

func TestControllerSubmitWhileClosed(t *testing.T) {
	c, ts, sp := newTestController()
	c.Open(context.Background())
	// connecting, not yet open

	c.Submit("hello?")

	assert.Empty(t, ts.last().sent)
	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, models.SenderUser, msgs[1].Sender)
	assert.Equal(t, assistant.OfflineText, msgs[2].Text)
	assert.Equal(t, models.SenderAssistant, msgs[2].Sender)
	assert.Equal(t, []string{assistant.WelcomeText, assistant.OfflineText}, sp.said())
}

func TestControllerSubmitWithoutSession(t *testing.T) {
	c, ts, sp := newTestController()

	c.Submit("anyone?")

	assert.Empty(t, ts.created)
	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, assistant.OfflineText, msgs[1].Text)
	assert.Equal(t, []string{assistant.OfflineText}, sp.said())
}

func TestControllerIgnoresBlankSubmit(t *testing.T) {
	c, _, _ := newTestController()
	c.Submit("   ")
	assert.Empty(t, c.Messages())
}

func TestControllerCloseDiscardsLateFrames(t *testing.T) {
	c, ts, sp := newTestController()
	c.Open(context.Background())
	first := ts.last()
	first.accept()
	c.Submit("tell me")
	first.frames(models.Frame{Type: models.FrameStart}, models.Frame{Type: models.FrameChunk, Content: "partial"})

	c.Close()
	assert.Equal(t, 1, first.closes)
	before := c.Messages()

	first.frames(models.Frame{Type: models.FrameChunk, Content: " late"}, models.Frame{Type: models.FrameEnd})
	assert.Equal(t, before, c.Messages())
	assert.Equal(t, []string{assistant.WelcomeText}, sp.said())

	c.Open(context.Background())
	require.Len(t, ts.created, 2, "reopening starts a fresh session")
	assert.NotSame(t, first, ts.last())
}

func TestControllerConnectionFailure(t *testing.T) {
	c, ts, sp := newTestController()
	c.Open(context.Background())

	ts.last().frames(models.Frame{Type: models.FrameError, Error: "dial tcp: connection refused"})
	ts.last().handler(assistant.Event{Type: assistant.EventClosed})

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, assistant.ErrorFallbackText, msgs[1].Text)
	assert.Equal(t, []string{assistant.WelcomeText, assistant.ErrorFallbackText}, sp.said())
}

func TestControllerMute(t *testing.T) {
	c, _, sp := newTestController()
	c.SetMuted(true)
	c.Open(context.Background())
	assert.Empty(t, sp.said())
}

func TestControllerOnChangeSnapshots(t *testing.T) {
	var mu sync.Mutex
	var seen [][]models.Message
	c, ts, _ := newTestController(assistant.WithOnChange(func(msgs []models.Message) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, msgs)
	}))

	c.Open(context.Background())
	ts.last().accept()
	c.Submit("hi")
	ts.last().frames(models.Frame{Type: models.FrameStart}, models.Frame{Type: models.FrameChunk, Content: "yo"})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 4)
	assert.Len(t, seen[0], 1)
	assert.Len(t, seen[1], 2)
	assert.Equal(t, "", seen[2][2].Text)
	assert.Equal(t, "yo", seen[3][2].Text)
}

func TestControllerOverWebsocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var p models.Prompt
			if err := conn.ReadJSON(&p); err != nil {
				return
			}
			writeFrames(conn,
				models.Frame{Type: models.FrameStart},
				models.Frame{Type: models.FrameChunk, Content: "Echo: "},
				models.Frame{Type: models.FrameChunk, Content: p.Message},
				models.Frame{Type: models.FrameEnd},
			)
		}
	}))
	t.Cleanup(srv.Close)

	sp := &recordingSpeaker{}
	c := assistant.NewController("ws"+strings.TrimPrefix(srv.URL, "http"), sp)
	t.Cleanup(c.Close)

	c.Open(context.Background())
	require.Eventually(t, func() bool {
		return c.SessionState() == assistant.StateOpen
	}, waitTimeout, 10*time.Millisecond)

	c.Submit("ping")
	require.Eventually(t, func() bool {
		return len(sp.said()) == 2
	}, waitTimeout, 10*time.Millisecond)

	assert.Equal(t, "Echo: ping", sp.said()[1])
	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.False(t, msgs[2].Streaming)
}
