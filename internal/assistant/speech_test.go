package assistant_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/aniketverma/jarvis-portfolio/internal/assistant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingEngine plays nothing. It records utterances and tracks whether one is "playing".
type recordingEngine struct {
	mu         sync.Mutex
	voices     []assistant.Voice
	utterances []assistant.Utterance
	cancels    int
	playing    bool
	err        error
}

func (e *recordingEngine) Voices() []assistant.Voice { return e.voices }

func (e *recordingEngine) Speak(u assistant.Utterance) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.utterances = append(e.utterances, u)
	e.playing = true
	return nil
}

func (e *recordingEngine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancels++
	e.playing = false
}

func TestSpeechSpeak(t *testing.T) {
	engine := &recordingEngine{voices: []assistant.Voice{
		{Name: "Samantha"},
		{Name: "Microsoft David Desktop"},
		{Name: "Daniel Male"},
	}}
	speech := assistant.NewSpeech(engine)

	speech.Speak("**Hello** _Sir_.")

	require.Len(t, engine.utterances, 1)
	u := engine.utterances[0]
	assert.Equal(t, "Hello Sir.", u.Text)
	require.NotNil(t, u.Voice)
	assert.Equal(t, "Daniel Male", u.Voice.Name)
	assert.Equal(t, assistant.SpeechPitch, u.Pitch)
	assert.Equal(t, assistant.SpeechRate, u.Rate)
	assert.True(t, engine.playing)
}

func TestSpeechNewerPreemptsOlder(t *testing.T) {
	engine := &recordingEngine{}
	speech := assistant.NewSpeech(engine)

	speech.Speak("first")
	speech.Speak("second")

	require.Len(t, engine.utterances, 2)
	assert.Equal(t, 2, engine.cancels, "every speak cancels what came before")
	assert.Equal(t, "second", engine.utterances[1].Text)
}

func TestSpeechMute(t *testing.T) {
	engine := &recordingEngine{}
	speech := assistant.NewSpeech(engine)

	speech.Speak("talking")
	require.True(t, engine.playing)

	speech.SetMuted(true)
	assert.False(t, engine.playing, "muting stops the utterance in progress")
	assert.True(t, speech.Muted())

	speech.Speak("ignored")
	assert.Len(t, engine.utterances, 1)
	assert.False(t, engine.playing)

	speech.SetMuted(false)
	assert.False(t, engine.playing, "unmuting does not resume audio")

	speech.Speak("back")
	assert.Len(t, engine.utterances, 2)
	assert.True(t, engine.playing)
}

func TestSpeechWithoutEngine(t *testing.T) {
	speech := assistant.NewSpeech(nil)
	assert.NotPanics(t, func() {
		speech.Speak("hello")
		speech.SetMuted(true)
		speech.SetMuted(false)
	})
}

func TestSpeechEngineErrorIsSwallowed(t *testing.T) {
	engine := &recordingEngine{err: errors.New("no audio device")}
	speech := assistant.NewSpeech(engine)
	assert.NotPanics(t, func() { speech.Speak("hello") })
}

func TestSpeechSkipsEmptyText(t *testing.T) {
	engine := &recordingEngine{}
	speech := assistant.NewSpeech(engine)

	speech.Speak("**  **")
	assert.Empty(t, engine.utterances)
}

func TestSelectVoice(t *testing.T) {
	tests := []struct {
		name   string
		voices []assistant.Voice
		want   string
	}{
		{
			name: "male voice wins over fallbacks",
			voices: []assistant.Voice{
				{Name: "Google US English"},
				{Name: "Microsoft David"},
				{Name: "English_(America) Male"},
			},
			want: "English_(America) Male",
		},
		{
			name: "first fallback in preference order",
			voices: []assistant.Voice{
				{Name: "Microsoft David"},
				{Name: "Google US English"},
			},
			want: "Google US English",
		},
		{
			name: "last fallback",
			voices: []assistant.Voice{
				{Name: "Alice"},
				{Name: "Microsoft David"},
			},
			want: "Microsoft David",
		},
		{
			name: "engine default",
			voices: []assistant.Voice{
				{Name: "Alice"},
				{Name: "Bob", Default: true},
			},
			want: "Bob",
		},
		{
			name:   "nothing to pick",
			voices: []assistant.Voice{{Name: "Alice"}},
		},
		{
			name: "empty catalog",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := assistant.SelectVoice(tt.voices, assistant.DefaultVoicePreferences)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"All systems operational.", "All systems operational."},
		{"**Bold** and *italic* and `code`", "Bold and italic and code"},
		{"# Skills\n\n- Go\n- Python", "Skills Go Python"},
		{"See [GitHub](https://github.com/aniket) now", "See GitHub now"},
		{"line one\nline two", "line one line two"},
		{"> quoted ~~text~~", "quoted text"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, assistant.PlainText(tt.in))
		})
	}
}
