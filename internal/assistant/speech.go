package assistant

import (
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	// SpeechPitch sits slightly under the engine default to keep the assistant's tone steady.
	SpeechPitch = 0.9
	// SpeechRate is the engine's default speaking rate.
	SpeechRate = 1.0
)

// DefaultVoicePreferences are voice name fragments in order of preference.
var DefaultVoicePreferences = []string{"Male", "Google US English", "David"}

// Voice is a synthesis voice offered by an engine.
type Voice struct {
	Name    string
	Lang    string
	// ID is what the engine is told to select the voice by. Empty means Name.
	ID      string
	Default bool
}

// Utterance is a single synthesis request. A nil Voice lets the engine pick.
type Utterance struct {
	Text  string
	Voice *Voice
	Pitch float64
	Rate  float64
}

// Engine is a platform text-to-speech capability.
type Engine interface {
	// Voices lists the voices the engine can use. The list may be empty.
	Voices() []Voice
	// Speak starts synthesizing u and returns without waiting for playback to finish.
	Speak(u Utterance) error
	// Cancel stops any utterance in progress.
	Cancel()
}

// Speaker is the speech capability the widget controller depends on.
type Speaker interface {
	Speak(text string)
	SetMuted(muted bool)
}

// Speech adapts an Engine to the widget: at most one utterance plays at a time and newer speech
// preempts older. A nil engine makes every call a no-op.
type Speech struct {
	engine      Engine
	preferences []string
	logger      *slog.Logger

	mu    sync.Mutex
	muted bool
}

// SpeechOption configures a Speech adapter.
type SpeechOption func(*Speech)

// WithVoicePreferences replaces DefaultVoicePreferences.
func WithVoicePreferences(prefs ...string) SpeechOption {
	return func(s *Speech) {
		s.preferences = prefs
	}
}

// WithSpeechLogger sets the logger used for engine failures.
func WithSpeechLogger(logger *slog.Logger) SpeechOption {
	return func(s *Speech) {
		s.logger = logger
	}
}

// WithMuted sets the initial mute state.
func WithMuted(muted bool) SpeechOption {
	return func(s *Speech) {
		s.muted = muted
	}
}

// NewSpeech creates a speech adapter over engine.
func NewSpeech(engine Engine, opts ...SpeechOption) *Speech {
	s := &Speech{
		engine:      engine,
		preferences: DefaultVoicePreferences,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("module", "speech"))
	return s
}

// Speak cancels whatever is playing and speaks text with markup stripped. It does nothing while muted.
func (s *Speech) Speak(txt string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.muted || s.engine == nil {
		return
	}
	s.engine.Cancel()

	plain := PlainText(txt)
	if plain == "" {
		return
	}

	err := s.engine.Speak(Utterance{
		Text:  plain,
		Voice: SelectVoice(s.engine.Voices(), s.preferences),
		Pitch: SpeechPitch,
		Rate:  SpeechRate,
	})
	if err != nil {
		s.logger.Debug("Speech engine failed", slog.String(errLoggerKey, err.Error()))
	}
}

// SetMuted toggles global muting. Muting stops the utterance in progress.
func (s *Speech) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if muted && !s.muted && s.engine != nil {
		s.engine.Cancel()
	}
	s.muted = muted
}

// Muted reports the mute state.
func (s *Speech) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// SelectVoice picks the first voice whose name contains the earliest matching preference. Without a
// match it falls back to the engine's default voice, and returns nil when there is none.
func SelectVoice(voices []Voice, preferences []string) *Voice {
	for _, pref := range preferences {
		for i := range voices {
			if strings.Contains(voices[i].Name, pref) {
				v := voices[i]
				return &v
			}
		}
	}
	for i := range voices {
		if voices[i].Default {
			v := voices[i]
			return &v
		}
	}
	return nil
}

var markupReplacer = strings.NewReplacer("*", "", "_", "", "#", "", "`", "", "~", "", ">", "")

// PlainText reduces lightweight markdown to the words a listener should hear.
func PlainText(src string) string {
	source := []byte(src)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Kind() == ast.KindParagraph || n.Kind() == ast.KindHeading || n.Kind() == ast.KindListItem {
				sb.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(source))
				sb.WriteByte(' ')
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return strings.Join(strings.Fields(markupReplacer.Replace(sb.String())), " ")
}
