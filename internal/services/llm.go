package services

import (
	"strings"

	"github.com/aniketverma/jarvis-portfolio/internal/models"
)

// LLMParameters are the optional sampling knobs a provider forwards when set. Nil fields keep the
// provider default.
type LLMParameters struct {
	Temperature *float32 `yaml:"temperature"`
	TopP        *float32 `yaml:"topP"`
	Stop        []string `yaml:"stop"`
	Seed        *int     `yaml:"seed"`
	MaxTokens   int      `yaml:"maxTokens"`
}

// splitSystem joins every system message into one prompt and returns the remaining conversation.
// Providers that take the system prompt out of band (Anthropic) use it.
func splitSystem(messages []models.ChatMessage) (string, []models.ChatMessage) {
	var (
		system []string
		rest   = make([]models.ChatMessage, 0, len(messages))
	)
	for _, m := range messages {
		if m.Role == models.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}
