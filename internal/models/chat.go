package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role represents the role of a chat history participant as understood by the LLM providers.
type Role string

const (
	// RoleSystem carries the persona and the portfolio context.
	RoleSystem Role = "system"
	// RoleUser represents a visitor's question.
	RoleUser Role = "user"
	// RoleAssistant represents a reply produced by the model.
	RoleAssistant Role = "assistant"
)

// ChatMessage is an entry of the per-connection conversation history kept by the chat backend.
type ChatMessage struct {
	Role    Role
	Content string
}

// PortfolioContext renders the portfolio records into the plain-text context block embedded in the
// assistant's system prompt. Each section is a single JSON line so the model sees structured data.
func PortfolioContext(p Portfolio) (string, error) {
	personal := map[string]any{}
	if p.Personal != nil {
		personal = map[string]any{
			"name":    p.Personal.Name,
			"role":    p.Personal.Role,
			"about":   p.Personal.About.Description,
			"mission": p.Personal.Mission,
			"values":  p.Personal.About.Values,
			"contact": map[string]string{
				"email":    p.Personal.Contact.Email,
				"linkedin": p.Personal.Contact.LinkedIn,
				"github":   p.Personal.Contact.GitHub,
			},
		}
	}

	sections := []struct {
		label string
		value any
	}{
		{"Personal Info", personal},
		{"Skills", nonNil(p.Skills)},
		{"Experience", nonNil(p.Experience)},
		{"Projects", nonNil(p.Projects)},
		{"Achievements", nonNil(p.Achievements)},
	}

	var sb strings.Builder
	for i, s := range sections {
		v, err := json.Marshal(s.value)
		if err != nil {
			return "", fmt.Errorf("failed to marshal %s: %w", s.label, err)
		}
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%s: %s", s.label, v))
	}
	return sb.String(), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
