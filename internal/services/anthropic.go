package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"

	"github.com/aniketverma/jarvis-portfolio/internal/models"
	"github.com/tmaxmax/go-sse"
)

// Anthropic streams chat completions from the Anthropic messages API over server-sent events.
type Anthropic struct {
	apiKey   string
	model    string
	endpoint string
	params   LLMParameters

	client *http.Client
}

type anthropicChatRequest struct {
	Model         string             `json:"model"`
	Messages      []anthropicMessage `json:"messages"`
	System        string             `json:"system,omitempty"`
	MaxTokens     int                `json:"max_tokens"`
	Temperature   *float32           `json:"temperature,omitempty"`
	TopP          *float32           `json:"top_p,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
	Stream        bool               `json:"stream"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicStreamResponse struct {
	Type  string `json:"type"`
	Delta struct {
		Text string `json:"text"`
	} `json:"delta"`
}

type anthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

const (
	anthropicAPIEndpoint    = "https://api.anthropic.com/v1"
	anthropicDefaultMaxToks = 1024
)

// NewAnthropic creates an Anthropic client. An empty endpoint targets the public API.
func NewAnthropic(apiKey, endpoint, model string, params LLMParameters) Anthropic {
	if endpoint == "" {
		endpoint = anthropicAPIEndpoint
	}
	if params.MaxTokens <= 0 {
		params.MaxTokens = anthropicDefaultMaxToks
	}
	return Anthropic{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		params:   params,
		client:   &http.Client{},
	}
}

// Chat streams the model's reply to messages token by token. System messages are merged into the
// request's system prompt. Cancelling ctx ends the sequence without an error.
func (a Anthropic) Chat(ctx context.Context, messages []models.ChatMessage) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		system, ms := splitSystem(messages)
		// The messages API requires the conversation to open with a user turn.
		for len(ms) > 0 && ms[0].Role != models.RoleUser {
			ms = ms[1:]
		}

		msgs := make([]anthropicMessage, len(ms))
		for i, msg := range ms {
			msgs[i] = anthropicMessage{
				Role:    string(msg.Role),
				Content: msg.Content,
			}
		}

		reqBody := anthropicChatRequest{
			Model:         a.model,
			Messages:      msgs,
			System:        system,
			MaxTokens:     a.params.MaxTokens,
			Temperature:   a.params.Temperature,
			TopP:          a.params.TopP,
			StopSequences: a.params.Stop,
			Stream:        true,
		}

		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			yield("", fmt.Errorf("error marshaling request: %w", err))
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/messages", bytes.NewBuffer(jsonBody))
		if err != nil {
			yield("", fmt.Errorf("error creating request: %w", err))
			return
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", a.apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, err := a.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			yield("", fmt.Errorf("error sending request: %w", err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			var e anthropicError
			if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
				yield("", fmt.Errorf("anthropic error %s: %s", e.Error.Type, e.Error.Message))
				return
			}
			yield("", fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, body))
			return
		}

		for ev, err := range sse.Read(resp.Body, nil) {
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				yield("", fmt.Errorf("error reading response: %w", err))
				return
			}
			switch ev.Type {
			case "error":
				var e anthropicError
				if err := json.Unmarshal([]byte(ev.Data), &e); err != nil {
					yield("", fmt.Errorf("error unmarshaling error: %w", err))
					return
				}
				yield("", fmt.Errorf("anthropic error %s: %s", e.Error.Type, e.Error.Message))
				return
			case "message_stop":
				return
			case "content_block_delta":
				var res anthropicStreamResponse
				if err := json.Unmarshal([]byte(ev.Data), &res); err != nil {
					yield("", fmt.Errorf("error unmarshaling response: %w", err))
					return
				}
				if res.Delta.Text == "" {
					continue
				}
				if !yield(res.Delta.Text, nil) {
					return
				}
			}
		}
	}
}
