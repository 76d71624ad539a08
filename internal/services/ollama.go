package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"

	"github.com/aniketverma/jarvis-portfolio/internal/models"
	"github.com/ollama/ollama/api"
)

// Ollama streams chat completions from an Ollama server.
type Ollama struct {
	model  string
	params LLMParameters

	client *api.Client
}

// NewOllama creates an Ollama client for the server at host. It panics when host is not a valid URL.
func NewOllama(host, model string, params LLMParameters) Ollama {
	u, err := url.Parse(host)
	if err != nil {
		panic(err)
	}

	return Ollama{
		model:  model,
		params: params,
		client: api.NewClient(u, &http.Client{}),
	}
}

// Chat streams the model's reply to messages token by token. Cancelling ctx ends the sequence without an
// error.
func (o Ollama) Chat(ctx context.Context, messages []models.ChatMessage) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		msgs := make([]api.Message, len(messages))
		for i, msg := range messages {
			msgs[i] = api.Message{
				Role:    string(msg.Role),
				Content: msg.Content,
			}
		}

		t := true
		req := api.ChatRequest{
			Model:    o.model,
			Messages: msgs,
			Stream:   &t,
			Options:  o.options(),
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		stopped := false
		if err := o.client.Chat(ctx, &req, func(res api.ChatResponse) error {
			if stopped || res.Message.Content == "" {
				return nil
			}
			if !yield(res.Message.Content, nil) {
				stopped = true
				cancel()
			}
			return nil
		}); err != nil {
			if stopped || errors.Is(err, context.Canceled) {
				return
			}
			yield("", fmt.Errorf("error sending request: %w", err))
		}
	}
}

func (o Ollama) options() map[string]any {
	opts := map[string]any{}
	if o.params.Temperature != nil {
		opts["temperature"] = *o.params.Temperature
	}
	if o.params.TopP != nil {
		opts["top_p"] = *o.params.TopP
	}
	if o.params.Seed != nil {
		opts["seed"] = *o.params.Seed
	}
	if len(o.params.Stop) > 0 {
		opts["stop"] = o.params.Stop
	}
	if o.params.MaxTokens > 0 {
		opts["num_predict"] = o.params.MaxTokens
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}
