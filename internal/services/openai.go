package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/aniketverma/jarvis-portfolio/internal/models"
	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAI streams chat completions from OpenAI or any endpoint speaking its API, such as OpenRouter.
type OpenAI struct {
	model  string
	params LLMParameters

	client *goopenai.Client

	logger *slog.Logger
}

// NewOpenAI creates an OpenAI client. An empty baseURL targets api.openai.com.
func NewOpenAI(apiKey, baseURL, model string, params LLMParameters, logger *slog.Logger) OpenAI {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return OpenAI{
		model:  model,
		params: params,
		client: goopenai.NewClientWithConfig(cfg),
		logger: logger.With(slog.String("module", "openai")),
	}
}

// Chat streams the model's reply to messages token by token. Cancelling ctx ends the sequence without an
// error.
func (o OpenAI) Chat(ctx context.Context, messages []models.ChatMessage) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		msgs := make([]goopenai.ChatCompletionMessage, len(messages))
		for i, msg := range messages {
			msgs[i] = goopenai.ChatCompletionMessage{
				Role:    string(msg.Role),
				Content: msg.Content,
			}
		}

		req := o.chatRequest(msgs)

		reqJSON, err := json.Marshal(req)
		if err == nil {
			o.logger.Debug("Request", slog.String("req", string(reqJSON)))
		}

		stream, err := o.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			yield("", fmt.Errorf("error sending request: %w", err))
			return
		}
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
					return
				}
				yield("", fmt.Errorf("error receiving response: %w", err))
				return
			}

			if len(response.Choices) == 0 {
				continue
			}
			if text := response.Choices[0].Delta.Content; text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	}
}

func (o OpenAI) chatRequest(messages []goopenai.ChatCompletionMessage) goopenai.ChatCompletionRequest {
	req := goopenai.ChatCompletionRequest{
		Model:     o.model,
		Messages:  messages,
		Stream:    true,
		MaxTokens: o.params.MaxTokens,
		Stop:      o.params.Stop,
		Seed:      o.params.Seed,
	}

	if o.params.Temperature != nil {
		req.Temperature = *o.params.Temperature
	}
	if o.params.TopP != nil {
		req.TopP = *o.params.TopP
	}

	return req
}
