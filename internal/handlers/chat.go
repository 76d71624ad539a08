package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aniketverma/jarvis-portfolio/internal/models"
	"github.com/gorilla/websocket"
)

// DefaultSystemPrompt is the assistant persona used when none is configured.
const DefaultSystemPrompt = `You are Jarvis, a highly advanced AI assistant for Aniket Verma.
Your persona is professional, intelligent, and helpful, similar to J.A.R.V.I.S from Iron Man.
You have access to Aniket's live portfolio data.

INSTRUCTIONS:
1. You are engaging in a live chat. Keep responses concise, engaging, and professional.
2. Use the provided portfolio data to answer questions accurately.
3. If a user asks about something not in the data, gently steer them back to Aniket's professional skills and experience.
4. Do not make things up; if you don't know, say you don't have that information.`

// ModelGreeting opens every conversation as the assistant's first turn.
const ModelGreeting = "Hello! I am Jarvis, Aniket's digital assistant. How can I help you learn more about his work today?"

// HandleChatSocket upgrades the request to a websocket and answers every {message} prompt with a
// start, chunk..., end sequence streamed from the LLM. The conversation history lives as long as the
// connection.
func (m Main) HandleChatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the request.
		m.logger.Warn("Failed to upgrade chat socket", slog.String(errLoggerKey, err.Error()))
		return
	}
	m.conns.add(conn)
	defer func() {
		m.conns.remove(conn)
		conn.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := m.logger.With(slog.String("remote", r.RemoteAddr))
	logger.Debug("Chat socket opened", slog.Int("active", m.conns.len()))

	history := m.chatHistory(ctx, logger)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("Chat socket read failed", slog.String(errLoggerKey, err.Error()))
			}
			logger.Debug("Chat socket closed")
			return
		}

		var p models.Prompt
		if err := json.Unmarshal(data, &p); err != nil || strings.TrimSpace(p.Message) == "" {
			logger.Debug("Ignoring prompt", slog.String("data", string(data)))
			continue
		}

		history = append(history, models.ChatMessage{Role: models.RoleUser, Content: p.Message})
		reply, err := m.streamReply(ctx, conn, history, logger)
		if err != nil {
			var llmErr llmError
			if errors.As(err, &llmErr) {
				// The failed turn is dropped so the next prompt starts clean.
				history = history[:len(history)-1]
				continue
			}
			logger.Warn("Failed to write chat frame", slog.String(errLoggerKey, err.Error()))
			return
		}
		history = append(history, models.ChatMessage{Role: models.RoleAssistant, Content: reply})
	}
}

// chatHistory seeds a conversation with the persona, the portfolio data and the model greeting. A
// store failure leaves the data section empty rather than refusing the chat.
func (m Main) chatHistory(ctx context.Context, logger *slog.Logger) []models.ChatMessage {
	var data string
	p, err := m.store.Portfolio(ctx)
	if err == nil {
		data, err = models.PortfolioContext(p)
	}
	if err != nil {
		logger.Error("Failed to build portfolio context", slog.String(errLoggerKey, err.Error()))
	}

	return []models.ChatMessage{
		{Role: models.RoleSystem, Content: m.systemPrompt + "\n\nPORTFOLIO DATA:\n" + data},
		{Role: models.RoleAssistant, Content: ModelGreeting},
	}
}

type llmError struct {
	err error
}

func (e llmError) Error() string { return e.err.Error() }

func (e llmError) Unwrap() error { return e.err }

// streamReply writes one answer to conn. An LLM failure is reported to the client as an error frame in
// place of end, and returned as llmError.
func (m Main) streamReply(
	ctx context.Context,
	conn *websocket.Conn,
	history []models.ChatMessage,
	logger *slog.Logger,
) (string, error) {
	if err := conn.WriteJSON(models.Frame{Type: models.FrameStart}); err != nil {
		return "", err
	}

	var reply strings.Builder
	for chunk, err := range m.llm.Chat(ctx, history) {
		if err != nil {
			logger.Error("Error from llm provider", slog.String(errLoggerKey, err.Error()))
			if werr := conn.WriteJSON(models.Frame{Type: models.FrameError, Error: err.Error()}); werr != nil {
				return "", werr
			}
			return "", llmError{err: err}
		}
		if chunk == "" {
			continue
		}
		reply.WriteString(chunk)
		if err := conn.WriteJSON(models.Frame{Type: models.FrameChunk, Content: chunk}); err != nil {
			return "", err
		}
	}

	if err := conn.WriteJSON(models.Frame{Type: models.FrameEnd}); err != nil {
		return "", err
	}
	logger.Debug("Reply sent", slog.Int("length", reply.Len()))
	return reply.String(), nil
}
