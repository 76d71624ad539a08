// Package assistant implements the floating assistant widget: the streaming message reducer, the
// websocket transport session, the speech output adapter and the controller tying them together.
package assistant

import (
	"slices"

	"github.com/aniketverma/jarvis-portfolio/internal/models"
)

// ErrorFallbackText replaces the answer whenever the backend reports an error or can't be reached.
const ErrorFallbackText = "Apologies Sir, I am unable to connect to the mainframe at the moment."

// IDFunc generates message identifiers unique within a transcript.
type IDFunc func() string

// Reduce applies one inbound frame to the transcript and returns the new transcript. The input slice
// is never modified.
//
// The second return value is the assistant message completed by this frame, if any: the finalized
// streamed answer on end, the fallback message on error, or the legacy message. Messages finalized as
// a side effect (an unterminated stream cut by error or a new start) are never reported, since their
// text is partial.
//
// A chunk only extends the last message, and only while it is a streaming assistant message; an end
// finalizes the streaming message wherever it sits. Frames failing those preconditions leave the
// transcript untouched.
func Reduce(msgs []models.Message, f models.Frame, newID IDFunc) ([]models.Message, *models.Message) {
	switch f.Type {
	case models.FrameStart:
		out := finalizeStreaming(msgs)
		return append(out, models.Message{
			ID:        newID(),
			Sender:    models.SenderAssistant,
			Streaming: true,
		}), nil

	case models.FrameChunk:
		last := len(msgs) - 1
		if last < 0 || msgs[last].Sender != models.SenderAssistant || !msgs[last].Streaming {
			return msgs, nil
		}
		out := slices.Clone(msgs)
		out[last].Text += f.Content
		return out, nil

	case models.FrameEnd:
		idx := streamingIndex(msgs)
		if idx < 0 {
			return msgs, nil
		}
		out := slices.Clone(msgs)
		out[idx].Streaming = false
		done := out[idx]
		return out, &done

	case models.FrameError:
		return appendTerminal(finalizeStreaming(msgs), ErrorFallbackText, newID)

	case models.FrameMessage:
		return appendTerminal(slices.Clone(msgs), f.Content, newID)
	}
	return msgs, nil
}

// streamingIndex returns the index of the in-flight assistant message, or -1.
func streamingIndex(msgs []models.Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Streaming && msgs[i].Sender == models.SenderAssistant {
			return i
		}
	}
	return -1
}

// finalizeStreaming returns a copy of msgs with any streaming message marked terminal.
func finalizeStreaming(msgs []models.Message) []models.Message {
	out := slices.Clone(msgs)
	for i := range out {
		out[i].Streaming = false
	}
	return out
}

func appendTerminal(out []models.Message, text string, newID IDFunc) ([]models.Message, *models.Message) {
	m := models.Message{
		ID:     newID(),
		Text:   text,
		Sender: models.SenderAssistant,
	}
	return append(out, m), &m
}
