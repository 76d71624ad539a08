package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// FrameType tags an inbound chat frame.
type FrameType string

const (
	// FrameStart opens a new streamed assistant answer.
	FrameStart FrameType = "start"
	// FrameChunk carries one token (or token group) of the streamed answer in Content.
	FrameChunk FrameType = "chunk"
	// FrameEnd terminates the streamed answer.
	FrameEnd FrameType = "end"
	// FrameError reports a backend failure. The detail is in Error.
	FrameError FrameType = "error"
	// FrameMessage is the legacy non-streaming answer, complete on arrival. It has no "type" on the wire.
	FrameMessage FrameType = "message"
)

// ErrUnknownFrame is returned when a frame carries a type this client doesn't understand.
var ErrUnknownFrame = errors.New("unknown frame type")

// Frame is one discrete unit of data exchanged over the persistent chat connection.
type Frame struct {
	Type FrameType

	// Content would be filled if Type is FrameChunk or FrameMessage.
	Content string
	// Error would be filled if Type is FrameError.
	Error string
}

type wireFrame struct {
	Type    string  `json:"type,omitempty"`
	Content string  `json:"content,omitempty"`
	Error   string  `json:"error,omitempty"`
	Message *string `json:"message,omitempty"`
}

// Prompt is the outbound frame sent once per user submission.
type Prompt struct {
	Message string `json:"message"`
}

// MarshalJSON encodes the frame in its wire shape.
func (f Frame) MarshalJSON() ([]byte, error) {
	switch f.Type {
	case FrameStart, FrameEnd:
		return json.Marshal(wireFrame{Type: string(f.Type)})
	case FrameChunk:
		// Content is always present on chunks, even when empty.
		return json.Marshal(struct {
			Type    string `json:"type"`
			Content string `json:"content"`
		}{Type: string(f.Type), Content: f.Content})
	case FrameError:
		return json.Marshal(struct {
			Type  string `json:"type"`
			Error string `json:"error"`
		}{Type: string(f.Type), Error: f.Error})
	case FrameMessage:
		return json.Marshal(wireFrame{Message: &f.Content})
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFrame, f.Type)
}

// UnmarshalJSON decodes a wire frame. A frame without "type" but with "message" is the legacy
// FrameMessage variant.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	switch FrameType(w.Type) {
	case FrameStart, FrameEnd:
		*f = Frame{Type: FrameType(w.Type)}
	case FrameChunk:
		*f = Frame{Type: FrameChunk, Content: w.Content}
	case FrameError:
		*f = Frame{Type: FrameError, Error: w.Error}
	case "":
		if w.Message == nil {
			return fmt.Errorf("%w: frame has neither type nor message", ErrUnknownFrame)
		}
		*f = Frame{Type: FrameMessage, Content: *w.Message}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFrame, w.Type)
	}
	return nil
}

// DecodeFrame parses a single frame payload.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("failed to decode frame: %w", err)
	}
	return f, nil
}
