package models

// Sender identifies who authored a widget message. It never changes after the message is created.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one bubble in the assistant widget transcript.
//
// At most one message in a transcript has Streaming set. While Streaming, Text only grows by append;
// once Streaming flips to false it stays false.
type Message struct {
	ID        string
	Text      string
	Sender    Sender
	Streaming bool
}
