package main

import (
	"bytes"
	"testing"

	"github.com/aniketverma/jarvis-portfolio/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestTranscriptPrinterStreamsDeltas(t *testing.T) {
	var buf bytes.Buffer
	p := newTranscriptPrinter(&buf, newStyles(&buf), false)

	greeting := models.Message{ID: "1", Text: "Hello Sir.", Sender: models.SenderAssistant}
	user := models.Message{ID: "2", Text: "skills?", Sender: models.SenderUser}

	p.Update([]models.Message{greeting})
	p.Update([]models.Message{greeting, user})
	p.Update([]models.Message{greeting, user, {ID: "3", Text: "Go", Sender: models.SenderAssistant, Streaming: true}})
	p.Update([]models.Message{greeting, user, {ID: "3", Text: "Go and", Sender: models.SenderAssistant, Streaming: true}})
	p.Update([]models.Message{greeting, user, {ID: "3", Text: "Go and Python.", Sender: models.SenderAssistant}})
	p.Update([]models.Message{greeting, user, {ID: "3", Text: "Go and Python.", Sender: models.SenderAssistant}})

	assert.Equal(t, "JARVIS › Hello Sir.\nJARVIS › Go and Python.\n", buf.String())
}

func TestTranscriptPrinterEchoesUser(t *testing.T) {
	var buf bytes.Buffer
	p := newTranscriptPrinter(&buf, newStyles(&buf), true)

	p.Update([]models.Message{
		{ID: "1", Text: "Hello Sir.", Sender: models.SenderAssistant},
		{ID: "2", Text: "projects?", Sender: models.SenderUser},
	})

	assert.Equal(t, "JARVIS › Hello Sir.\nYou › projects?\n", buf.String())
}

func TestTranscriptPrinterFinishesInterruptedStream(t *testing.T) {
	var buf bytes.Buffer
	p := newTranscriptPrinter(&buf, newStyles(&buf), false)

	p.Update([]models.Message{{ID: "1", Text: "Partial", Sender: models.SenderAssistant, Streaming: true}})
	p.Update([]models.Message{
		{ID: "1", Text: "Partial", Sender: models.SenderAssistant, Streaming: true},
		{ID: "2", Text: "Error: connection lost", Sender: models.SenderAssistant},
	})

	assert.Equal(t, "JARVIS › Partial\nJARVIS › Error: connection lost\n", buf.String())
}
