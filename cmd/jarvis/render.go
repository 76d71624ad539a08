package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/aniketverma/jarvis-portfolio/internal/models"
	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	assistant lipgloss.Style
	user      lipgloss.Style
	heading   lipgloss.Style
	dim       lipgloss.Style
	err       lipgloss.Style
	ok        lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		assistant: r.NewStyle().Bold(true).Foreground(lipgloss.Color("45")),
		user:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("229")),
		heading:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("170")),
		dim:       r.NewStyle().Foreground(lipgloss.Color("243")),
		err:       r.NewStyle().Foreground(lipgloss.Color("203")),
		ok:        r.NewStyle().Foreground(lipgloss.Color("78")),
	}
}

// transcriptPrinter writes the widget transcript to a terminal incrementally. A streaming message is
// extended by its new text only and its line ends once it stops streaming.
type transcriptPrinter struct {
	w        io.Writer
	st       styles
	echoUser bool

	mu      sync.Mutex
	done    map[string]bool
	current string
	written int
}

func newTranscriptPrinter(w io.Writer, st styles, echoUser bool) *transcriptPrinter {
	return &transcriptPrinter{
		w:        w,
		st:       st,
		echoUser: echoUser,
		done:     map[string]bool{},
	}
}

// Update receives transcript snapshots from the controller.
func (p *transcriptPrinter) Update(msgs []models.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, m := range msgs {
		if p.done[m.ID] {
			continue
		}
		if m.Sender == models.SenderUser && !p.echoUser {
			p.done[m.ID] = true
			continue
		}

		if m.ID != p.current {
			p.finishCurrent()
			p.current = m.ID
			p.written = 0
			fmt.Fprint(p.w, p.label(m.Sender)+" ")
		}
		if len(m.Text) > p.written {
			fmt.Fprint(p.w, m.Text[p.written:])
			p.written = len(m.Text)
		}
		if !m.Streaming {
			p.finishCurrent()
		}
	}
}

// finishCurrent ends the line of a message that is no longer being written.
func (p *transcriptPrinter) finishCurrent() {
	if p.current == "" {
		return
	}
	fmt.Fprintln(p.w)
	p.done[p.current] = true
	p.current = ""
	p.written = 0
}

func (p *transcriptPrinter) label(s models.Sender) string {
	if s == models.SenderUser {
		return p.st.user.Render("You ›")
	}
	return p.st.assistant.Render("JARVIS ›")
}
