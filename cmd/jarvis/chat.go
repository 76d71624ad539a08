package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aniketverma/jarvis-portfolio/internal/assistant"
	"github.com/spf13/cobra"
)

const chatHelp = `Commands:
  /mute     stop speaking replies
  /unmute   speak replies again
  /close    hang up the assistant (the transcript is kept)
  /open     reconnect after /close
  /quit     leave`

func (a *app) chatCmd() *cobra.Command {
	var muted bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if muted {
				a.cfg.Muted = true
			}
			return a.runChat(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&muted, "mute", false, "start with speech muted (env JARVIS_MUTED)")
	return cmd
}

func (a *app) runChat(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tty := interactive(a.in)
	printer := newTranscriptPrinter(a.out, a.st, !tty)
	ctrl := assistant.NewController(a.cfg.Endpoint, a.speaker(ctx, a.cfg.Muted),
		assistant.WithOnChange(printer.Update),
		assistant.WithControllerLogger(a.logger),
	)
	defer ctrl.Close()

	if tty {
		fmt.Fprintln(a.out, a.st.dim.Render("Type /help for commands."))
	}
	ctrl.Open(ctx)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(a.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := a.chatLine(ctx, ctrl, line); quit {
				return nil
			}
		}
	}
}

// chatLine handles one line of input and reports whether the user asked to leave.
func (a *app) chatLine(ctx context.Context, ctrl *assistant.Controller, line string) bool {
	line = strings.TrimSpace(line)
	switch line {
	case "":
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(a.out, a.st.dim.Render(chatHelp))
	case "/mute":
		ctrl.SetMuted(true)
		fmt.Fprintln(a.out, a.st.dim.Render("Speech muted."))
	case "/unmute":
		ctrl.SetMuted(false)
		fmt.Fprintln(a.out, a.st.dim.Render("Speech on."))
	case "/close":
		ctrl.Close()
		fmt.Fprintln(a.out, a.st.dim.Render("Assistant closed. /open to reconnect."))
	case "/open":
		if ctrl.IsOpen() {
			fmt.Fprintln(a.out, a.st.dim.Render("Assistant is already open ("+ctrl.SessionState().String()+")."))
			break
		}
		ctrl.Open(ctx)
	default:
		if !ctrl.IsOpen() {
			fmt.Fprintln(a.out, a.st.err.Render("Assistant is closed. /open to reconnect."))
			break
		}
		ctrl.Submit(line)
	}
	return false
}
