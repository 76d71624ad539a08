package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/aniketverma/jarvis-portfolio/internal/assistant"
	"github.com/aniketverma/jarvis-portfolio/internal/content"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const errLoggerKey = "err"

// app carries what every subcommand needs once flags and environment are resolved.
type app struct {
	cfg    config
	in     io.Reader
	out    io.Writer
	st     styles
	logger *slog.Logger
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out}

	root := &cobra.Command{
		Use:           "jarvis",
		Short:         "Talk to the portfolio assistant",
		Long:          "A terminal front end for the Jarvis portfolio assistant and its content API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("endpoint") {
				cfg.Endpoint, _ = flags.GetString("endpoint")
			}
			if flags.Changed("api") {
				cfg.APIURL, _ = flags.GetString("api")
			}
			if flags.Changed("debug") {
				cfg.Debug, _ = flags.GetBool("debug")
			}
			a.cfg = cfg

			a.st = newStyles(out)
			a.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
			if cfg.Debug {
				a.logger = slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: slog.LevelDebug}))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runChat(cmd.Context())
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.String("endpoint", "", "assistant websocket endpoint (env JARVIS_ENDPOINT)")
	pf.String("api", "", "content API base URL (env JARVIS_API_URL)")
	pf.Bool("debug", false, "log diagnostics to stderr")

	root.AddCommand(
		a.chatCmd(),
		a.profileCmd(),
		a.blogCmd(),
		a.contactCmd(),
	)
	return root
}

func (a *app) contentClient() *content.Client {
	return content.NewClient(a.cfg.APIURL, content.WithClientLogger(a.logger))
}

// speaker picks the configured or first installed synthesizer. Without one the assistant stays
// silent.
func (a *app) speaker(ctx context.Context, muted bool) *assistant.Speech {
	opts := []assistant.SpeechOption{
		assistant.WithSpeechLogger(a.logger),
		assistant.WithMuted(muted),
	}
	if len(a.cfg.Voices) > 0 {
		opts = append(opts, assistant.WithVoicePreferences(a.cfg.Voices...))
	}

	engine, err := assistant.DetectEngine(ctx, a.cfg.SpeechCommand)
	if err != nil {
		if !errors.Is(err, assistant.ErrNoEngine) || a.cfg.SpeechCommand != "" {
			a.logger.Warn("Speech disabled", slog.String(errLoggerKey, err.Error()))
		}
		return assistant.NewSpeech(nil, opts...)
	}
	return assistant.NewSpeech(engine, opts...)
}

// interactive reports whether r is a terminal a person is typing into.
func interactive(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
