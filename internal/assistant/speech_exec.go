package assistant

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrNoEngine is returned by DetectEngine when no supported synthesizer is installed.
var ErrNoEngine = errors.New("no speech synthesizer found")

// CommandEngine drives a command-line synthesizer: espeak-ng, espeak or macOS say.
type CommandEngine struct {
	command string
	voices  []Voice

	mu  sync.Mutex
	cmd *exec.Cmd
}

var knownSynthesizers = []string{"espeak-ng", "espeak", "say"}

// DetectEngine returns an engine for the first known synthesizer on PATH, or for command when it is
// not empty.
func DetectEngine(ctx context.Context, command string) (*CommandEngine, error) {
	candidates := knownSynthesizers
	if command != "" {
		candidates = []string{command}
	}
	for _, c := range candidates {
		path, err := exec.LookPath(c)
		if err != nil {
			continue
		}
		e := &CommandEngine{command: path}
		e.voices = e.listVoices(ctx)
		return e, nil
	}
	return nil, ErrNoEngine
}

func (e *CommandEngine) isSay() bool {
	return filepath.Base(e.command) == "say"
}

func (e *CommandEngine) listVoices(ctx context.Context) []Voice {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var args []string
	if e.isSay() {
		args = []string{"-v", "?"}
	} else {
		args = []string{"--voices"}
	}
	out, err := exec.CommandContext(ctx, e.command, args...).Output()
	if err != nil {
		return nil
	}
	if e.isSay() {
		return parseSayVoices(out)
	}
	return parseEspeakVoices(out)
}

// parseEspeakVoices reads `espeak --voices` output:
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US            (en 3)
func parseEspeakVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	first := true
	for sc.Scan() {
		if first {
			first = false
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 {
			continue
		}
		gender := fields[2]
		name := fields[3]
		if strings.HasSuffix(gender, "/M") {
			name += " Male"
		}
		v := Voice{
			Name: name,
			Lang: fields[1],
			ID:   fields[1],
		}
		if len(fields) > 4 {
			v.ID = fields[4]
		}
		voices = append(voices, v)
	}
	return voices
}

// parseSayVoices reads `say -v ?` output:
//
//	Alex                en_US    # Most people recognize me by my voice.
func parseSayVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line, _, _ := strings.Cut(sc.Text(), "#")
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		voices = append(voices, Voice{
			Name: strings.Join(fields[:len(fields)-1], " "),
			Lang: fields[len(fields)-1],
		})
	}
	return voices
}

// Voices implements Engine.
func (e *CommandEngine) Voices() []Voice {
	return e.voices
}

// Speak implements Engine. The synthesizer runs in the background until it finishes or Cancel is called.
func (e *CommandEngine) Speak(u Utterance) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cmd := exec.Command(e.command, e.args(u)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", e.command, err)
	}
	e.cmd = cmd

	go func() {
		_ = cmd.Wait()
		e.mu.Lock()
		if e.cmd == cmd {
			e.cmd = nil
		}
		e.mu.Unlock()
	}()
	return nil
}

func (e *CommandEngine) args(u Utterance) []string {
	var args []string
	if e.isSay() {
		if u.Voice != nil {
			args = append(args, "-v", u.Voice.Name)
		}
		// say speaks 175 words per minute by default and has no pitch control.
		args = append(args, "-r", strconv.Itoa(int(175*u.Rate)))
		return append(args, u.Text)
	}

	// espeak selects voices by file; names are only used for preference matching.
	if u.Voice != nil {
		id := u.Voice.ID
		if id == "" {
			id = u.Voice.Lang
		}
		if id != "" {
			args = append(args, "-v", id)
		}
	}
	// espeak pitch ranges 0-99 with 50 as default; speed defaults to 175 words per minute.
	args = append(args,
		"-p", strconv.Itoa(int(50*u.Pitch)),
		"-s", strconv.Itoa(int(175*u.Rate)),
	)
	return append(args, "--", u.Text)
}

// Cancel implements Engine.
func (e *CommandEngine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cmd != nil && e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	e.cmd = nil
}
