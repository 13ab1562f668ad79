// Package clipboard copies text to the system clipboard through the terminal
// and tracks the short-lived acknowledgment shown after a copy.
package clipboard

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/aymanbagabas/go-osc52/v2"

	"github.com/kyleking/query-runner/internal/errors"
)

// Writer places text on a clipboard
type Writer interface {
	Copy(ctx context.Context, text string) error
}

// OSC52Writer emits an OSC 52 escape sequence, which most terminal emulators
// translate into a clipboard write even over SSH.
type OSC52Writer struct {
	Out io.Writer
	// Tmux wraps the sequence in a tmux passthrough
	Tmux bool
	// Screen wraps the sequence for GNU screen
	Screen bool
}

// NewOSC52Writer writes to out, detecting tmux and screen from the environment
func NewOSC52Writer(out io.Writer) *OSC52Writer {
	if out == nil {
		out = os.Stderr
	}

	return &OSC52Writer{
		Out:    out,
		Tmux:   os.Getenv("TMUX") != "",
		Screen: strings.HasPrefix(os.Getenv("TERM"), "screen"),
	}
}

// Copy writes text to the clipboard
func (w *OSC52Writer) Copy(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	seq := osc52.New(text)

	switch {
	case w.Tmux:
		seq = seq.Tmux()
	case w.Screen:
		seq = seq.Screen()
	}

	if _, err := seq.WriteTo(w.Out); err != nil {
		return errors.Wrap(err, errors.ErrTypeClipboard, "failed to write clipboard sequence")
	}

	return nil
}

// MemoryWriter records copied text
type MemoryWriter struct {
	Copied []string
	Err    error
}

// Copy records text, or returns Err when set
func (m *MemoryWriter) Copy(_ context.Context, text string) error {
	if m.Err != nil {
		return errors.Wrap(m.Err, errors.ErrTypeClipboard, "clipboard unavailable")
	}

	m.Copied = append(m.Copied, text)

	return nil
}

// Last returns the most recently copied text
func (m *MemoryWriter) Last() string {
	if len(m.Copied) == 0 {
		return ""
	}

	return m.Copied[len(m.Copied)-1]
}
