package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
)

// ErrEmpty is returned when the chosen source holds only whitespace.
var ErrEmpty = errors.New("plan source is empty")

// Names reported for the two implicit sources.
const (
	Stdin     = "stdin"
	Clipboard = "clipboard"
)

// Provider retrieves plan text when no plan file or preset was named.
type Provider struct {
	stdin     io.Reader
	piped     func() bool
	clipboard func() (string, error)
}

// Option configures a Provider.
type Option func(*Provider)

// WithStdin replaces os.Stdin and treats it as piped.
func WithStdin(r io.Reader) Option {
	return func(p *Provider) {
		p.stdin = r
		p.piped = func() bool { return true }
	}
}

// WithClipboard replaces the system clipboard reader.
func WithClipboard(read func() (string, error)) Option {
	return func(p *Provider) { p.clipboard = read }
}

// New creates a Provider reading os.Stdin and the system clipboard.
func New(opts ...Option) *Provider {
	p := &Provider{
		stdin:     os.Stdin,
		piped:     stdinPiped,
		clipboard: clipboard.ReadAll,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func stdinPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// GetContent retrieves content from stdin (if piped) or the clipboard and
// reports which one it used. It writes nothing to the terminal, which may be
// owned by the TUI.
func (sp *Provider) GetContent() (name, content string, err error) {
	if sp.piped() {
		b, err := io.ReadAll(sp.stdin)
		if err != nil {
			return Stdin, "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		content, err = nonEmpty(string(b))
		return Stdin, content, err
	}

	text, err := sp.clipboard()
	if err != nil {
		return Clipboard, "", fmt.Errorf("failed to read from clipboard: %w", err)
	}
	content, err = nonEmpty(text)
	return Clipboard, content, err
}

func nonEmpty(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", ErrEmpty
	}
	return s, nil
}
