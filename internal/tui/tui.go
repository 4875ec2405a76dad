package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/srcpatch/model"
	"github.com/sokinpui/srcpatch/srcpatch"
)

// --- Styles ---
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")) // Mauve
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))            // Green
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))           // Orange
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))           // Red
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))            // Blue
	pathStyle    = lipgloss.NewStyle().Underline(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// --- Messages ---
type summaryMsg struct {
	model.Summary
}

type errorMsg struct{ err error }

func (e errorMsg) Error() string { return e.err.Error() }

type progressMsg struct {
	current, total int
}

// --- Model ---
type Model struct {
	ctx      context.Context
	app      *srcpatch.App
	verbose  bool
	spinner  spinner.Model
	progress chan progressMsg
	current  progressMsg
	state    state
	summary  summaryMsg
	err      error
}

type state int

const (
	stateProcessing state = iota
	stateSummary
	stateError
)

// New wires the app's progress reports into the model. verbose lists
// skipped operations in the summary.
func New(ctx context.Context, app *srcpatch.App, verbose bool) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ch := make(chan progressMsg, 64)
	app.SetProgressCallback(func(current, total int) {
		// Drop updates rather than block the patch run on a slow terminal.
		select {
		case ch <- progressMsg{current: current, total: total}:
		default:
		}
	})

	return Model{
		ctx:      ctx,
		app:      app,
		verbose:  verbose,
		spinner:  s,
		progress: ch,
		state:    stateProcessing,
	}
}

// Err returns the error the run ended with, if any.
func (m Model) Err() error {
	return m.err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runApp, m.waitForProgress)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case progressMsg:
		m.current = msg
		return m, m.waitForProgress

	case summaryMsg:
		m.state = stateSummary
		m.summary = msg
		return m, tea.Quit

	case errorMsg:
		m.state = stateError
		m.err = msg.err
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		if m.state == stateProcessing {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	switch m.state {
	case stateProcessing:
		if m.current.total > 0 {
			return fmt.Sprintf("%s Applying operations %d/%d...", m.spinner.View(), m.current.current, m.current.total)
		}
		return fmt.Sprintf("%s Processing...", m.spinner.View())
	case stateError:
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	case stateSummary:
		return m.renderSummary()
	default:
		return ""
	}
}

func (m *Model) renderSummary() string {
	var b strings.Builder
	s := m.summary.Summary

	if s.Diff != "" {
		b.WriteString(renderDiff(s.Diff))
		b.WriteString("\n")
	}
	for _, w := range s.Warnings {
		b.WriteString(warningStyle.Render("Warning: "+w) + "\n")
	}

	switch {
	case s.Message != "":
		b.WriteString(headerStyle.Render(s.Message))
	case !s.Changed:
		b.WriteString(faintStyle.Render("No changes made (already patched?)"))
	case s.DryRun:
		b.WriteString(headerStyle.Render("Would patch ") + pathStyle.Render(s.Path) + faintStyle.Render(" (dry run)"))
	default:
		b.WriteString(successStyle.Render("Patched ") + pathStyle.Render(s.Path))
	}
	b.WriteString("\n")

	if s.BackupPath != "" {
		b.WriteString(faintStyle.Render("Backup: ") + s.BackupPath + "\n")
	}
	if s.ArchiveLocation != "" {
		b.WriteString(faintStyle.Render("Archived: ") + s.ArchiveLocation + "\n")
	}
	if len(s.Changes) > 0 {
		b.WriteString(successStyle.Render("Changes:") + "\n")
		for _, c := range s.Changes {
			b.WriteString("  - " + c + "\n")
		}
	}
	if m.verbose && len(s.Skipped) > 0 {
		b.WriteString(faintStyle.Render("Skipped:") + "\n")
		for _, c := range s.Skipped {
			b.WriteString(faintStyle.Render("  - "+c) + "\n")
		}
	}
	if len(s.Failed) > 0 {
		b.WriteString(errorStyle.Render("Failed:") + "\n")
		for _, c := range s.Failed {
			b.WriteString(errorStyle.Render("  - "+c) + "\n")
		}
	}
	return b.String()
}

func renderDiff(d string) string {
	var b strings.Builder
	for _, line := range strings.SplitAfter(d, "\n") {
		if line == "" {
			continue
		}
		text := strings.TrimSuffix(line, "\n")
		switch {
		case strings.HasPrefix(text, "+++"), strings.HasPrefix(text, "---"):
			text = headerStyle.Render(text)
		case strings.HasPrefix(text, "@@"):
			text = hunkStyle.Render(text)
		case strings.HasPrefix(text, "+"):
			text = successStyle.Render(text)
		case strings.HasPrefix(text, "-"):
			text = errorStyle.Render(text)
		}
		b.WriteString(text + "\n")
	}
	return b.String()
}

// waitForProgress yields the next progress report, or nil once the run is over.
func (m Model) waitForProgress() tea.Msg {
	msg, ok := <-m.progress
	if !ok {
		return nil
	}
	return msg
}

func (m Model) runApp() tea.Msg {
	summary, err := m.app.Execute(m.ctx)
	// Execute has returned, so the progress callback can no longer send.
	close(m.progress)
	if err != nil {
		var detailed *srcpatch.DetailedError
		if errors.As(err, &detailed) {
			// The TUI will exit, so we can print to stderr here for the stack trace.
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", detailed.Stack)
		}
		return errorMsg{err}
	}
	return summaryMsg{
		Summary: summary,
	}
}
