package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/sokinpui/srcpatch/model"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PathColor    = color.New(color.FgYellow)
	AddedColor   = color.New(color.FgGreen)
	RemovedColor = color.New(color.FgRed)
	HunkColor    = color.New(color.FgCyan)
	FaintColor   = color.New(color.Faint)
)

// Out receives the change report; diagnostics go to Err.
var (
	Out io.Writer = os.Stdout
	Err io.Writer = os.Stderr
)

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(Err, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(Err, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(Err, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(Err, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(Err, format+"\n", a...)
}

func Path(format string, a ...interface{}) {
	PathColor.Fprintf(Err, "  "+format+"\n", a...)
}

// --- Summaries ---

// PrintSummary writes the change report. Skipped operations are listed only
// when verbose is set.
func PrintSummary(s model.Summary, verbose bool) {
	for _, w := range s.Warnings {
		Warning("warning: %s", w)
	}
	if s.Diff != "" {
		PrintDiff(s.Diff)
	}

	switch {
	case s.Message != "":
		SuccessColor.Fprintln(Out, s.Message)
	case !s.Changed:
		InfoColor.Fprintln(Out, "No changes made (already patched?)")
	case s.DryRun:
		SuccessColor.Fprintf(Out, "Would patch %s (dry run)\n", s.Path)
	default:
		SuccessColor.Fprintf(Out, "Patched %s\n", s.Path)
	}
	if s.BackupPath != "" {
		fmt.Fprintf(Out, "Backup: %s\n", PathColor.Sprint(s.BackupPath))
	}
	if s.ArchiveLocation != "" {
		fmt.Fprintf(Out, "Archived: %s\n", PathColor.Sprint(s.ArchiveLocation))
	}

	if len(s.Changes) > 0 {
		fmt.Fprintln(Out, "Changes:")
		for _, c := range s.Changes {
			fmt.Fprintf(Out, " - %s\n", c)
		}
	}
	if verbose && len(s.Skipped) > 0 {
		FaintColor.Fprintf(Out, "Skipped %d operation(s):\n", len(s.Skipped))
		for _, sk := range s.Skipped {
			FaintColor.Fprintf(Out, " - %s\n", sk)
		}
	}
	if len(s.Failed) > 0 {
		ErrorColor.Fprintf(Out, "Failed %d operation(s):\n", len(s.Failed))
		for _, f := range s.Failed {
			fmt.Fprintf(Out, " - %s\n", f)
		}
	}
}

// PrintDiff writes a unified diff with added and removed lines coloured.
func PrintDiff(d string) {
	for _, l := range strings.SplitAfter(d, "\n") {
		switch {
		case l == "":
		case strings.HasPrefix(l, "+++"), strings.HasPrefix(l, "---"):
			HeaderColor.Fprint(Out, l)
		case strings.HasPrefix(l, "@@"):
			HunkColor.Fprint(Out, l)
		case strings.HasPrefix(l, "+"):
			AddedColor.Fprint(Out, l)
		case strings.HasPrefix(l, "-"):
			RemovedColor.Fprint(Out, l)
		default:
			fmt.Fprint(Out, l)
		}
	}
}

// --- Progress Bar ---

type ProgressBar struct {
	total   int
	prefix  string
	current int
}

func NewProgressBar(total int, prefix string) *ProgressBar {
	return &ProgressBar{total: total, prefix: prefix}
}

func (p *ProgressBar) Start() {
	p.draw()
}

// Set moves the bar to current, as reported by a progress callback.
func (p *ProgressBar) Set(current int) {
	p.current = current
	p.draw()
}

func (p *ProgressBar) Increment() {
	p.current++
	p.draw()
}

func (p *ProgressBar) Finish() {
	fmt.Fprintln(Err)
}

func (p *ProgressBar) draw() {
	if p.total == 0 {
		return
	}
	const barLength = 40
	percent := float64(p.current) / float64(p.total)
	filledLength := int(percent * barLength)
	bar := strings.Repeat("█", filledLength) + strings.Repeat("-", barLength-filledLength)

	percentStr := fmt.Sprintf("%.1f%%", percent*100)
	countStr := fmt.Sprintf("[%d/%d]", p.current, p.total)

	fmt.Fprintf(Err, "\r%s |%s| %s %s", p.prefix, bar, countStr, percentStr)
}
