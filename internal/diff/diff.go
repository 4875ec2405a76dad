// Package diff renders unified diffs of a patched buffer against its origin.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultContext is the number of unchanged lines kept around each change.
const DefaultContext = 3

// Stats counts changed lines.
type Stats struct {
	Added   int
	Removed int
}

func (s Stats) String() string {
	return fmt.Sprintf("+%d -%d", s.Added, s.Removed)
}

type line struct {
	op   byte
	text string
}

// Unified returns a unified diff of before and after labelled with name.
// It returns an empty string when the two are equal.
func Unified(name, before, after string, context int) (string, Stats) {
	if before == after {
		return "", Stats{}
	}
	if context < 0 {
		context = 0
	}

	lines, stats := lineDiff(before, after)

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", name, name)
	for _, h := range hunks(lines, context) {
		writeHunk(&b, lines, h)
	}
	return b.String(), stats
}

func lineDiff(before, after string) ([]line, Stats) {
	dmp := diffmatchpatch.New()
	a, b, index := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), index)

	var (
		out   []line
		stats Stats
	)
	for _, d := range diffs {
		op := byte(' ')
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = '+'
		case diffmatchpatch.DiffDelete:
			op = '-'
		}
		for _, text := range splitLines(d.Text) {
			out = append(out, line{op: op, text: text})
			switch op {
			case '+':
				stats.Added++
			case '-':
				stats.Removed++
			}
		}
	}
	return out, stats
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.SplitAfter(s, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

type hunk struct{ start, end int }

// hunks groups changed lines whose unchanged gap is at most 2*context.
func hunks(lines []line, context int) []hunk {
	var (
		out  []hunk
		last = -1
	)
	for i, l := range lines {
		if l.op == ' ' {
			continue
		}
		if last >= 0 && i-last-1 <= 2*context {
			out[len(out)-1].end = min(len(lines), i+context+1)
		} else {
			out = append(out, hunk{start: max(0, i-context), end: min(len(lines), i+context+1)})
		}
		last = i
	}
	return out
}

func writeHunk(b *strings.Builder, lines []line, h hunk) {
	oldStart, newStart := 1, 1
	for _, l := range lines[:h.start] {
		if l.op != '+' {
			oldStart++
		}
		if l.op != '-' {
			newStart++
		}
	}
	oldLen, newLen := 0, 0
	for _, l := range lines[h.start:h.end] {
		if l.op != '+' {
			oldLen++
		}
		if l.op != '-' {
			newLen++
		}
	}
	if oldLen == 0 {
		oldStart--
	}
	if newLen == 0 {
		newStart--
	}

	fmt.Fprintf(b, "@@ -%d,%d +%d,%d @@\n", oldStart, oldLen, newStart, newLen)
	for _, l := range lines[h.start:h.end] {
		b.WriteByte(l.op)
		b.WriteString(l.text)
		if !strings.HasSuffix(l.text, "\n") {
			b.WriteString("\n\\ No newline at end of file\n")
		}
	}
}
