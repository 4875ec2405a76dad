package patcher

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ContextWindow is how many characters before an InsertBefore anchor are
// searched for an earlier copy of the inserted text.
const ContextWindow = 300

// Op is a single textual transformation. The set of implementations is
// closed: EnsureImport, EnsureHelper, InsertBefore and ReplaceBlock.
type Op interface {
	// Kind is a stable identifier of the variant, used in logs and metrics.
	Kind() string
	// Describe names this particular operation.
	Describe() string

	apply(text string, syn Syntax) (step, error)
}

// step is the outcome of one operation on the buffer. change is nil when the
// buffer was left alone, and reason says why.
type step struct {
	text   string
	change *ChangeRecord
	reason string
}

func skip(text, reason string) step {
	return step{text: text, reason: reason}
}

func changed(text string, kind ChangeKind, description string) step {
	return step{text: text, change: &ChangeRecord{Kind: kind, Description: description}}
}

func rstrip(s string) string {
	return strings.TrimRightFunc(s, unicode.IsSpace)
}

// EnsureImport adds a literal import line after the last top-level import.
type EnsureImport struct {
	Line string
}

func (op EnsureImport) Kind() string     { return "import" }
func (op EnsureImport) Describe() string { return "import " + strings.TrimSpace(op.Line) }

func (op EnsureImport) apply(text string, syn Syntax) (step, error) {
	line := strings.TrimSpace(op.Line)
	if line == "" {
		return step{}, ErrEmptyImport
	}
	present, err := compile(`(?m)^\s*` + regexp.QuoteMeta(line) + `\s*$`)
	if err != nil {
		return step{}, err
	}
	if present.MatchString(text) {
		return skip(text, "already imported"), nil
	}

	imports, err := compile(syn.Imports)
	if err != nil {
		return step{}, err
	}
	at, sep := 0, ""
	if locs := imports.FindAllStringIndex(text, -1); len(locs) > 0 {
		at = locs[len(locs)-1][1]
		// The last import may be the final line of a file without a trailing newline.
		if at > 0 && text[at-1] != '\n' {
			sep = "\n"
		}
	}
	out := text[:at] + sep + rstrip(op.Line) + "\n" + text[at:]
	return changed(out, Added, "import "+line), nil
}

// EnsureHelper inserts a named definition above the bootstrap line unless a
// definition with that name already exists.
type EnsureHelper struct {
	Name string
	Code string
}

func (op EnsureHelper) Kind() string     { return "helper" }
func (op EnsureHelper) Describe() string { return "helper " + strings.TrimSpace(op.Name) }

func (op EnsureHelper) apply(text string, syn Syntax) (step, error) {
	name := strings.TrimSpace(op.Name)
	if name == "" {
		return step{}, ErrEmptyHelperName
	}
	def, err := compile(syn.definitionFor(name))
	if err != nil {
		return step{}, err
	}
	if def.MatchString(text) {
		return skip(text, "already defined"), nil
	}

	bootstrap, err := compile(syn.Bootstrap)
	if err != nil {
		return step{}, err
	}
	at := 0
	if loc := bootstrap.FindStringIndex(text); loc != nil {
		at = loc[0]
	}
	lead := ""
	if at > 0 {
		lead = "\n"
	}
	block := strings.TrimLeft(rstrip(op.Code), "\n")
	out := text[:at] + lead + block + "\n\n" + text[at:]
	return changed(out, Added, "helper "+name), nil
}

// InsertBefore places Text on its own line(s) directly above the line holding
// the first match of Anchor.
type InsertBefore struct {
	Anchor string
	Text   string
	Label  string
}

func (op InsertBefore) Kind() string { return "insert_before" }

func (op InsertBefore) Describe() string {
	if op.Label != "" {
		return op.Label
	}
	return "insert before " + op.Anchor
}

func (op InsertBefore) apply(text string, _ Syntax) (step, error) {
	anchor, err := compile(op.Anchor)
	if err != nil {
		return step{}, err
	}
	want := strings.TrimSpace(op.Text)
	if want == "" {
		return step{}, ErrEmptyInsert
	}
	loc := anchor.FindStringIndex(text)
	if loc == nil {
		return skip(text, "anchor not found"), nil
	}

	if strings.Contains(windowBefore(text, loc[0], ContextWindow), want) {
		return skip(text, "already present before anchor"), nil
	}

	lineStart := strings.LastIndexByte(text[:loc[0]], '\n') + 1
	out := text[:lineStart] + rstrip(op.Text) + "\n" + text[lineStart:]
	if out == text {
		return skip(text, "unchanged"), nil
	}
	return changed(out, Added, op.Describe()), nil
}

// windowBefore returns up to n characters of text ending at byte offset end.
func windowBefore(text string, end, n int) string {
	start := end
	for i := 0; i < n && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:start])
		start -= size
	}
	return text[start:end]
}

// ReplaceBlock replaces everything from the first match of Start through the
// first match of End that follows it. Both patterns are multi-line.
//
// The end boundary is the first match, not a balanced delimiter, so a
// replaced region that nests the closing shape ends early. Callers pick
// patterns that stop matching once the replacement is in place.
type ReplaceBlock struct {
	Start       string
	End         string
	Replacement string
	Label       string
}

func (op ReplaceBlock) Kind() string { return "replace_block" }

func (op ReplaceBlock) Describe() string {
	if op.Label != "" {
		return op.Label
	}
	return "replace " + op.Start
}

func (op ReplaceBlock) apply(text string, _ Syntax) (step, error) {
	start, err := compile("(?m)" + op.Start)
	if err != nil {
		return step{}, err
	}
	end, err := compile("(?m)" + op.End)
	if err != nil {
		return step{}, err
	}

	s := start.FindStringIndex(text)
	if s == nil {
		return skip(text, "start not found"), nil
	}
	e := end.FindStringIndex(text[s[1]:])
	if e == nil {
		return skip(text, "end not found"), nil
	}

	out := text[:s[0]] + op.Replacement + text[s[1]+e[1]:]
	if out == text {
		return skip(text, "unchanged"), nil
	}
	return changed(out, Modified, op.Describe()), nil
}
