package plan

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sokinpui/srcpatch/internal/patcher"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    Format
	}{
		{"yaml extension", "plan.yaml", "```", FormatYAML},
		{"yml extension", "plan.YML", "", FormatYAML},
		{"markdown extension", "plan.md", "operations: []", FormatMarkdown},
		{"sniff fence", "-", "Import\n\n```\nimport re\n```\n", FormatMarkdown},
		{"sniff tilde fence", "clipboard", "Import\n~~~\nimport re\n~~~\n", FormatMarkdown},
		{"sniff yaml", "stdin", "operations:\n  - import: import re\n", FormatYAML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.file, []byte(tt.content)); got != tt.want {
				t.Errorf("DetectFormat(%q) = %s, want %s", tt.file, got, tt.want)
			}
		})
	}
}

func TestParseYAML(t *testing.T) {
	doc := `
syntax:
  bootstrap: '(?m)^if __name__'
operations:
  - import: "import re"
  - helper:
      name: _slug
      code: |
        def _slug(s):
            return s
  - insert_before:
      anchor: '(?m)^[ \t]*return summary'
      indent: 4
      text: |-
        summary["a"] = 1
        summary["b"] = 2
      label: extra fields
  - replace_block:
      start: '^x = \{'
      end: '^\}'
      replacement: "x = {}"
`
	p, err := Parse("plan.yaml", []byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []patcher.Op{
		patcher.EnsureImport{Line: "import re"},
		patcher.EnsureHelper{Name: "_slug", Code: "def _slug(s):\n    return s\n"},
		patcher.InsertBefore{Anchor: `(?m)^[ \t]*return summary`, Text: "    summary[\"a\"] = 1\n    summary[\"b\"] = 2", Label: "extra fields"},
		patcher.ReplaceBlock{Start: `^x = \{`, End: `^\}`, Replacement: "x = {}"},
	}
	if diff := cmp.Diff(want, p.Ops); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}
	if p.Syntax.Bootstrap != `(?m)^if __name__` {
		t.Errorf("bootstrap = %q", p.Syntax.Bootstrap)
	}
	if p.Syntax.Imports != patcher.PythonSyntax.Imports {
		t.Errorf("imports not defaulted: %q", p.Syntax.Imports)
	}
	if p.Name != "plan.yaml" {
		t.Errorf("name = %q", p.Name)
	}
}

func TestParseYAMLLanguage(t *testing.T) {
	p, err := Parse("go.yaml", []byte("language: go\noperations:\n  - import: 'import \"strings\"'\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff(patcher.GoSyntax, p.Syntax); diff != "" {
		t.Fatalf("syntax mismatch (-want +got):\n%s", diff)
	}
}

func TestParseYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"unknown field", "operatons:\n  - import: import re\n", ErrInvalidPlan},
		{"two kinds in one entry", "operations:\n  - import: import re\n    helper: {name: f, code: 'def f(): pass'}\n", ErrInvalidPlan},
		{"no kind", "operations:\n  - {}\n", ErrInvalidPlan},
		{"insert without anchor", "operations:\n  - insert_before: {text: x}\n", ErrInvalidPlan},
		{"replace without end", "operations:\n  - replace_block: {start: a, replacement: b}\n", ErrInvalidPlan},
		{"unknown language", "language: cobol\noperations:\n  - import: import re\n", ErrInvalidPlan},
		{"bad syntax pattern", "syntax: {bootstrap: '('}\noperations:\n  - import: import re\n", ErrInvalidPlan},
		{"empty", "operations: []\n", ErrEmptyPlan},
		{"malformed", "operations: [\n", ErrInvalidPlan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("plan.yaml", []byte(tt.doc))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

const markdownPlan = "# Migration\n" +
	"\n" +
	"Import\n" +
	"\n" +
	"```python\nimport re\n\nfrom zoneinfo import ZoneInfo\n```\n" +
	"\n" +
	"Helper `_slug`:\n" +
	"\n" +
	"```python\ndef _slug(s):\n    return s\n```\n" +
	"\n" +
	"Before `(?m)^return summary` seed headers\n" +
	"\n" +
	"```python\n_seed()\n```\n" +
	"\n" +
	"Replace `^x = \\{` through `^\\}` - rewrite x\n" +
	"\n" +
	"```\nx = {}\n```\n" +
	"\n" +
	"Something else entirely\n" +
	"\n" +
	"```\nignored\n```\n"

func TestParseMarkdown(t *testing.T) {
	p, err := Parse("plan.md", []byte(markdownPlan))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []patcher.Op{
		patcher.EnsureImport{Line: "import re"},
		patcher.EnsureImport{Line: "from zoneinfo import ZoneInfo"},
		patcher.EnsureHelper{Name: "_slug", Code: "def _slug(s):\n    return s\n"},
		patcher.InsertBefore{Anchor: `(?m)^return summary`, Text: "_seed()\n", Label: "seed headers"},
		patcher.ReplaceBlock{Start: `^x = \{`, End: `^\}`, Replacement: "x = {}", Label: "rewrite x"},
	}
	if diff := cmp.Diff(want, p.Ops); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}
	if len(p.Warnings) != 1 || !strings.Contains(p.Warnings[0], "Something else entirely") {
		t.Fatalf("warnings = %v", p.Warnings)
	}
}

func TestParseMarkdownSyntax(t *testing.T) {
	doc := "Language `go`\n\n```\n```\n\nSyntax\n\n```yaml\nbootstrap: '(?m)^func run\\('\n```\n\nImport\n\n```go\nimport \"os\"\n```\n"
	p, err := Parse("plan.md", []byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := patcher.GoSyntax
	want.Bootstrap = `(?m)^func run\(`
	if diff := cmp.Diff(want, p.Syntax); diff != "" {
		t.Fatalf("syntax mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMarkdownMissingArgs(t *testing.T) {
	for _, doc := range []string{
		"Helper\n\n```\ndef f(): pass\n```\n",
		"Before\n\n```\nx\n```\n",
		"Replace `start` only\n\n```\nx\n```\n",
	} {
		if _, err := Parse("plan.md", []byte(doc)); !errors.Is(err, ErrInvalidPlan) {
			t.Errorf("Parse(%q): err = %v, want ErrInvalidPlan", doc, err)
		}
	}
}

func TestExtractCodeBlocksHint(t *testing.T) {
	blocks, err := ExtractCodeBlocks([]byte("Insert before `a` and `b`: the label.\n\n```go\nbody\n```\n\n```\nbare\n```\n"))
	if err != nil {
		t.Fatalf("ExtractCodeBlocks: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("len(blocks) = %d", len(blocks))
	}

	want := Hint{
		Keyword: "insert",
		Args:    []string{"a", "b"},
		Label:   "the label",
		Text:    "Insert before `a` and `b`: the label.",
	}
	if diff := cmp.Diff(want, blocks[0].Hint); diff != "" {
		t.Errorf("hint mismatch (-want +got):\n%s", diff)
	}
	if blocks[0].Lang != "go" || blocks[0].Content != "body\n" {
		t.Errorf("block 0 = %+v", blocks[0])
	}
	if blocks[1].Hint.Keyword != "" {
		t.Errorf("block 1 should have no hint, got %+v", blocks[1].Hint)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yml")
	if err := os.WriteFile(path, []byte("operations:\n  - import: import re\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(p.Ops) != 1 {
		t.Fatalf("ops = %v", p.Ops)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing plan: err = %v", err)
	}
}
