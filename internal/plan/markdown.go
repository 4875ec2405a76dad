package plan

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/sokinpui/srcpatch/internal/patcher"
)

// Hint is the paragraph immediately preceding a fenced code block.
type Hint struct {
	// Keyword is the lower-cased first word, e.g. "import" or "before".
	Keyword string
	// Args are the inline code spans in order of appearance.
	Args []string
	// Label is the plain text following the last code span.
	Label string
	// Text is the whole paragraph with code spans kept in backticks.
	Text string
}

// CodeBlock represents a parsed code block from markdown content.
type CodeBlock struct {
	Hint Hint
	// Lang is the language identifier of the code block (e.g., "python", "yaml").
	Lang string
	// Content is the raw text inside the code block.
	Content string
}

// ExtractCodeBlocks uses a markdown AST to find all fenced code blocks
// and their preceding paragraph, which is treated as a hint.
func ExtractCodeBlocks(source []byte) ([]CodeBlock, error) {
	var blocks []CodeBlock
	parser := goldmark.DefaultParser()
	root := parser.Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		block := CodeBlock{Lang: string(fenced.Language(source))}

		var content bytes.Buffer
		lines := fenced.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			content.Write(line.Value(source))
		}
		block.Content = content.String()

		if p, ok := fenced.PreviousSibling().(*ast.Paragraph); ok {
			block.Hint = parseHint(p, source)
		}

		blocks = append(blocks, block)
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}

	return blocks, nil
}

func parseHint(p *ast.Paragraph, source []byte) Hint {
	var (
		h     Hint
		whole strings.Builder
		tail  strings.Builder
	)
	for c := p.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*ast.CodeSpan); ok {
			arg := inlineText(c, source)
			h.Args = append(h.Args, arg)
			whole.WriteString("`" + arg + "`")
			tail.Reset()
			continue
		}
		s := inlineText(c, source)
		whole.WriteString(s)
		tail.WriteString(s)
	}

	h.Text = strings.TrimSpace(whole.String())
	if fields := strings.Fields(h.Text); len(fields) > 0 {
		h.Keyword = strings.ToLower(strings.TrimRight(fields[0], ":"))
	}
	if len(h.Args) > 0 {
		h.Label = strings.Trim(tail.String(), " \t:-—–.")
	}
	return h
}

func inlineText(n ast.Node, source []byte) string {
	switch t := n.(type) {
	case *ast.Text:
		s := string(t.Segment.Value(source))
		if t.SoftLineBreak() || t.HardLineBreak() {
			s += " "
		}
		return s
	case *ast.String:
		return string(t.Value)
	}
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		b.WriteString(inlineText(c, source))
	}
	return b.String()
}

// parseMarkdown turns hinted code blocks into operations:
//
//	Import                          one EnsureImport per non-blank line
//	Helper `name`                   EnsureHelper
//	Before `anchor` label           InsertBefore
//	Replace `start` through `end`   ReplaceBlock, label follows the end span
//	Syntax                          YAML overrides for the import/definition/bootstrap patterns
//	Language `go`                   selects a built-in syntax
//
// A single trailing newline is dropped from replacement blocks, since the end
// pattern usually stops short of the line break.
func parseMarkdown(source []byte) (*Plan, error) {
	blocks, err := ExtractCodeBlocks(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}

	p := &Plan{}
	var overrides patcher.Syntax
	base := patcher.PythonSyntax

	for i, b := range blocks {
		n := i + 1
		switch b.Hint.Keyword {
		case "import", "imports":
			for _, line := range strings.Split(b.Content, "\n") {
				if strings.TrimSpace(line) != "" {
					p.Ops = append(p.Ops, patcher.EnsureImport{Line: line})
				}
			}
		case "helper":
			if len(b.Hint.Args) < 1 {
				return nil, fmt.Errorf("%w: block %d: helper needs a `name`", ErrInvalidPlan, n)
			}
			p.Ops = append(p.Ops, patcher.EnsureHelper{Name: b.Hint.Args[0], Code: b.Content})
		case "before", "insert":
			if len(b.Hint.Args) < 1 {
				return nil, fmt.Errorf("%w: block %d: insert needs an `anchor`", ErrInvalidPlan, n)
			}
			p.Ops = append(p.Ops, patcher.InsertBefore{Anchor: b.Hint.Args[0], Text: b.Content, Label: b.Hint.Label})
		case "replace":
			if len(b.Hint.Args) < 2 {
				return nil, fmt.Errorf("%w: block %d: replace needs `start` and `end`", ErrInvalidPlan, n)
			}
			p.Ops = append(p.Ops, patcher.ReplaceBlock{
				Start:       b.Hint.Args[0],
				End:         b.Hint.Args[1],
				Replacement: strings.TrimSuffix(b.Content, "\n"),
				Label:       b.Hint.Label,
			})
		case "syntax":
			if err := yaml.UnmarshalWithOptions([]byte(b.Content), &overrides, yaml.Strict()); err != nil {
				return nil, fmt.Errorf("%w: block %d: %v", ErrInvalidPlan, n, err)
			}
		case "language":
			name := strings.TrimSpace(b.Content)
			if len(b.Hint.Args) > 0 {
				name = b.Hint.Args[0]
			}
			if base, err = patcher.SyntaxFor(name); err != nil {
				return nil, fmt.Errorf("%w: block %d: %v", ErrInvalidPlan, n, err)
			}
		default:
			p.Warnings = append(p.Warnings, fmt.Sprintf("block %d: ignoring code block with hint %q", n, b.Hint.Text))
		}
	}

	p.Syntax = overrides.Merge(base)
	return p, nil
}
