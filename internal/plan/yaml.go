package plan

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/sokinpui/srcpatch/internal/patcher"
)

type document struct {
	Language   string         `yaml:"language"`
	Syntax     patcher.Syntax `yaml:"syntax"`
	Operations []operation    `yaml:"operations"`
}

// operation sets exactly one of its fields.
type operation struct {
	Import       *string       `yaml:"import"`
	Helper       *helper       `yaml:"helper"`
	InsertBefore *insertBefore `yaml:"insert_before"`
	ReplaceBlock *replaceBlock `yaml:"replace_block"`
}

type helper struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

type insertBefore struct {
	Anchor string `yaml:"anchor"`
	Text   string `yaml:"text"`
	Label  string `yaml:"label"`
	Indent int    `yaml:"indent"`
}

type replaceBlock struct {
	Start       string `yaml:"start"`
	End         string `yaml:"end"`
	Replacement string `yaml:"replacement"`
	Label       string `yaml:"label"`
	Indent      int    `yaml:"indent"`
}

func parseYAML(content []byte) (*Plan, error) {
	var doc document
	if err := yaml.UnmarshalWithOptions(content, &doc, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPlan, yaml.FormatError(err, false, true))
	}

	base, err := patcher.SyntaxFor(doc.Language)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	p := &Plan{Syntax: doc.Syntax.Merge(base)}

	for i, op := range doc.Operations {
		converted, err := op.toOp()
		if err != nil {
			return nil, fmt.Errorf("%w: operation %d: %v", ErrInvalidPlan, i+1, err)
		}
		p.Ops = append(p.Ops, converted)
	}
	return p, nil
}

// indentLines prefixes every non-blank line of s with n spaces. Block
// scalars lose their common leading indentation, so plans state it here.
func indentLines(s string, n int) string {
	if n <= 0 {
		return s
	}
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}

func (o operation) toOp() (patcher.Op, error) {
	var ops []patcher.Op
	if o.Import != nil {
		ops = append(ops, patcher.EnsureImport{Line: *o.Import})
	}
	if o.Helper != nil {
		ops = append(ops, patcher.EnsureHelper{Name: o.Helper.Name, Code: o.Helper.Code})
	}
	if o.InsertBefore != nil {
		ib := o.InsertBefore
		if ib.Anchor == "" {
			return nil, fmt.Errorf("insert_before needs an anchor")
		}
		ops = append(ops, patcher.InsertBefore{Anchor: ib.Anchor, Text: indentLines(ib.Text, ib.Indent), Label: ib.Label})
	}
	if o.ReplaceBlock != nil {
		rb := o.ReplaceBlock
		if rb.Start == "" || rb.End == "" {
			return nil, fmt.Errorf("replace_block needs start and end")
		}
		ops = append(ops, patcher.ReplaceBlock{
			Start:       rb.Start,
			End:         rb.End,
			Replacement: indentLines(rb.Replacement, rb.Indent),
			Label:       rb.Label,
		})
	}

	switch len(ops) {
	case 1:
		return ops[0], nil
	case 0:
		return nil, fmt.Errorf("no operation kind set (want one of import, helper, insert_before, replace_block)")
	default:
		return nil, fmt.Errorf("%d operation kinds set in one entry", len(ops))
	}
}
