// Package plan loads ordered patch operations from YAML or Markdown documents.
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sokinpui/srcpatch/internal/patcher"
)

var (
	// ErrInvalidPlan is returned for documents that cannot be turned into operations.
	ErrInvalidPlan = errors.New("invalid plan")
	// ErrEmptyPlan is returned when a document holds no operations.
	ErrEmptyPlan = errors.New("plan has no operations")
)

// Format is the encoding of a plan document.
type Format int

const (
	FormatYAML Format = iota
	FormatMarkdown
)

func (f Format) String() string {
	if f == FormatMarkdown {
		return "markdown"
	}
	return "yaml"
}

// Plan is an ordered list of operations plus the syntax they run with.
type Plan struct {
	Name   string
	Syntax patcher.Syntax
	Ops    []patcher.Op
	// Warnings collects parts of the document that were ignored.
	Warnings []string
}

// DetectFormat picks a format from the file extension, falling back to
// looking for code fences in content.
func DetectFormat(name string, content []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return FormatMarkdown
	case ".yaml", ".yml":
		return FormatYAML
	}
	if bytes.Contains(content, []byte("```")) || bytes.Contains(content, []byte("~~~")) {
		return FormatMarkdown
	}
	return FormatYAML
}

// Parse decodes content. name is only used for format detection and messages.
func Parse(name string, content []byte) (*Plan, error) {
	var (
		p   *Plan
		err error
	)
	switch DetectFormat(name, content) {
	case FormatMarkdown:
		p, err = parseMarkdown(content)
	default:
		p, err = parseYAML(content)
	}
	if err != nil {
		return nil, err
	}
	p.Name = name
	if len(p.Ops) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyPlan)
	}
	if err := p.Syntax.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPlan, name, err)
	}
	return p, nil
}

// Load reads and parses a plan file.
func Load(path string) (*Plan, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return Parse(path, content)
}
