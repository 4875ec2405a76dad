package patcher

import (
	"fmt"
	"regexp"
	"strings"
)

// Syntax holds the language-specific patterns used by EnsureImport and
// EnsureHelper. Zero fields fall back to PythonSyntax.
type Syntax struct {
	// Imports matches a single top-level import statement, line break included.
	Imports string `yaml:"imports"`
	// Definition matches a definition header. The placeholder {name} is
	// replaced by the quoted helper name.
	Definition string `yaml:"definition"`
	// Bootstrap matches the line helpers are inserted above.
	Bootstrap string `yaml:"bootstrap"`
}

// PythonSyntax targets FastAPI service modules.
var PythonSyntax = Syntax{
	Imports:    `(?m)^(?:from\s+\S+\s+import[^\n]*|import\s[^\n]*)(?:\n|\z)`,
	Definition: `\bdef\s+{name}\s*\(`,
	Bootstrap:  `(?m)^[ \t]*app\s*=\s*FastAPI\(`,
}

// GoSyntax targets Go source files whose helpers live above func main.
var GoSyntax = Syntax{
	Imports:    `(?m)^(?:import\s+(?:\w+\s+)?"[^"\n]+"|import\s*\((?s:.*?)\n\))[^\n]*(?:\n|\z)`,
	Definition: `(?m)^func\s+{name}\s*\(`,
	Bootstrap:  `(?m)^func\s+main\s*\(`,
}

const namePlaceholder = "{name}"

// SyntaxFor returns the built-in syntax for a language name. The empty name
// selects Python.
func SyntaxFor(language string) (Syntax, error) {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "", "python", "py":
		return PythonSyntax, nil
	case "go", "golang":
		return GoSyntax, nil
	default:
		return Syntax{}, fmt.Errorf("unknown language %q", language)
	}
}

// Merge returns s with empty fields taken from base.
func (s Syntax) Merge(base Syntax) Syntax {
	if s.Imports == "" {
		s.Imports = base.Imports
	}
	if s.Definition == "" {
		s.Definition = base.Definition
	}
	if s.Bootstrap == "" {
		s.Bootstrap = base.Bootstrap
	}
	return s
}

// Validate compiles every pattern once.
func (s Syntax) Validate() error {
	s = s.Merge(PythonSyntax)
	if !strings.Contains(s.Definition, namePlaceholder) {
		return fmt.Errorf("%w: definition pattern %q has no %s placeholder", ErrInvalidPattern, s.Definition, namePlaceholder)
	}
	for _, p := range []string{s.Imports, s.definitionFor("x"), s.Bootstrap} {
		if _, err := compile(p); err != nil {
			return err
		}
	}
	return nil
}

func (s Syntax) definitionFor(name string) string {
	return strings.ReplaceAll(s.Definition, namePlaceholder, regexp.QuoteMeta(name))
}

func compile(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return re, nil
}
