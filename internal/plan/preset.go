package plan

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// ErrUnknownPreset is returned by Preset for names with no embedded plan.
var ErrUnknownPreset = errors.New("unknown preset")

//go:embed presets/*.yaml
var presets embed.FS

// Preset loads an embedded plan by name.
func Preset(name string) (*Plan, error) {
	content, err := presets.ReadFile(path.Join("presets", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownPreset, name, strings.Join(Presets(), ", "))
	}
	p, err := Parse(name+".yaml", content)
	if err != nil {
		return nil, err
	}
	p.Name = "preset:" + name
	return p, nil
}

// Presets lists the embedded plan names in sorted order.
func Presets() []string {
	matches, _ := fs.Glob(presets, "presets/*.yaml")
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(path.Base(m), ".yaml"))
	}
	sort.Strings(names)
	return names
}
