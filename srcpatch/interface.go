package srcpatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sokinpui/srcpatch/internal/fs"
	"github.com/sokinpui/srcpatch/internal/patcher"
	"github.com/sokinpui/srcpatch/internal/plan"
)

// Operation types for using srcpatch as a library.
type (
	Op           = patcher.Op
	EnsureImport = patcher.EnsureImport
	EnsureHelper = patcher.EnsureHelper
	InsertBefore = patcher.InsertBefore
	ReplaceBlock = patcher.ReplaceBlock
	Syntax       = patcher.Syntax
	ChangeRecord = patcher.ChangeRecord
	Result       = patcher.CommitResult
)

// Config for using srcpatch as a library.
type Config struct {
	// Apply in memory only.
	DryRun bool
	// Patterns for imports, definitions and the bootstrap line. Empty fields
	// fall back to Python.
	Syntax Syntax
	Logger *zap.Logger
}

// Patch applies ops to the file at path in order and, unless DryRun is set,
// writes the result after backing up the original. An unchanged file is
// never written.
func Patch(ctx context.Context, path string, ops []Op, config Config) (Result, error) {
	content, err := fs.ReadSource(path)
	if err != nil {
		return Result{}, err
	}

	e := patcher.New(content, patcher.WithSyntax(config.Syntax), patcher.WithLogger(config.Logger))
	e.ApplyAll(ops)
	if config.DryRun {
		return Result{Changed: e.Changed(), Changes: e.Changes()}, nil
	}
	return e.Commit(ctx, path, fs.NewBackupWriter())
}

// PatchWithPlan loads a YAML or Markdown plan file and applies it with Patch.
func PatchWithPlan(ctx context.Context, path, planPath string, config Config) (Result, error) {
	p, err := plan.Load(planPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load plan: %w", err)
	}
	if config.Syntax == (Syntax{}) {
		config.Syntax = p.Syntax
	}
	return Patch(ctx, path, p.Ops, config)
}

// Built-in syntaxes.
var (
	PythonSyntax = patcher.PythonSyntax
	GoSyntax     = patcher.GoSyntax
)
