package patcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Committer persists a patched buffer. Implementations must make the origin
// durable before the live file is overwritten.
type Committer interface {
	Commit(ctx context.Context, path, origin, final string) (backupPath string, err error)
}

// CommitResult is returned by Engine.Commit.
type CommitResult struct {
	Changed    bool
	BackupPath string
	Changes    []ChangeRecord
}

// Engine applies operations to an in-memory copy of a file. The origin
// snapshot never changes; only the working buffer does.
type Engine struct {
	origin  string
	text    string
	syntax  Syntax
	changes []ChangeRecord
	results []Result
	logger  *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSyntax overrides the import/definition/bootstrap patterns. Empty fields
// keep the PythonSyntax defaults.
func WithSyntax(s Syntax) Option {
	return func(e *Engine) { e.syntax = s.Merge(PythonSyntax) }
}

// WithLogger sets the logger that receives one entry per applied operation.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an engine over origin.
func New(origin string, opts ...Option) *Engine {
	e := &Engine{
		origin: origin,
		text:   origin,
		syntax: PythonSyntax,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply runs a single operation against the working buffer. It never aborts
// the run: a broken operation is recorded as Failed and leaves the buffer as is.
func (e *Engine) Apply(op Op) Result {
	res := Result{Kind: op.Kind(), Op: op.Describe()}

	st, err := op.apply(e.text, e.syntax)
	switch {
	case err != nil:
		res.Outcome = Failed
		res.Err = fmt.Errorf("%s: %w", res.Op, err)
	case st.change == nil:
		res.Outcome = Skipped
		res.Reason = st.reason
	default:
		e.text = st.text
		e.changes = append(e.changes, *st.change)
		res.Outcome = Applied
		res.Change = st.change
	}

	e.results = append(e.results, res)
	e.log(res)
	return res
}

// ApplyAll applies ops in order.
func (e *Engine) ApplyAll(ops []Op) []Result {
	out := make([]Result, 0, len(ops))
	for _, op := range ops {
		out = append(out, e.Apply(op))
	}
	return out
}

func (e *Engine) log(res Result) {
	fields := []zap.Field{
		zap.String("kind", res.Kind),
		zap.String("op", res.Op),
		zap.String("outcome", res.Outcome.String()),
	}
	switch res.Outcome {
	case Failed:
		e.logger.Warn("operation failed", append(fields, zap.Error(res.Err))...)
	case Skipped:
		e.logger.Debug("operation skipped", append(fields, zap.String("reason", res.Reason))...)
	default:
		e.logger.Debug("operation applied", fields...)
	}
}

// Text returns the working buffer.
func (e *Engine) Text() string { return e.text }

// Origin returns the unmodified snapshot.
func (e *Engine) Origin() string { return e.origin }

// Changed reports whether the working buffer differs from the origin.
func (e *Engine) Changed() bool { return e.text != e.origin }

// Changes returns the change log in application order.
func (e *Engine) Changes() []ChangeRecord {
	out := make([]ChangeRecord, len(e.changes))
	copy(out, e.changes)
	return out
}

// Results returns one Result per applied operation.
func (e *Engine) Results() []Result {
	out := make([]Result, len(e.results))
	copy(out, e.results)
	return out
}

// Commit writes the buffer to path through c when it differs from the origin.
// An unchanged buffer never touches the filesystem.
func (e *Engine) Commit(ctx context.Context, path string, c Committer) (CommitResult, error) {
	res := CommitResult{Changes: e.Changes()}
	if !e.Changed() {
		e.logger.Debug("no changes", zap.String("path", path))
		return res, nil
	}
	backup, err := c.Commit(ctx, path, e.origin, e.text)
	if err != nil {
		return res, fmt.Errorf("commit %s: %w", path, err)
	}
	res.Changed = true
	res.BackupPath = backup
	e.logger.Info("patched",
		zap.String("path", path),
		zap.String("backup", backup),
		zap.Int("changes", len(e.changes)))
	return res, nil
}
