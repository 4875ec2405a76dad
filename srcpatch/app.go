package srcpatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sokinpui/srcpatch/cli"
	"github.com/sokinpui/srcpatch/internal/archive"
	"github.com/sokinpui/srcpatch/internal/diff"
	"github.com/sokinpui/srcpatch/internal/fs"
	"github.com/sokinpui/srcpatch/internal/logging"
	"github.com/sokinpui/srcpatch/internal/metrics"
	"github.com/sokinpui/srcpatch/internal/nvim"
	"github.com/sokinpui/srcpatch/internal/patcher"
	"github.com/sokinpui/srcpatch/internal/plan"
	"github.com/sokinpui/srcpatch/internal/source"
	"github.com/sokinpui/srcpatch/model"
)

// ProgressUpdate is a callback function to report progress.
type ProgressUpdate func(current, total int)

// reloader refreshes editor buffers after a file changed on disk.
type reloader interface {
	ReloadFiles(paths []string, progressCb func(int)) (reloaded, failed []string)
	Close()
}

// locator is implemented by archivers that can name where a backup went.
type locator interface {
	Location(backupPath string) string
}

// App orchestrates the entire application logic.
type App struct {
	cfg              *cli.Config
	logger           *zap.Logger
	metrics          *metrics.Recorder
	sourceProvider   *source.Provider
	archiver         fs.Archiver
	clock            func() time.Time
	writer           *fs.BackupWriter
	dialNvim         func(addr string) (reloader, error)
	progressCallback ProgressUpdate
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error {
	return e.Err
}

// Option configures an App.
type Option func(*App)

// WithLogger replaces the logger built from the verbosity flags.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithSource replaces the stdin/clipboard plan source.
func WithSource(p *source.Provider) Option {
	return func(a *App) { a.sourceProvider = p }
}

// WithArchiver mirrors backups to ar instead of the S3 bucket from the flags.
func WithArchiver(ar fs.Archiver) Option {
	return func(a *App) { a.archiver = ar }
}

// WithClock sets the time source used to name backups.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.clock = now }
}

func withReloader(dial func(addr string) (reloader, error)) Option {
	return func(a *App) { a.dialNvim = dial }
}

func dialNvim(addr string) (reloader, error) {
	return nvim.Dial(addr)
}

// New creates a new App instance.
func New(cfg *cli.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:      cfg,
		metrics:  metrics.New(),
		dialNvim: dialNvim,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		logger, err := logging.New(cfg.Verbose, cfg.LogJSON)
		if err != nil {
			return nil, err
		}
		a.logger = logger
	}
	if a.sourceProvider == nil {
		a.sourceProvider = source.New()
	}
	if a.archiver == nil && cfg.ArchiveBucket != "" {
		ar, err := archive.New(context.Background(), archive.FromEnv(archive.Config{
			Bucket: cfg.ArchiveBucket,
			Prefix: cfg.ArchivePrefix,
		}))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize archive: %w", err)
		}
		a.archiver = ar
	}

	var wopts []fs.WriterOption
	if a.archiver != nil {
		wopts = append(wopts, fs.WithArchiver(a.archiver))
	}
	if a.clock != nil {
		wopts = append(wopts, fs.WithClock(a.clock))
	}
	a.writer = fs.NewBackupWriter(wopts...)
	return a, nil
}

// SetProgressCallback sets a function to be called for progress updates.
func (a *App) SetProgressCallback(cb ProgressUpdate) {
	a.progressCallback = cb
}

// Close flushes the logger.
func (a *App) Close() {
	_ = a.logger.Sync()
}

// Metrics exposes the counters collected during Execute.
func (a *App) Metrics() *metrics.Recorder {
	return a.metrics
}

// Execute executes the main application logic based on parsed flags.
func (a *App) Execute(ctx context.Context) (summary model.Summary, err error) {
	// Centralized panic recovery.
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	switch {
	case a.cfg.ListPresets:
		return a.listPresets(), nil
	case a.cfg.Undo:
		summary, err = a.undo(ctx)
	default:
		summary, err = a.patch(ctx)
	}
	a.writeMetrics(&summary)
	return summary, err
}

func (a *App) listPresets() model.Summary {
	var b strings.Builder
	b.WriteString("Presets:")
	for _, name := range plan.Presets() {
		b.WriteString("\n  " + name)
	}
	return model.Summary{Message: b.String()}
}

func (a *App) loadPlan() (*plan.Plan, error) {
	switch {
	case a.cfg.PlanFile != "":
		return plan.Load(a.cfg.PlanFile)
	case a.cfg.Preset != "":
		return plan.Preset(a.cfg.Preset)
	default:
		name, content, err := a.sourceProvider.GetContent()
		if err != nil {
			return nil, err
		}
		return plan.Parse(name, []byte(content))
	}
}

// patch reads the target, applies the plan and commits the result. Only an
// unreadable target, an unusable plan or a failed commit return an error.
func (a *App) patch(ctx context.Context) (model.Summary, error) {
	target := a.cfg.Target
	content, err := fs.ReadSource(target)
	if err != nil {
		return model.Summary{}, err
	}

	p, err := a.loadPlan()
	if err != nil {
		return model.Summary{}, fmt.Errorf("failed to load plan: %w", err)
	}
	a.logger.Debug("plan loaded", zap.String("plan", p.Name), zap.Int("operations", len(p.Ops)))

	e := patcher.New(content, patcher.WithSyntax(p.Syntax), patcher.WithLogger(a.logger))
	total := len(p.Ops)
	a.reportProgress(0, total)
	for i, op := range p.Ops {
		e.Apply(op)
		a.reportProgress(i+1, total)
	}
	a.metrics.ObserveResults(e.Results())

	summary := model.Summary{
		Path:     relative(target),
		Changed:  e.Changed(),
		DryRun:   a.cfg.DryRun,
		Warnings: p.Warnings,
	}
	for _, c := range e.Changes() {
		summary.Changes = append(summary.Changes, c.String())
	}
	for _, r := range e.Results() {
		switch r.Outcome {
		case patcher.Skipped:
			summary.Skipped = append(summary.Skipped, r.Op+": "+r.Reason)
		case patcher.Failed:
			summary.Failed = append(summary.Failed, r.Err.Error())
		}
	}
	if a.cfg.Diff {
		summary.Diff, _ = diff.Unified(filepath.Base(target), e.Origin(), e.Text(), diff.DefaultContext)
	}

	switch {
	case !summary.Changed:
		a.metrics.ObserveCommit("unchanged")
		return summary, nil
	case a.cfg.DryRun:
		a.metrics.ObserveCommit("dry_run")
		return summary, nil
	}

	res, err := e.Commit(ctx, target, a.writer)
	if err != nil {
		a.metrics.ObserveCommit("error")
		return summary, err
	}
	a.metrics.ObserveCommit("written")
	summary.BackupPath = relative(res.BackupPath)
	if l, ok := a.archiver.(locator); ok {
		summary.ArchiveLocation = l.Location(res.BackupPath)
	}
	a.reload(target, &summary)
	return summary, nil
}

// undo restores the newest backup. Running it twice returns to the patched
// version, since the restore backs up what it replaces.
func (a *App) undo(ctx context.Context) (model.Summary, error) {
	target := a.cfg.Target
	res, err := a.writer.Restore(ctx, target)
	if errors.Is(err, fs.ErrNoBackup) {
		return model.Summary{Path: relative(target), Message: "No backup to restore."}, nil
	}
	if err != nil {
		return model.Summary{}, err
	}

	summary := model.Summary{Path: relative(target), Changed: res.Changed}
	if !res.Changed {
		summary.Message = fmt.Sprintf("%s already matches %s", summary.Path, relative(res.From))
		return summary, nil
	}
	a.metrics.ObserveCommit("restored")
	summary.Message = fmt.Sprintf("Restored %s from %s", summary.Path, relative(res.From))
	summary.BackupPath = relative(res.Backup)
	if l, ok := a.archiver.(locator); ok {
		summary.ArchiveLocation = l.Location(res.Backup)
	}
	a.reload(target, &summary)
	return summary, nil
}

// reload asks a running Neovim to re-read target. Failures are warnings.
func (a *App) reload(target string, summary *model.Summary) {
	if !a.cfg.Nvim {
		return
	}
	manager, err := a.dialNvim(a.cfg.NvimAddr)
	if err != nil {
		summary.Warnings = append(summary.Warnings, err.Error())
		return
	}
	defer manager.Close()

	if _, failed := manager.ReloadFiles([]string{target}, nil); len(failed) > 0 {
		summary.Warnings = append(summary.Warnings, "could not reload "+strings.Join(failed, ", ")+" in nvim")
	}
}

func (a *App) writeMetrics(summary *model.Summary) {
	if a.cfg.MetricsFile == "" {
		return
	}
	if err := a.metrics.WriteFile(a.cfg.MetricsFile); err != nil {
		a.logger.Warn("metrics not written", zap.Error(err))
		summary.Warnings = append(summary.Warnings, err.Error())
	}
}

func (a *App) reportProgress(current, total int) {
	if a.progressCallback != nil {
		a.progressCallback(current, total)
	}
}

// relative converts an absolute path to be relative to the working directory
// for cleaner display.
func relative(path string) string {
	if path == "" || !filepath.IsAbs(path) {
		return path
	}
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
