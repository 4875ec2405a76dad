package srcpatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sokinpui/srcpatch/cli"
	"github.com/sokinpui/srcpatch/internal/source"
)

const service = "import os\n\napp = FastAPI()\n\ndef handler():\n    return 1\n"

const yamlPlan = `operations:
  - import: import re
  - helper:
      name: _slug
      code: |
        def _slug(text):
            return re.sub(r"\W+", "-", text)
  - replace_block:
      label: handler body
      start: 'return 1'
      end: '$'
      replacement: return 2
`

var clock = func() time.Time { return time.Date(2025, 9, 5, 19, 25, 17, 0, time.Local) }

type fakeArchiver struct {
	archived []string
	err      error
}

func (f *fakeArchiver) Archive(_ context.Context, backupPath string, _ []byte) error {
	f.archived = append(f.archived, backupPath)
	return f.err
}

func (f *fakeArchiver) Location(backupPath string) string {
	return "s3://backups/" + filepath.Base(backupPath)
}

type fakeReloader struct {
	failed []string
	paths  []string
}

func (f *fakeReloader) ReloadFiles(paths []string, _ func(int)) ([]string, []string) {
	f.paths = append(f.paths, paths...)
	return nil, f.failed
}

func (f *fakeReloader) Close() {}

func setup(t *testing.T) (target, planFile string) {
	t.Helper()
	dir := t.TempDir()
	target = filepath.Join(dir, "main.py")
	planFile = filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(target, []byte(service), 0o644))
	require.NoError(t, os.WriteFile(planFile, []byte(yamlPlan), 0o644))
	return target, planFile
}

func newApp(t *testing.T, cfg *cli.Config, opts ...Option) *App {
	t.Helper()
	opts = append([]Option{WithLogger(zap.NewNop()), WithClock(clock)}, opts...)
	app, err := New(cfg, opts...)
	require.NoError(t, err)
	return app
}

func read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestExecutePatchesAndBacksUp(t *testing.T) {
	target, planFile := setup(t)
	ar := &fakeArchiver{}
	app := newApp(t, &cli.Config{Target: target, PlanFile: planFile}, WithArchiver(ar))

	var progress [][2]int
	app.SetProgressCallback(func(current, total int) {
		progress = append(progress, [2]int{current, total})
	})

	summary, err := app.Execute(context.Background())
	require.NoError(t, err)

	assert.True(t, summary.Changed)
	assert.Equal(t, []string{
		"added: import import re",
		"added: helper _slug",
		"modified: handler body",
	}, summary.Changes)
	assert.Empty(t, summary.Failed)
	assert.Equal(t, [][2]int{{0, 3}, {1, 3}, {2, 3}, {3, 3}}, progress)

	got := read(t, target)
	assert.Contains(t, got, "import re\n")
	assert.Contains(t, got, "def _slug(text):")
	assert.Contains(t, got, "    return 2\n")

	backup := target + ".bak-20250905192517"
	assert.Equal(t, backup, summary.BackupPath)
	assert.Equal(t, service, read(t, backup))
	assert.Equal(t, []string{backup}, ar.archived)
	assert.Equal(t, "s3://backups/main.py.bak-20250905192517", summary.ArchiveLocation)

	// A second run finds everything in place and writes nothing.
	again, err := newApp(t, &cli.Config{Target: target, PlanFile: planFile}, WithArchiver(ar)).Execute(context.Background())
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Empty(t, again.Changes)
	assert.Empty(t, again.BackupPath)
	assert.Len(t, ar.archived, 1)
}

func TestExecuteDryRunWithDiff(t *testing.T) {
	target, planFile := setup(t)
	app := newApp(t, &cli.Config{Target: target, PlanFile: planFile, DryRun: true, Diff: true})

	summary, err := app.Execute(context.Background())
	require.NoError(t, err)

	assert.True(t, summary.Changed)
	assert.True(t, summary.DryRun)
	assert.Empty(t, summary.BackupPath)
	assert.Equal(t, service, read(t, target))
	assert.Contains(t, summary.Diff, "--- a/main.py")
	assert.Contains(t, summary.Diff, "+import re")
	assert.Contains(t, summary.Diff, "-    return 1")

	matches, err := filepath.Glob(target + ".bak-*")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestExecuteReportsSkippedAndFailed(t *testing.T) {
	target, _ := setup(t)
	md := "Insert before `def handler` - marker:\n\n```python\n# marker\n```\n\n" +
		"Replace `[` `x` - broken:\n\n```python\ny\n```\n\n" +
		"Import:\n\n```python\nimport os\n```\n"
	src := source.New(source.WithStdin(strings.NewReader(md)))
	app := newApp(t, &cli.Config{Target: target, Verbose: true}, WithSource(src))

	summary, err := app.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"added: marker"}, summary.Changes)
	require.Len(t, summary.Failed, 1)
	assert.Contains(t, summary.Failed[0], "broken")
	assert.Equal(t, []string{"import import os: already imported"}, summary.Skipped)
	assert.Contains(t, read(t, target), "# marker\ndef handler")
}

func TestExecuteUndo(t *testing.T) {
	target, planFile := setup(t)
	ctx := context.Background()

	summary, err := newApp(t, &cli.Config{Target: target, Undo: true}).Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, "No backup to restore.", summary.Message)

	_, err = newApp(t, &cli.Config{Target: target, PlanFile: planFile}).Execute(ctx)
	require.NoError(t, err)
	require.NotEqual(t, service, read(t, target))

	tick := clock()
	later := WithClock(func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	})
	summary, err = newApp(t, &cli.Config{Target: target, Undo: true}, later).Execute(ctx)
	require.NoError(t, err)
	assert.True(t, summary.Changed)
	assert.True(t, strings.HasPrefix(summary.Message, "Restored "))
	assert.Equal(t, service, read(t, target))
}

func TestExecuteErrors(t *testing.T) {
	target, _ := setup(t)
	ctx := context.Background()

	_, err := newApp(t, &cli.Config{Target: target + ".missing", PlanFile: "x.yaml"}).Execute(ctx)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = newApp(t, &cli.Config{Target: target, Preset: "nope"}).Execute(ctx)
	assert.ErrorContains(t, err, "failed to load plan")
	assert.Equal(t, service, read(t, target))

	boom := errors.New("bucket unavailable")
	_, err = newApp(t, &cli.Config{Target: target, Preset: "save-bom"}, WithArchiver(&fakeArchiver{err: boom})).Execute(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, service, read(t, target))
}

func TestExecuteReloadWarning(t *testing.T) {
	target, planFile := setup(t)
	rl := &fakeReloader{failed: []string{target}}
	dial := withReloader(func(string) (reloader, error) { return rl, nil })
	app := newApp(t, &cli.Config{Target: target, PlanFile: planFile, Nvim: true}, dial)

	summary, err := app.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{target}, rl.paths)
	require.Len(t, summary.Warnings, 1)
	assert.Contains(t, summary.Warnings[0], "could not reload")

	noServer := withReloader(func(string) (reloader, error) { return nil, errors.New("no nvim server") })
	summary, err = newApp(t, &cli.Config{Target: target, Undo: true, Nvim: true}, noServer).Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"no nvim server"}, summary.Warnings)
}

func TestExecuteListPresets(t *testing.T) {
	summary, err := newApp(t, &cli.Config{ListPresets: true}).Execute(context.Background())
	require.NoError(t, err)
	assert.Contains(t, summary.Message, "save-bom")
}

func TestExecuteWritesMetrics(t *testing.T) {
	target, planFile := setup(t)
	metricsFile := filepath.Join(t.TempDir(), "srcpatch.prom")
	app := newApp(t, &cli.Config{Target: target, PlanFile: planFile, MetricsFile: metricsFile})

	_, err := app.Execute(context.Background())
	require.NoError(t, err)

	text := read(t, metricsFile)
	assert.Contains(t, text, `srcpatch_commits_total{result="written"} 1`)
	assert.Contains(t, text, `srcpatch_operations_total{kind="import",outcome="applied"} 1`)
}

func TestExecuteRecoversPanic(t *testing.T) {
	target, _ := setup(t)
	src := source.New(source.WithStdin(panicReader{}))
	_, err := newApp(t, &cli.Config{Target: target}, WithSource(src)).Execute(context.Background())

	var detailed *DetailedError
	require.ErrorAs(t, err, &detailed)
	assert.Contains(t, detailed.Error(), "internal panic")
	assert.NotEmpty(t, detailed.Stack)
}

type panicReader struct{}

func (panicReader) Read([]byte) (int, error) { panic("reader exploded") }
