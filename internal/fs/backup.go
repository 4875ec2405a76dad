package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout formats the suffix of backup files, e.g. main.py.bak-20250905192517.
const TimestampLayout = "20060102150405"

const (
	backupMarker      = ".bak-"
	maxNameCollisions = 1000
)

// ErrNoBackup is returned by Restore when the file has no sibling backups.
var ErrNoBackup = errors.New("no backup found")

// Archiver receives a copy of every backup after it is written locally and
// before the live file is overwritten.
type Archiver interface {
	Archive(ctx context.Context, backupPath string, content []byte) error
}

// BackupWriter commits patched buffers: the original content is saved to a
// timestamped sibling first, then the live file is replaced.
type BackupWriter struct {
	now      func() time.Time
	archiver Archiver
}

// WriterOption configures a BackupWriter.
type WriterOption func(*BackupWriter)

// WithClock overrides the time source used for backup names.
func WithClock(now func() time.Time) WriterOption {
	return func(w *BackupWriter) { w.now = now }
}

// WithArchiver mirrors each backup to a.
func WithArchiver(a Archiver) WriterOption {
	return func(w *BackupWriter) { w.archiver = a }
}

// NewBackupWriter creates a BackupWriter using local time.
func NewBackupWriter(opts ...WriterOption) *BackupWriter {
	w := &BackupWriter{now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// BackupName returns the backup path for path at t.
func BackupName(path string, t time.Time) string {
	return path + backupMarker + t.Format(TimestampLayout)
}

// Commit saves origin next to path and then overwrites path with final.
// The live file is not touched unless the backup (and archive, if configured)
// succeeded.
//
// A symlinked path keeps its link: the backup sits next to the link, the
// file it points to receives final.
func (w *BackupWriter) Commit(ctx context.Context, path, origin, final string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	perm := info.Mode().Perm()

	backup, err := w.writeBackup(path, []byte(origin), perm)
	if err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	if w.archiver != nil {
		if err := w.archiver.Archive(ctx, backup, []byte(origin)); err != nil {
			return backup, fmt.Errorf("archive backup %s: %w", backup, err)
		}
	}
	if err := writeAtomic(resolved, []byte(final), perm); err != nil {
		return backup, fmt.Errorf("overwrite %s: %w", path, err)
	}
	return backup, nil
}

// writeBackup creates the backup exclusively. Two commits within the same
// second get -1, -2, ... appended instead of clobbering each other.
func (w *BackupWriter) writeBackup(path string, content []byte, perm os.FileMode) (string, error) {
	base := BackupName(path, w.now())
	for i := 0; i < maxNameCollisions; i++ {
		name := base
		if i > 0 {
			name = base + "-" + strconv.Itoa(i)
		}
		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
		if errors.Is(err, iofs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(content); err != nil {
			_ = f.Close()
			_ = os.Remove(name)
			return "", err
		}
		if err := f.Sync(); err != nil {
			_ = f.Close()
			_ = os.Remove(name)
			return "", err
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(name)
			return "", err
		}
		return name, nil
	}
	return "", fmt.Errorf("too many backups named %s", base)
}

type backupEntry struct {
	path  string
	stamp string
	seq   int
}

// Backups lists the sibling backups of path, newest first.
func Backups(path string) ([]string, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	prefix := base + backupMarker
	var found []backupEntry
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		stamp, seq, ok := parseSuffix(strings.TrimPrefix(name, prefix))
		if !ok {
			continue
		}
		found = append(found, backupEntry{path: filepath.Join(dir, name), stamp: stamp, seq: seq})
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].stamp != found[j].stamp {
			return found[i].stamp > found[j].stamp
		}
		return found[i].seq > found[j].seq
	})
	out := make([]string, len(found))
	for i, b := range found {
		out[i] = b.path
	}
	return out, nil
}

func parseSuffix(s string) (stamp string, seq int, ok bool) {
	stamp, rest, hasSeq := strings.Cut(s, "-")
	if _, err := time.Parse(TimestampLayout, stamp); err != nil || len(stamp) != len(TimestampLayout) {
		return "", 0, false
	}
	if !hasSeq {
		return stamp, 0, true
	}
	seq, err := strconv.Atoi(rest)
	if err != nil || seq < 1 {
		return "", 0, false
	}
	return stamp, seq, true
}

// RestoreResult describes what Restore did.
type RestoreResult struct {
	// From is the backup that was restored.
	From string
	// Backup holds the content that was live before the restore.
	Backup string
	// Changed is false when the live file already matched the backup.
	Changed bool
}

// Restore puts the newest backup of path back in place. The replaced content
// is itself backed up, so restoring twice in a row returns to the patched
// version.
func (w *BackupWriter) Restore(ctx context.Context, path string) (RestoreResult, error) {
	backups, err := Backups(path)
	if err != nil {
		return RestoreResult{}, err
	}
	if len(backups) == 0 {
		return RestoreResult{}, fmt.Errorf("%s: %w", path, ErrNoBackup)
	}
	from := backups[0]

	saved, err := os.ReadFile(from)
	if err != nil {
		return RestoreResult{}, fmt.Errorf("read backup: %w", err)
	}
	current, err := ReadSource(path)
	if err != nil {
		return RestoreResult{}, err
	}
	res := RestoreResult{From: from}
	if current == string(saved) {
		return res, nil
	}

	backup, err := w.Commit(ctx, path, current, string(saved))
	if err != nil {
		return res, err
	}
	res.Backup = backup
	res.Changed = true
	return res, nil
}
