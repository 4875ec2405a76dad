package model

// Summary holds the results of a run for display.
type Summary struct {
	// Path is the patched file, relative to the working directory when possible.
	Path    string
	Changed bool
	DryRun  bool
	// BackupPath is the sibling copy of the pre-patch content.
	BackupPath string
	// ArchiveLocation is where the backup was mirrored, if anywhere.
	ArchiveLocation string
	// Changes are "added: ..." / "modified: ..." lines in application order.
	Changes  []string
	Skipped  []string
	Failed   []string
	Warnings []string
	Diff     string
	Message  string
}
