package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"

	"github.com/sokinpui/srcpatch/model"
)

func capture(t *testing.T) (out, errOut *bytes.Buffer) {
	t.Helper()
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}
	prevOut, prevErr, prevNoColor := Out, Err, color.NoColor
	Out, Err, color.NoColor = out, errOut, true
	t.Cleanup(func() { Out, Err, color.NoColor = prevOut, prevErr, prevNoColor })
	return out, errOut
}

func TestPrintSummaryPatched(t *testing.T) {
	out, _ := capture(t)

	PrintSummary(model.Summary{
		Path:       "main.py",
		Changed:    true,
		BackupPath: "main.py.bak-20250905192517",
		Changes:    []string{"added: import import re", "modified: Summary dict"},
		Skipped:    []string{"seed Summary headers: anchor not found"},
	}, false)

	want := "Patched main.py\n" +
		"Backup: main.py.bak-20250905192517\n" +
		"Changes:\n" +
		" - added: import import re\n" +
		" - modified: Summary dict\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestPrintSummaryNoChanges(t *testing.T) {
	out, _ := capture(t)

	PrintSummary(model.Summary{
		Path:    "main.py",
		Skipped: []string{"import re: already imported"},
		Failed:  []string{"insert before (: invalid pattern"},
	}, true)

	got := out.String()
	for _, s := range []string{
		"No changes made (already patched?)\n",
		"Skipped 1 operation(s):\n - import re: already imported\n",
		"Failed 1 operation(s):\n - insert before (: invalid pattern\n",
	} {
		if !strings.Contains(got, s) {
			t.Errorf("report missing %q:\n%s", s, got)
		}
	}
}

func TestPrintSummaryWarningsAndDryRun(t *testing.T) {
	out, errOut := capture(t)

	PrintSummary(model.Summary{
		Path:     "main.py",
		Changed:  true,
		DryRun:   true,
		Warnings: []string{"block 3: ignoring code block"},
		Diff:     "--- a/main.py\n+++ b/main.py\n@@ -1,1 +1,2 @@\n+import re\n x = 1\n",
	}, false)

	if !strings.HasPrefix(out.String(), "--- a/main.py\n") {
		t.Errorf("diff not printed first:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Would patch main.py (dry run)\n") {
		t.Errorf("dry-run line missing:\n%s", out.String())
	}
	if !strings.Contains(errOut.String(), "warning: block 3") {
		t.Errorf("warning not on stderr: %q", errOut.String())
	}
}
