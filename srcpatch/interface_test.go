package srcpatch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sokinpui/srcpatch/srcpatch"
)

func TestLibraryInterface(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	original := "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"hi\")\n}\n"
	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	ops := []srcpatch.Op{
		srcpatch.EnsureImport{Line: `import "strings"`},
		srcpatch.EnsureHelper{Name: "shout", Code: "func shout(s string) string {\n\treturn strings.ToUpper(s)\n}"},
		srcpatch.ReplaceBlock{Start: `fmt\.Println\("hi"`, End: `\)`, Replacement: `fmt.Println(shout("hi"))`, Label: "shout greeting"},
	}
	ctx := context.Background()

	t.Run("DryRun leaves the file alone", func(t *testing.T) {
		res, err := srcpatch.Patch(ctx, path, ops, srcpatch.Config{DryRun: true, Syntax: srcpatch.GoSyntax})
		if err != nil {
			t.Fatalf("Patch failed: %v", err)
		}
		if !res.Changed || len(res.Changes) != 3 {
			t.Errorf("Expected 3 changes, got %+v", res)
		}
		if res.BackupPath != "" {
			t.Errorf("Dry run wrote a backup: %s", res.BackupPath)
		}
		got, _ := os.ReadFile(path)
		if string(got) != original {
			t.Errorf("Dry run modified the file:\n%s", got)
		}
	})

	t.Run("Patch writes and backs up", func(t *testing.T) {
		res, err := srcpatch.Patch(ctx, path, ops, srcpatch.Config{Syntax: srcpatch.GoSyntax})
		if err != nil {
			t.Fatalf("Patch failed: %v", err)
		}
		backup, err := os.ReadFile(res.BackupPath)
		if err != nil {
			t.Fatalf("Failed to read backup: %v", err)
		}
		if string(backup) != original {
			t.Errorf("Backup content mismatch:\n%s", backup)
		}
		got, _ := os.ReadFile(path)
		want := "package main\n\nimport \"fmt\"\nimport \"strings\"\n\n\nfunc shout(s string) string {\n\treturn strings.ToUpper(s)\n}\n\nfunc main() {\n\tfmt.Println(shout(\"hi\"))\n}\n"
		if string(got) != want {
			t.Errorf("Unexpected content:\n%s", got)
		}
	})

	t.Run("Second Patch is a no-op", func(t *testing.T) {
		res, err := srcpatch.Patch(ctx, path, ops, srcpatch.Config{Syntax: srcpatch.GoSyntax})
		if err != nil {
			t.Fatalf("Patch failed: %v", err)
		}
		if res.Changed || res.BackupPath != "" {
			t.Errorf("Expected no changes, got %+v", res)
		}
	})

	t.Run("PatchWithPlan reads the plan language", func(t *testing.T) {
		planPath := filepath.Join(dir, "plan.yaml")
		plan := "language: go\noperations:\n  - import: import \"os\"\n"
		if err := os.WriteFile(planPath, []byte(plan), 0o644); err != nil {
			t.Fatalf("Failed to write plan: %v", err)
		}
		res, err := srcpatch.PatchWithPlan(ctx, path, planPath, srcpatch.Config{DryRun: true})
		if err != nil {
			t.Fatalf("PatchWithPlan failed: %v", err)
		}
		if len(res.Changes) != 1 || res.Changes[0].String() != `added: import import "os"` {
			t.Errorf("Unexpected changes: %+v", res.Changes)
		}
	})
}
