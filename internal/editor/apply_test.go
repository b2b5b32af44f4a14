package editor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jarvis-nvidia/dm/internal/model"
)

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.go")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readDoc(t *testing.T, path string) string {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(raw)
}

func TestApplyAnchorReplacesExactlyOnce(t *testing.T) {
	path := writeDoc(t, "a := compute()\nuse(a)\n")

	a := &Applier{}
	err := a.Apply(model.FixEdit{
		File:            path,
		AnchorText:      "a := compute()",
		ReplacementText: "a, err := compute()\nif err != nil {\n\treturn err\n}",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := "a, err := compute()\nif err != nil {\n\treturn err\n}\nuse(a)\n"
	if got := readDoc(t, path); got != want {
		t.Errorf("document = %q, want %q", got, want)
	}
}

func TestApplyAnchorNotFound(t *testing.T) {
	original := "line one\nline two\n"
	path := writeDoc(t, original)

	a := &Applier{}
	err := a.Apply(model.FixEdit{File: path, AnchorText: "missing", ReplacementText: "x"})
	if !errors.Is(err, ErrAnchorNotFound) {
		t.Fatalf("expected ErrAnchorNotFound, got %v", err)
	}
	if got := readDoc(t, path); got != original {
		t.Error("document modified on failed apply")
	}
}

func TestApplyAnchorAmbiguous(t *testing.T) {
	original := "x = 1\nx = 1\n"
	path := writeDoc(t, original)

	a := &Applier{}
	err := a.Apply(model.FixEdit{File: path, AnchorText: "x = 1", ReplacementText: "x = 2"})
	if !errors.Is(err, ErrAnchorAmbiguous) {
		t.Fatalf("expected ErrAnchorAmbiguous, got %v", err)
	}
	if got := readDoc(t, path); got != original {
		t.Error("document modified on ambiguous anchor")
	}
}

func TestApplyLineMode(t *testing.T) {
	path := writeDoc(t, "one\ntwo\nthree\n")

	a := &Applier{}
	if err := a.Apply(model.FixEdit{File: path, Line: 2, ReplacementText: "TWO"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := readDoc(t, path); got != "one\nTWO\nthree\n" {
		t.Errorf("document = %q", got)
	}
}

func TestApplyLineOutOfRange(t *testing.T) {
	path := writeDoc(t, "only\n")

	a := &Applier{}
	if err := a.Apply(model.FixEdit{File: path, Line: 99, ReplacementText: "x"}); err == nil {
		t.Error("expected error for out-of-range line")
	}
}

func TestApplyPreservesFileMode(t *testing.T) {
	path := writeDoc(t, "#!/bin/sh\necho hi\n")
	if err := os.Chmod(path, 0o755); err != nil {
		t.Fatal(err)
	}

	a := &Applier{}
	if err := a.Apply(model.FixEdit{File: path, AnchorText: "echo hi", ReplacementText: "echo bye"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("mode = %v, want 0755", info.Mode().Perm())
	}
}
