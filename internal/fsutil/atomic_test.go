package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestTempPathReplacesExtension(t *testing.T) {
	cases := map[string]string{
		"content/my-post/index.md": "content/my-post/index.tmp",
		"_index.json":              "_index.tmp",
		"out/noext":                "out/noext.tmp",
	}
	for input, want := range cases {
		if got := TempPath(input); got != want {
			t.Fatalf("TempPath(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestWriteFileAtomicReplacesTarget(t *testing.T) {
	target := filepath.Join(t.TempDir(), "index.md")
	if err := os.WriteFile(target, []byte("old"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := WriteFileAtomic(target, []byte("new"), 0, nil); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil || string(data) != "new" {
		t.Fatalf("expected new content, got %q (%v)", data, err)
	}
	info, _ := os.Stat(target)
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected existing mode to be kept, got %v", info.Mode().Perm())
	}
	if _, err := os.Stat(TempPath(target)); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be consumed by rename, got %v", err)
	}
}

func TestWriteFileAtomicLeavesTempOnRenameFailure(t *testing.T) {
	target := filepath.Join(t.TempDir(), "index.md")
	if err := os.WriteFile(target, []byte("original"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	renameErr := errors.New("injected")
	err := WriteFileAtomic(target, []byte("replacement"), 0, func(string, string) error { return renameErr })
	if !errors.Is(err, renameErr) {
		t.Fatalf("expected injected error, got %v", err)
	}

	data, _ := os.ReadFile(target)
	if string(data) != "original" {
		t.Fatalf("target modified: %q", data)
	}
	tmp, err := os.ReadFile(TempPath(target))
	if err != nil || string(tmp) != "replacement" {
		t.Fatalf("expected temp file to remain with new content, got %q (%v)", tmp, err)
	}
}
