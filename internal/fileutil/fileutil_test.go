package fileutil

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFileReplacesDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ExplanationScene.mp4")
	dst := filepath.Join(dir, "output_animation.mp4")
	if err := os.WriteFile(src, []byte("rendered"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("stale render from a previous attempt"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "rendered" {
		t.Fatalf("content mismatch: got %q", got)
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFile(filepath.Join(dir, "nope"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestCopyFileAtomicReplacesDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "output_animation.mp4")
	dst := filepath.Join(dir, "final_output.mp4")
	if err := os.WriteFile(src, []byte("new video"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileAtomic(src, dst); err != nil {
		t.Fatalf("CopyFileAtomic: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new video" {
		t.Fatalf("unexpected content %q", got)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != publishedMode {
		t.Fatalf("expected mode %o, got %o", publishedMode, info.Mode().Perm())
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected temp file cleaned up, found %d entries", len(entries))
	}
}

func TestCopyFileAtomicMissingSourceLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFileAtomic(filepath.Join(dir, "missing.mp4"), filepath.Join(dir, "out.mp4")); err == nil {
		t.Fatal("expected error for missing source")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected empty dir, found %d entries", len(entries))
	}
}

func TestCopyFileAtomicMissingDirectory(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "video.mp4")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileAtomic(src, filepath.Join(dir, "absent", "final_output.mp4")); err == nil {
		t.Fatal("expected error when destination directory is missing")
	}
}

func TestVerifyCopyDetectsCorruptedBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "copy.mp4")
	source := []byte("muxed video bytes")
	sum := sha256.Sum256(source)

	if err := os.WriteFile(path, source, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := verifyCopy(path, sum[:], int64(len(source))); err != nil {
		t.Fatalf("expected intact copy to verify, got %v", err)
	}

	if err := os.WriteFile(path, []byte("muxed video bytez"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := verifyCopy(path, sum[:], int64(len(source))); err == nil {
		t.Fatal("expected hash mismatch for corrupted copy")
	}

	if err := os.WriteFile(path, source[:5], 0o644); err != nil {
		t.Fatal(err)
	}
	if err := verifyCopy(path, sum[:], int64(len(source))); err == nil {
		t.Fatal("expected size mismatch for truncated copy")
	}
}
