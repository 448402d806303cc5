package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTempDir(t *testing.T) {
	dir := TempDir(t)
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("temp dir not created: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("temp dir is not a directory: %s", dir)
	}
}

func TestWriteFile(t *testing.T) {
	dir := TempDir(t)
	path := WriteFile(t, dir, filepath.Join("nested", "scan.txt"), "[a] [b] [c] d\n")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if string(data) != "[a] [b] [c] d\n" {
		t.Fatalf("unexpected fixture content %q", data)
	}
}
