package textio

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestDecodeUTF8(t *testing.T) {
	text, enc, err := Decode([]byte("设备A\t10.0.0.1"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if enc != UTF8 || text != "设备A\t10.0.0.1" {
		t.Fatalf("got %q (%s)", text, enc)
	}
}

func TestDecodeStripsBOM(t *testing.T) {
	text, _, err := Decode(append([]byte{0xEF, 0xBB, 0xBF}, "abc"...))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if text != "abc" {
		t.Fatalf("expected BOM stripped, got %q", text)
	}
}

func TestDecodeGBKFallback(t *testing.T) {
	encoded, err := simplifiedchinese.GBK.NewEncoder().String("[模板] [http] [high] 10.0.0.1")
	if err != nil {
		t.Fatalf("encode gbk: %v", err)
	}
	text, enc, err := Decode([]byte(encoded))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if enc != GBK {
		t.Fatalf("expected gbk, got %s", enc)
	}
	if text != "[模板] [http] [high] 10.0.0.1" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, _, err := ReadFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	if err := os.WriteFile(path, []byte("line\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	text, enc, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if text != "line\n" || enc != UTF8 {
		t.Fatalf("got %q (%s)", text, enc)
	}
}
