package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func pdfBytes(size int) []byte {
	data := make([]byte, size)
	copy(data, "%PDF-1.4\n")
	for i := 9; i < size; i++ {
		data[i] = 0x42
	}
	return data
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "progress.json")

	if err := WriteFileAtomic(path, []byte(`{"a":1}`), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Fatalf("content = %q", data)
	}

	// Overwrite replaces content and leaves no temp files.
	if err := WriteFileAtomic(path, []byte(`{"a":2}`), 0o644); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != `{"a":2}` {
		t.Fatalf("overwrite content = %q", data)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.pdf")
	dst := filepath.Join(dir, "dst.pdf")
	want := pdfBytes(1200)
	if err := os.WriteFile(src, want, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(want) {
		t.Fatal("copied content differs")
	}
}

func TestValidPDF(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	good := write("good.pdf", pdfBytes(2000))
	if !ValidPDF(good, 0) {
		t.Fatal("valid artifact rejected")
	}
	if !ValidPDF(good, 2000) {
		t.Fatal("matching expected size rejected")
	}
	if ValidPDF(good, 1999) {
		t.Fatal("size mismatch accepted")
	}

	if ValidPDF(filepath.Join(dir, "missing.pdf"), 0) {
		t.Fatal("missing file accepted")
	}
	if ValidPDF(write("tiny.pdf", pdfBytes(100)), 0) {
		t.Fatal("undersized artifact accepted")
	}

	html := append([]byte("<html>not found</html>"), make([]byte, 2000)...)
	if ValidPDF(write("error-page.pdf", html), 0) {
		t.Fatal("HTML error page accepted")
	}
}
