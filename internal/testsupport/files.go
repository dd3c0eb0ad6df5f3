package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WritePDF writes a minimal valid page artifact of the requested size at
// path: a %PDF- header padded out with filler bytes.
func WritePDF(t testing.TB, path string, size int64) {
	t.Helper()

	const header = "%PDF-1.4\n"
	if size < int64(len(header)) {
		size = int64(len(header))
	}
	data := make([]byte, size)
	copy(data, header)
	for i := len(header); i < len(data); i++ {
		data[i] = 0x42
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// PDFBytes returns an in-memory page artifact body of the requested size,
// suitable as an httptest response.
func PDFBytes(size int64) []byte {
	const header = "%PDF-1.4\n"
	if size < int64(len(header)) {
		size = int64(len(header))
	}
	data := make([]byte, size)
	copy(data, header)
	for i := len(header); i < len(data); i++ {
		data[i] = 0x42
	}
	return data
}
