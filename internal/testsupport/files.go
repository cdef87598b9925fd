package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile drops a stand-in video file at path, creating parent directories
// as needed. The payload repeats a marker so the file is recognizably filler;
// a size <= 0 still writes one byte so verification never sees an empty file.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}

	marker := []byte("mvid")
	payload := bytes.Repeat(marker, int(size)/len(marker)+1)[:size]
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
