package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills path with size bytes of a repeating pattern, creating parent
// directories. A size <= 0 writes a single byte so the file counts as having
// local content.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	writeBytes(t, path, bytes.Repeat([]byte{0x42}, int(size)))
}

// Touch creates an empty file at path. Libraries treat zero-byte files as
// items whose bytes are not available locally.
func Touch(t testing.TB, path string) {
	t.Helper()
	writeBytes(t, path, nil)
}

func writeBytes(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
