package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteTable writes raw table text, creating parent directories.
func WriteTable(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadTable returns the raw table text.
func ReadTable(t testing.TB, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// WriteMOL2 writes a multi-molecule file with count records named
// lig0, lig1, ... and returns its path.
func WriteMOL2(t testing.TB, path string, count int) string {
	t.Helper()

	var b strings.Builder
	for i := 0; i < count; i++ {
		fmt.Fprintf(&b, "@<TRIPOS>MOLECULE\nlig%d\n 1 0 0 0 0\nSMALL\nNO_CHARGES\n\n", i)
		fmt.Fprintf(&b, "@<TRIPOS>ATOM\n      1 C1          0.0000    0.0000    %d.0000 C.3     1  LIG1        0.0000\n", i)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
