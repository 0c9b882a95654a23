package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteTranscript stores text as <dir>/<sourceID>.txt for the directory
// transcript source.
func WriteTranscript(t testing.TB, dir, sourceID, text string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, sourceID+".txt")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write transcript %s: %v", path, err)
	}
	return path
}

// LongTranscript returns a transcript comfortably above the minimum length.
func LongTranscript(words int) string {
	if words <= 0 {
		words = 100
	}
	return strings.TrimSpace(strings.Repeat("we discussed the ingest cluster ", words))
}
