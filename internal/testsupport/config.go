package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"meetflow/internal/config"
)

// ConfigOption adjusts a test config after the temp layout is in place.
type ConfigOption func(t testing.TB, cfg *config.Config)

// NewConfig returns config.Default() rooted in a fresh temp directory with
// an ephemeral API port and a placeholder LLM key.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Paths.DiagramDir = filepath.Join(root, "diagrams")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Transcripts.Dir = filepath.Join(root, "transcripts")
	cfg.LLM.APIKey = "test"
	for _, opt := range opts {
		opt(t, &cfg)
	}
	return &cfg
}

// BaseDir is the temp root NewConfig created for cfg.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

// WithLLMKey sets the analyzer API key; pass "" to simulate a missing key.
func WithLLMKey(key string) ConfigOption {
	return func(_ testing.TB, cfg *config.Config) { cfg.LLM.APIKey = key }
}

// WithStubbedBinaries puts no-op executables named after names (mmdc by
// default) first on PATH for the rest of the test.
func WithStubbedBinaries(names ...string) ConfigOption {
	if len(names) == 0 {
		names = []string{"mmdc"}
	}
	return func(t testing.TB, cfg *config.Config) {
		bin := filepath.Join(BaseDir(cfg), "bin")
		if err := os.MkdirAll(bin, 0o755); err != nil {
			t.Fatalf("create stub bin dir: %v", err)
		}
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(bin, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				t.Fatalf("write stub %s: %v", name, err)
			}
		}
		t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}
