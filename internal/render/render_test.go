package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"meetflow/internal/services"
	"meetflow/internal/testsupport"
)

func TestValidate(t *testing.T) {
	valid := []string{
		"graph TD\n  A[Client] --> B(API)",
		"%% generated\nflowchart LR; A-->B",
		"---\ntitle: Acme\n---\nsequenceDiagram\n  A->>B: \"call (x\"",
		"mindmap\n  root((Acme))",
	}
	for _, source := range valid {
		if err := Validate(source); err != nil {
			t.Errorf("expected %q valid, got %v", source, err)
		}
	}

	invalid := map[string]error{
		"   \n%% only comment":    ErrEmptySource,
		"hello world":            ErrUnknownDiagram,
		"graph TD\n A[Client --> B": ErrUnbalanced,
		"graph TD\n A] --> B":      ErrUnbalanced,
		"graph TD\n A[\"x] --> B":  ErrUnbalanced,
	}
	for source, want := range invalid {
		if err := Validate(source); !errors.Is(err, want) {
			t.Errorf("source %q: expected %v, got %v", source, want, err)
		}
	}
}

type recordingExecutor struct {
	args   []string
	stderr string
	err    error
	write  bool
}

func (e *recordingExecutor) Run(_ context.Context, _ string, args []string) ([]byte, error) {
	e.args = args
	if e.write {
		for i, arg := range args {
			if arg == "-o" {
				_ = os.WriteFile(args[i+1], []byte("png"), 0o644)
			}
		}
	}
	return []byte(e.stderr), e.err
}

func TestRenderWritesImage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := &recordingExecutor{write: true}
	r := New(cfg, nil, WithExecutor(exec))

	path, err := r.Render(context.Background(), "graph TD; A-->B", "acme-d1-v1")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if path != filepath.Join(cfg.Paths.DiagramDir, "acme-d1-v1.png") {
		t.Fatalf("unexpected path %q", path)
	}
	joined := strings.Join(exec.args, " ")
	if !strings.Contains(joined, "-t default") || !strings.Contains(joined, "-b white") {
		t.Fatalf("expected theme and background args, got %q", joined)
	}
	matches, _ := filepath.Glob(filepath.Join(cfg.Paths.DiagramDir, "*.mmd"))
	if len(matches) != 0 {
		t.Fatalf("expected temp source removed, found %v", matches)
	}
}

func TestRenderFailureIsRenderError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	r := New(cfg, nil, WithExecutor(&recordingExecutor{err: errors.New("exit status 1"), stderr: "warn\nParse error on line 2"}))

	_, err := r.Render(context.Background(), "graph TD; A-->B", "acme-d1-v1")
	if !errors.Is(err, services.ErrRender) || !strings.Contains(err.Error(), "Parse error on line 2") {
		t.Fatalf("expected render error with stderr detail, got %v", err)
	}

	_, err = New(cfg, nil, WithExecutor(&recordingExecutor{})).Render(context.Background(), "graph TD; A-->B", "x")
	if !errors.Is(err, services.ErrRender) {
		t.Fatalf("expected missing output to fail, got %v", err)
	}
}

func TestRenderRejectsInvalidInput(t *testing.T) {
	r := New(testsupport.NewConfig(t), nil, WithExecutor(&recordingExecutor{write: true}))
	if _, err := r.Render(context.Background(), "nonsense", "x"); !errors.Is(err, services.ErrRender) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if _, err := r.Render(context.Background(), "graph TD; A-->B", "../x"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected name rejection, got %v", err)
	}
}

func TestAvailableUsesPath(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if !New(cfg, nil).Available() {
		t.Fatal("expected stubbed mmdc to be available")
	}
	cfg.Renderer.Binary = "mmdc-definitely-missing"
	if New(cfg, nil).Available() {
		t.Fatal("expected missing binary to be unavailable")
	}
}
