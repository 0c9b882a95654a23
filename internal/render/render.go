package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"meetflow/internal/config"
	"meetflow/internal/logging"
	"meetflow/internal/pipeline"
	"meetflow/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stderr.Bytes(), err
	}
	return stderr.Bytes(), nil
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithExecutor injects a custom executor.
func WithExecutor(exec Executor) Option {
	return func(r *Renderer) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// Renderer invokes the Mermaid CLI.
type Renderer struct {
	binary     string
	format     string
	theme      string
	background string
	timeout    time.Duration
	outDir     string
	exec       Executor
	logger     *slog.Logger
}

var _ pipeline.Renderer = (*Renderer)(nil)

// New builds a renderer from the [renderer] section, writing images into the
// diagram directory.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Renderer {
	r := &Renderer{
		binary:     strings.TrimSpace(cfg.Renderer.Binary),
		format:     strings.TrimSpace(cfg.Renderer.Format),
		theme:      strings.TrimSpace(cfg.Renderer.Theme),
		background: strings.TrimSpace(cfg.Renderer.Background),
		timeout:    time.Duration(cfg.Renderer.TimeoutSeconds) * time.Second,
		outDir:     cfg.Paths.DiagramDir,
		exec:       commandExecutor{},
		logger:     logging.NewComponentLogger(logger, "renderer"),
	}
	if r.format == "" {
		r.format = "png"
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Available reports whether the configured binary resolves on PATH.
func (r *Renderer) Available() bool {
	if r == nil || r.binary == "" {
		return false
	}
	_, err := exec.LookPath(r.binary)
	return err == nil
}

// IsReady reports renderer readiness for health checks.
func (r *Renderer) IsReady() bool { return r.Available() }

// Validate checks diagram source before a version is stored.
func (r *Renderer) Validate(source string) error {
	if err := Validate(source); err != nil {
		return services.Wrap(services.ErrRender, "diagram", "validate mermaid", "diagram source rejected", err)
	}
	return nil
}

// Render writes <outDir>/<name>.<format> and returns its path.
func (r *Renderer) Render(ctx context.Context, source, name string) (string, error) {
	if err := r.Validate(source); err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", services.Wrap(services.ErrValidation, "render", "artifact name", fmt.Sprintf("invalid artifact name %q", name), nil)
	}
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrRender, "render", "create diagram dir", r.outDir, err)
	}

	input, err := os.CreateTemp(r.outDir, name+"-*.mmd")
	if err != nil {
		return "", services.Wrap(services.ErrRender, "render", "write mermaid source", name, err)
	}
	defer os.Remove(input.Name())
	if _, err := input.WriteString(source); err != nil {
		input.Close()
		return "", services.Wrap(services.ErrRender, "render", "write mermaid source", name, err)
	}
	if err := input.Close(); err != nil {
		return "", services.Wrap(services.ErrRender, "render", "write mermaid source", name, err)
	}

	output := filepath.Join(r.outDir, name+"."+r.format)
	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	started := time.Now()
	stderr, err := r.exec.Run(runCtx, r.binary, r.args(input.Name(), output))
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", r.timeout, err)
		}
		if msg := strings.TrimSpace(string(stderr)); msg != "" {
			err = fmt.Errorf("%w: %s", err, lastLine(msg))
		}
		return "", services.Wrap(services.ErrRender, "render", "run "+r.binary, "mermaid cli failed", err)
	}
	if _, err := os.Stat(output); err != nil {
		return "", services.Wrap(services.ErrRender, "render", "verify output", "mermaid cli produced no image", err)
	}
	r.logger.Debug("diagram rendered",
		logging.String("output", output),
		logging.Duration("elapsed", time.Since(started)),
	)
	return output, nil
}

func (r *Renderer) args(input, output string) []string {
	args := []string{"-i", input, "-o", output}
	if r.theme != "" {
		args = append(args, "-t", r.theme)
	}
	if r.background != "" {
		args = append(args, "-b", r.background)
	}
	return args
}

func lastLine(text string) string {
	lines := strings.Split(text, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
