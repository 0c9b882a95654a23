package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"meetflow/internal/config"
	"meetflow/internal/daemon"
	"meetflow/internal/pipeline"
	"meetflow/internal/queue"
	"meetflow/internal/records"
	"meetflow/internal/testsupport"
	"meetflow/internal/worker"
)

type cliTestEnv struct {
	cfg        *config.Config
	jobs       *queue.Store
	records    *records.Store
	configPath string
	source     *testsupport.StubSource
}

// setupCLITestEnv writes a config whose API address has no listener, so every
// command exercises the direct-database path.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = closedAddr(t)
	env := &cliTestEnv{
		cfg:     cfg,
		jobs:    testsupport.MustOpenQueue(t, cfg),
		records: testsupport.MustOpenRecords(t, cfg),
	}
	env.configPath = writeTestConfig(t, cfg)
	return env
}

type fastTicker struct{ t *time.Ticker }

func (f fastTicker) C() <-chan time.Time { return f.t.C }
func (f fastTicker) Stop()               { f.t.Stop() }

type fastClock struct{}

func (fastClock) Now() time.Time { return time.Now() }
func (fastClock) NewTicker(time.Duration) worker.Ticker {
	return fastTicker{t: time.NewTicker(10 * time.Millisecond)}
}

// setupDaemonEnv starts an in-process daemon with stub collaborators and
// points the CLI config at its API.
func setupDaemonEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t)
	env := &cliTestEnv{
		cfg:     cfg,
		jobs:    testsupport.MustOpenQueue(t, cfg),
		records: testsupport.MustOpenRecords(t, cfg),
		source:  testsupport.NewStubSource(nil),
	}
	d, err := daemon.New(cfg, env.jobs, env.records, nil,
		daemon.WithCollaborators(pipeline.Collaborators{
			Source: env.source,
			Analyzer: &testsupport.StubAnalyzer{Default: pipeline.Analysis{
				CallType:     pipeline.CallTechnical,
				CustomerName: "Acme Corp",
				Summary:      "Walked through the event pipeline.",
				ActionItems:  []pipeline.ActionItem{{Owner: "Dana", Text: "Send the sizing sheet"}},
				Diagram:      "graph TD\n  A[Producer] --> B[Broker]",
			}},
			Renderer: &testsupport.StubRenderer{Dir: cfg.Paths.DiagramDir},
		}),
		daemon.WithWorkerOptions(worker.WithClock(fastClock{})),
	)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon Start: %v", err)
	}
	t.Cleanup(d.Stop)

	status, err := d.Status(context.Background())
	if err != nil {
		t.Fatalf("daemon Status: %v", err)
	}
	cfg.Paths.APIBind = status.APIAddress
	env.configPath = writeTestConfig(t, cfg)
	return env
}

func closedAddr(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().String()
	_ = listener.Close()
	return addr
}

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "meetflow.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// seedCustomer stores a processed session with action items and one diagram
// version for name.
func seedCustomer(t *testing.T, store *records.Store, name, sourceID string, items ...records.NewActionItem) *records.Customer {
	t.Helper()
	ctx := context.Background()
	customer, err := store.CreateCustomer(ctx, name, false)
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	note, err := store.UpsertSessionNote(ctx, records.SessionNote{
		SourceID:        sourceID,
		CustomerID:      &customer.ID,
		CallType:        string(pipeline.CallTechnical),
		Title:           name + " sync",
		Summary:         "Discussed rollout.",
		ActionItemsJSON: `[{"owner":"Dana","text":"Send pricing"}]`,
		ComponentsJSON:  `["Kafka"]`,
	})
	if err != nil {
		t.Fatalf("UpsertSessionNote: %v", err)
	}
	if _, err := store.ReplaceActionItems(ctx, note, customer.ID, items); err != nil {
		t.Fatalf("ReplaceActionItems: %v", err)
	}
	diagram, err := store.GetOrCreateDiagram(ctx, customer.ID)
	if err != nil {
		t.Fatalf("GetOrCreateDiagram: %v", err)
	}
	if _, err := store.AppendVersion(ctx, diagram.ID, "graph TD\n  A --> B", name+" sync"); err != nil {
		t.Fatalf("AppendVersion: %v", err)
	}
	return customer
}
