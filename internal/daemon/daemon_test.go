package daemon

import (
	"context"
	"errors"
	"testing"
	"time"

	"meetflow/internal/apiclient"
	"meetflow/internal/notifications"
	"meetflow/internal/pipeline"
	"meetflow/internal/queue"
	"meetflow/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status, err := f.daemon.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || !status.Queue.Running {
		t.Fatalf("expected daemon and worker running, got %+v", status)
	}

	// Second start should fail
	if err := f.daemon.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	f.daemon.Stop()
	status, err = f.daemon.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Running || status.Queue.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestSecondDaemonCannotTakeLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := New(cfg, testsupport.MustOpenQueue(t, cfg), testsupport.MustOpenRecords(t, cfg), nil,
		WithCollaborators(pipeline.Collaborators{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	second, err := New(cfg, testsupport.MustOpenQueue(t, cfg), testsupport.MustOpenRecords(t, cfg), nil,
		WithCollaborators(pipeline.Collaborators{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer first.Stop()
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected lock conflict")
	}
}

func TestDaemonProcessesQueuedSessionEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.source.Put("sess-1", testsupport.LongTranscript(300))
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	client, err := apiclient.New(f.daemon.api.address())
	if err != nil {
		t.Fatalf("apiclient.New: %v", err)
	}

	job, err := client.Enqueue(ctx, "sess-1", "")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	select {
	case evt := <-f.notifier.events:
		if evt != notifications.EventJobCompleted {
			t.Fatalf("expected completion notification, got %s", evt)
		}
	case <-ctx.Done():
		t.Fatal("job did not complete")
	}

	got, err := client.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != string(queue.StatusCompleted) || got.CustomerID == nil {
		t.Fatalf("unexpected job %+v", got)
	}

	if _, err := client.Enqueue(ctx, "sess-1", ""); !errors.Is(err, pipeline.ErrAlreadyProcessed) {
		t.Fatalf("expected already processed rejection, got %v", err)
	}

	actions, err := client.CustomerActions(ctx, *got.CustomerID, false)
	if err != nil {
		t.Fatalf("CustomerActions: %v", err)
	}
	if len(actions) != 1 || actions[0].Owner != "Dana" {
		t.Fatalf("unexpected actions %+v", actions)
	}
	diagram, err := client.CustomerDiagram(ctx, *got.CustomerID)
	if err != nil {
		t.Fatalf("CustomerDiagram: %v", err)
	}
	if len(diagram.Versions) != 1 || diagram.Versions[0].Version != 1 {
		t.Fatalf("unexpected diagram %+v", diagram)
	}
}

func TestHealthReportsCollaborators(t *testing.T) {
	f := newFixture(t)
	f.analyzer.NotReady = true

	health, err := f.daemon.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Ready {
		t.Fatal("expected not ready with analyzer down")
	}
	if len(health.Checks) != 3 {
		t.Fatalf("expected three checks, got %+v", health.Checks)
	}
	if !health.Database.IntegrityCheck {
		t.Fatalf("expected healthy database, got %+v", health.Database)
	}
}
