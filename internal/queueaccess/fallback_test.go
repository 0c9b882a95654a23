package queueaccess_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"meetflow/internal/api"
	"meetflow/internal/apiclient"
	"meetflow/internal/pipeline"
	"meetflow/internal/queue"
	"meetflow/internal/queueaccess"
	"meetflow/internal/records"
	"meetflow/internal/testsupport"
)

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

func TestOpenWithFallbackUsesStoresWhenDaemonDown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	dial := func() (*apiclient.Client, error) { return apiclient.New(closedAddr(t)) }
	session, err := queueaccess.OpenWithFallback(ctx, dial, queueaccess.ConfigStores(cfg))
	if err != nil {
		t.Fatalf("OpenWithFallback: %v", err)
	}
	defer session.Close()

	if session.Access.Remote() {
		t.Fatal("expected store-backed access")
	}
	job, err := session.Access.Enqueue(ctx, "sess-1", "Kickoff")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.Status != "pending" {
		t.Fatalf("expected pending job, got %+v", job)
	}
	jobs, err := session.Access.List(ctx, []string{"pending", "bogus"})
	if err != nil || len(jobs) != 1 {
		t.Fatalf("List: %v %v", jobs, err)
	}
	status, err := session.Access.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.PendingCount != 1 || status.Running {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestStoreAccessRejectsProcessedSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()
	notes := testsupport.MustOpenRecords(t, cfg)
	if _, err := notes.SkipSession(ctx, "sess-skip", "Hallway chat"); err != nil {
		t.Fatalf("SkipSession: %v", err)
	}

	access := queueaccess.NewStoreAccess(testsupport.MustOpenQueue(t, cfg), notes)
	if _, err := access.Enqueue(ctx, "sess-skip", ""); !errors.Is(err, pipeline.ErrSkipped) {
		t.Fatalf("expected ErrSkipped, got %v", err)
	}
}

func TestOpenWithFallbackPrefersDaemon(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.QueueStatus{Running: true, PendingCount: 3})
	}))
	defer srv.Close()

	opened := false
	session, err := queueaccess.OpenWithFallback(context.Background(),
		func() (*apiclient.Client, error) { return apiclient.New(srv.URL) },
		func() (*queue.Store, *records.Store, error) {
			opened = true
			return nil, nil, errors.New("should not open")
		},
	)
	if err != nil {
		t.Fatalf("OpenWithFallback: %v", err)
	}
	if !session.Access.Remote() || opened {
		t.Fatal("expected daemon-backed access without opening stores")
	}
	status, err := session.Access.Status(context.Background())
	if err != nil || status.PendingCount != 3 {
		t.Fatalf("Status: %+v %v", status, err)
	}
}

func TestOpenWithFallbackReportsAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "unauthorized", Code: api.CodeUnauthorized})
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t)
	_, err := queueaccess.OpenWithFallback(context.Background(),
		func() (*apiclient.Client, error) { return apiclient.New(srv.URL) },
		queueaccess.ConfigStores(cfg),
	)
	if !errors.Is(err, apiclient.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
