package logstream_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"meetflow/internal/api"
	"meetflow/internal/apiclient"
	"meetflow/internal/logstream"
)

func TestStreamPrefersAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tail") != "1" || r.URL.Query().Get("component") != "worker" {
			t.Errorf("unexpected query %v", r.URL.Query())
		}
		_ = json.NewEncoder(w).Encode(api.LogStreamResponse{
			Events: []api.LogEvent{{Sequence: 1, Message: "job completed", Component: "worker"}},
			Next:   2,
		})
	}))
	defer srv.Close()
	client, err := apiclient.New(srv.URL)
	if err != nil {
		t.Fatalf("apiclient.New: %v", err)
	}

	var events []api.LogEvent
	printed, err := logstream.Stream(context.Background(), client, "", logstream.Options{
		Lines:   10,
		Filters: logstream.Filters{Component: "worker"},
	}, func(evt api.LogEvent) { events = append(events, evt) }, nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if !printed || len(events) != 1 || events[0].Message != "job completed" {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestStreamFallsBackToFile(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().String()
	_ = listener.Close()
	client, err := apiclient.New(addr)
	if err != nil {
		t.Fatalf("apiclient.New: %v", err)
	}

	path := filepath.Join(t.TempDir(), "meetflow.log")
	content := "2026-03-01 09:00:00 INFO [worker] Job #1 – job started\n" +
		"2026-03-01 09:00:01 INFO [pipeline] Job #1 – transcript fetched\n" +
		"2026-03-01 09:00:02 INFO [worker] Job #2 – job started\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	var lines []string
	printed, err := logstream.Stream(context.Background(), client, path, logstream.Options{
		Lines:   10,
		Filters: logstream.Filters{Component: "worker", JobID: 1},
	}, nil, func(line string) { lines = append(lines, line) })
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if !printed || len(lines) != 1 {
		t.Fatalf("unexpected lines %#v", lines)
	}
}
