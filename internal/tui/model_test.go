package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"meetflow/internal/api"
)

type fakeSource struct {
	status api.QueueStatus
	err    error
	calls  int
}

func (f *fakeSource) Status(context.Context) (api.QueueStatus, error) {
	f.calls++
	return f.status, f.err
}

func TestInitFetchesStatus(t *testing.T) {
	src := &fakeSource{status: api.QueueStatus{Running: true, PendingCount: 2}}
	m := New(src, time.Second, true)
	cmd := m.Init()
	if cmd == nil {
		t.Fatal("expected init command")
	}
	msg, ok := cmd().(statusMsg)
	if !ok {
		t.Fatalf("expected statusMsg, got %T", msg)
	}
	if msg.status.PendingCount != 2 || src.calls != 1 {
		t.Fatalf("unexpected fetch: %+v calls=%d", msg.status, src.calls)
	}
}

func TestFetchErrorBecomesMessage(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	m := New(src, time.Second, true)
	if _, ok := m.fetch()().(statusErrMsg); !ok {
		t.Fatal("expected statusErrMsg")
	}
}

func TestStatusMsgUpdatesView(t *testing.T) {
	m := New(&fakeSource{}, time.Second, true)
	current := api.Job{ID: 7, SourceID: "rec-7", Title: "Acme sync", Status: "processing"}
	updated, cmd := m.Update(statusMsg{status: api.QueueStatus{
		Running:      true,
		PendingCount: 3,
		Current:      &current,
		Counts:       map[string]int{"pending": 3, "processing": 1},
		RecentTerminal: []api.Job{
			{ID: 5, SourceID: "rec-5", Status: "completed", ResultSummary: "customer=Acme actions=2"},
			{ID: 6, SourceID: "rec-6", Status: "failed", Error: "analysis: model timeout"},
		},
	}, at: time.Now()})
	if cmd == nil {
		t.Fatal("expected tick to be scheduled")
	}
	model := updated.(Model)
	if !model.loaded || model.err != nil {
		t.Fatalf("unexpected state: loaded=%v err=%v", model.loaded, model.err)
	}
	view := model.View()
	for _, want := range []string{"#7 Acme sync", "worker running", "#5 rec-5", "model timeout", "pending 3"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestErrorKeepsLastStatus(t *testing.T) {
	m := New(&fakeSource{}, time.Second, true)
	updated, _ := m.Update(statusMsg{status: api.QueueStatus{PendingCount: 4}, at: time.Now()})
	updated, _ = updated.(Model).Update(statusErrMsg{err: errors.New("daemon gone")})
	model := updated.(Model)
	if model.status.PendingCount != 4 {
		t.Fatalf("status should survive an error, got %+v", model.status)
	}
	if !strings.Contains(model.View(), "daemon gone") {
		t.Fatal("view should show the error")
	}
}

func TestQuitKeys(t *testing.T) {
	m := New(&fakeSource{}, time.Second, false)
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := m.Update(key)
		if cmd == nil {
			t.Fatalf("%s: expected quit command", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("%s: expected QuitMsg", key)
		}
	}
}

func TestRefreshKeyFetches(t *testing.T) {
	src := &fakeSource{}
	m := New(src, time.Second, true)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd == nil {
		t.Fatal("expected fetch command")
	}
	cmd()
	if src.calls != 1 {
		t.Fatalf("calls = %d", src.calls)
	}
}

func TestOfflineLabel(t *testing.T) {
	m := New(&fakeSource{}, 0, false)
	if m.interval != 2*time.Second {
		t.Fatalf("default interval = %s", m.interval)
	}
	if !strings.Contains(m.View(), "daemon offline") {
		t.Fatal("expected offline label")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Fatalf("got %q", got)
	}
}
