package daemon

import (
	"context"
	"testing"
	"time"

	"meetflow/internal/notifications"
	"meetflow/internal/pipeline"
	"meetflow/internal/testsupport"
	"meetflow/internal/worker"
)

type fastTicker struct{ t *time.Ticker }

func (f fastTicker) C() <-chan time.Time { return f.t.C }
func (f fastTicker) Stop()               { f.t.Stop() }

type fastClock struct{}

func (fastClock) Now() time.Time { return time.Now() }
func (fastClock) NewTicker(time.Duration) worker.Ticker {
	return fastTicker{t: time.NewTicker(10 * time.Millisecond)}
}

type recordingNotifier struct {
	events chan notifications.Event
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	select {
	case n.events <- event:
	default:
	}
	return nil
}

type fixture struct {
	daemon   *Daemon
	source   *testsupport.StubSource
	analyzer *testsupport.StubAnalyzer
	notifier *recordingNotifier
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	jobs := testsupport.MustOpenQueue(t, cfg)
	recs := testsupport.MustOpenRecords(t, cfg)

	f := &fixture{
		source: testsupport.NewStubSource(nil),
		analyzer: &testsupport.StubAnalyzer{Default: pipeline.Analysis{
			CallType:     pipeline.CallTechnical,
			CustomerName: "Acme Corp",
			Summary:      "Reviewed the ingestion design.",
			ActionItems:  []pipeline.ActionItem{{Owner: "Dana", Text: "Share the sizing sheet"}},
			Diagram:      "graph TD\n  A[API] --> B[Queue]",
		}},
		notifier: &recordingNotifier{events: make(chan notifications.Event, 16)},
	}
	d, err := New(cfg, jobs, recs, nil,
		WithCollaborators(pipeline.Collaborators{
			Source:   f.source,
			Analyzer: f.analyzer,
			Renderer: &testsupport.StubRenderer{Dir: cfg.Paths.DiagramDir},
		}),
		WithNotifier(f.notifier),
		WithWorkerOptions(worker.WithClock(fastClock{})),
	)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Stop() })
	f.daemon = d
	return f
}
