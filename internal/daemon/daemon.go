package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"meetflow/internal/api"
	"meetflow/internal/config"
	"meetflow/internal/logging"
	"meetflow/internal/notifications"
	"meetflow/internal/pipeline"
	"meetflow/internal/queue"
	"meetflow/internal/records"
	"meetflow/internal/render"
	"meetflow/internal/services/llm"
	"meetflow/internal/transcripts"
	"meetflow/internal/worker"
)

// LockFileName is created under the data directory while a daemon runs.
const LockFileName = "meetflow.lock"

// Daemon coordinates the background processing services and enforces
// single-instance execution.
type Daemon struct {
	cfg          *config.Config
	logger       *slog.Logger
	jobs         *queue.Store
	records      *records.Store
	orchestrator *pipeline.Orchestrator
	worker       *worker.Worker
	hub          *logging.StreamHub
	queueSvc     *api.QueueService
	recordsSvc   *api.RecordsService
	api          *apiServer

	lockPath    string
	lock        *flock.Flock
	unsubscribe func()

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	QueueDBPath   string
	RecordsDBPath string
	LockFilePath  string
	APIAddress    string
	Queue         api.QueueStatus
}

type options struct {
	collaborators *pipeline.Collaborators
	notifier      notifications.Service
	hub           *logging.StreamHub
	workerOpts    []worker.Option
}

// Option customizes daemon construction.
type Option func(*options)

// WithCollaborators replaces the transcript source, analyzer and renderer
// built from configuration.
func WithCollaborators(c pipeline.Collaborators) Option {
	return func(o *options) {
		o.collaborators = &c
	}
}

// WithNotifier replaces the ntfy service built from configuration.
func WithNotifier(svc notifications.Service) Option {
	return func(o *options) {
		o.notifier = svc
	}
}

// WithLogStream exposes hub through the log API.
func WithLogStream(hub *logging.StreamHub) Option {
	return func(o *options) {
		o.hub = hub
	}
}

// WithWorkerOptions passes options through to the worker.
func WithWorkerOptions(opts ...worker.Option) Option {
	return func(o *options) {
		o.workerOpts = append(o.workerOpts, opts...)
	}
}

// New constructs a daemon with initialized dependencies. The daemon takes
// ownership of both stores and closes them in Close.
func New(cfg *config.Config, jobs *queue.Store, recs *records.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || jobs == nil || recs == nil {
		return nil, errors.New("daemon requires config, job store, and records store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	collaborators := DefaultCollaborators(cfg, logger)
	if o.collaborators != nil {
		collaborators = *o.collaborators
	}
	notifier := o.notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	orchestrator := pipeline.New(cfg, recs, collaborators, logger)
	w := worker.New(cfg, jobs, orchestrator, logger, o.workerOpts...)
	lockPath := filepath.Join(cfg.Paths.DataDir, LockFileName)

	d := &Daemon{
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "daemon"),
		jobs:         jobs,
		records:      recs,
		orchestrator: orchestrator,
		worker:       w,
		hub:          o.hub,
		queueSvc:     api.NewQueueService(jobs, recs, api.WithWorker(w)),
		recordsSvc:   api.NewRecordsService(recs),
		lockPath:     lockPath,
		lock:         flock.New(lockPath),
	}
	d.unsubscribe = w.Subscribe(notifications.NewWorkerListener(notifier, cfg.Notifications, logger))
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// DefaultCollaborators builds the transcript source, analyzer and renderer
// described by cfg. Unconfigured collaborators are left nil.
func DefaultCollaborators(cfg *config.Config, logger *slog.Logger) pipeline.Collaborators {
	var c pipeline.Collaborators
	if source := transcripts.NewFromConfig(cfg); source != nil {
		c.Source = source
	}
	client := llm.NewClient(llm.ConfigFrom(cfg.GetLLM()), llm.WithLogger(logger))
	if client.Configured() {
		c.Analyzer = llm.NewAnalyzer(client)
	}
	if renderer := render.New(cfg, logger); renderer.Available() {
		c.Renderer = renderer
	} else {
		logging.WarnWithContext(logger, "diagram renderer not found; diagrams will be stored without images", "renderer_unavailable",
			logging.String("binary", cfg.Renderer.Binary),
			logging.String(logging.FieldErrorHint, "install @mermaid-js/mermaid-cli or set renderer.binary"),
			logging.String(logging.FieldImpact, "diagram versions have no rendered image"),
		)
	}
	return c
}

// Start acquires the daemon lock, starts the worker and serves the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another meetflow daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.worker.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start worker: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		cancel()
		d.worker.Stop()
		_ = d.lock.Unlock()
		return err
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("meetflow daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock. A job in
// flight is interrupted and recorded as failed.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.worker.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("meetflow daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon and releases the stores.
func (d *Daemon) Close() error {
	d.Stop()
	if d.unsubscribe != nil {
		d.unsubscribe()
		d.unsubscribe = nil
	}
	return errors.Join(d.jobs.Close(), d.records.Close())
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	queueStatus, err := d.queueSvc.Status(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		QueueDBPath:   d.cfg.QueueDBPath(),
		RecordsDBPath: d.cfg.RecordsDBPath(),
		LockFilePath:  d.lockPath,
		APIAddress:    d.api.address(),
		Queue:         queueStatus,
	}, nil
}

// Health reports collaborator readiness and queue database diagnostics.
func (d *Daemon) Health(ctx context.Context) (api.HealthResponse, error) {
	resp := api.HealthResponse{Ready: true}
	for _, h := range d.orchestrator.Health(ctx) {
		resp.Checks = append(resp.Checks, api.HealthCheck{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
		// Rendering is optional; sessions still complete without images.
		if !h.Ready && h.Name != "renderer" {
			resp.Ready = false
		}
	}
	db, err := d.queueSvc.Database(ctx)
	if err != nil {
		return api.HealthResponse{}, err
	}
	resp.Database = db
	if !db.IntegrityCheck || len(db.MissingColumns) > 0 {
		resp.Ready = false
	}
	return resp, nil
}

// LogStream returns the live log hub, if one was attached.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.hub
}
