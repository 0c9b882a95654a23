package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"meetflow/internal/logging"
	"meetflow/internal/pipeline"
	"meetflow/internal/queue"
	"meetflow/internal/services"
)

// Start recovers interrupted jobs and begins polling in the background.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("worker already running")
	}
	w.mu.Unlock()

	reset, err := w.repo.ResetInterrupted(ctx)
	if err != nil {
		return fmt.Errorf("reset interrupted jobs: %w", err)
	}
	if reset > 0 {
		logging.WarnWithContext(w.logger, "marked interrupted jobs as failed", "jobs_interrupted",
			logging.Int64("count", reset),
			logging.String(logging.FieldErrorHint, "retry the jobs once the cause is understood"),
			logging.String(logging.FieldImpact, "jobs from the previous run need a retry"),
		)
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("worker already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.done = make(chan struct{})
	ticker := w.clock.NewTicker(w.pollInterval)
	done := w.done
	w.mu.Unlock()

	w.logger.Info("worker started",
		logging.String(logging.FieldEventType, "worker_started"),
		logging.Duration("poll_interval", w.pollInterval),
	)
	go w.loop(runCtx, ticker, done)
	return nil
}

// Stop cancels polling and waits for the in-flight job, if any, to return.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	done := w.done
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	<-done
	w.logger.Info("worker stopped", logging.String(logging.FieldEventType, "worker_stopped"))
}

func (w *Worker) loop(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	now := w.clock.Now()
	w.mu.RLock()
	backoff := w.backoffUntil
	w.mu.RUnlock()
	if now.Before(backoff) {
		return
	}

	if _, err := w.PollOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.mu.Lock()
		w.backoffUntil = now.Add(w.errorBackoff)
		w.mu.Unlock()
		logging.ErrorWithContext(w.logger, "queue poll failed", "queue_poll_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
			logging.Duration("retry_in", w.errorBackoff),
		)
	}
	w.maybePrune(ctx)
}

// PollOnce runs a single poll cycle and reports whether a job was processed.
// It is a no-op while another job is processing or the queue is empty.
func (w *Worker) PollOnce(ctx context.Context) (bool, error) {
	w.mu.Lock()
	w.lastPoll = w.clock.Now()
	w.mu.Unlock()

	current, err := w.repo.CurrentProcessing(ctx)
	if err != nil {
		w.setLastError(err)
		return false, fmt.Errorf("check processing job: %w", err)
	}
	if current != nil {
		return false, nil
	}

	job, err := w.repo.NextPending(ctx)
	if err != nil {
		w.setLastError(err)
		return false, fmt.Errorf("fetch next job: %w", err)
	}
	if job == nil {
		w.checkDrained()
		return false, nil
	}

	if err := w.repo.MarkProcessing(ctx, job.ID); err != nil {
		// Lost a race with a cancel or another claimant; try again next tick.
		if errors.Is(err, queue.ErrProcessingActive) || errors.Is(err, queue.ErrNotPending) || errors.Is(err, queue.ErrNotFound) {
			w.logger.Debug("job claim lost", logging.Int64(logging.FieldJobID, job.ID), logging.Error(err))
			return false, nil
		}
		w.setLastError(err)
		return false, fmt.Errorf("claim job %d: %w", job.ID, err)
	}
	job.Status = queue.StatusProcessing
	w.markActive()

	return true, w.processJob(ctx, job)
}

func (w *Worker) processJob(ctx context.Context, job *queue.Job) error {
	jobCtx := services.WithJobID(ctx, job.ID)
	jobCtx = services.WithSourceID(jobCtx, job.SourceID)
	jobCtx = services.WithRequestID(jobCtx, uuid.NewString())
	logger := logging.WithContext(jobCtx, w.logger)
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_started"),
		logging.String("title", job.DisplayTitle()),
	)
	started := w.clock.Now()

	result, procErr := w.invoke(jobCtx, job)
	elapsed := w.clock.Now().Sub(started)

	// Record the outcome even when shutdown cancelled the run.
	persistCtx := context.WithoutCancel(ctx)
	if procErr != nil {
		message := procErr.Error()
		if ctx.Err() != nil {
			message = queue.InterruptedMessage
		}
		if err := w.repo.MarkFailed(persistCtx, job.ID, message); err != nil {
			w.setLastError(err)
			return fmt.Errorf("mark job %d failed: %w", job.ID, err)
		}
		attrs := append(logging.FailureAttrs(procErr),
			logging.String(logging.FieldEventType, "job_failed"),
			logging.Duration("elapsed", elapsed),
			logging.Alert("job_failure"),
		)
		logger.Error("job failed", logging.Args(attrs...)...)
		w.recordOutcome(false)
		w.publish(persistCtx, EventFailed, job, nil, procErr)
		return nil
	}

	summary := result.Describe()
	if err := w.repo.MarkCompleted(persistCtx, job.ID, summary, result.CustomerID()); err != nil {
		w.setLastError(err)
		return fmt.Errorf("mark job %d completed: %w", job.ID, err)
	}
	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_completed"),
		logging.String("summary", summary),
		logging.Duration("elapsed", elapsed),
	)
	w.recordOutcome(true)
	w.publish(persistCtx, EventCompleted, job, result, nil)
	return nil
}

// invoke shields the worker from processor panics.
func (w *Worker) invoke(ctx context.Context, job *queue.Job) (result *pipeline.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()
	if w.processor == nil {
		return nil, services.Wrap(services.ErrConfiguration, "worker", "process job", "no pipeline configured", nil)
	}
	result, err = w.processor.Process(ctx, job.SourceID, job.Title)
	if err == nil && result == nil {
		err = errors.New("pipeline returned no result")
	}
	return result, err
}

func (w *Worker) publish(ctx context.Context, kind EventKind, job *queue.Job, result *pipeline.Result, err error) {
	snapshot, getErr := w.repo.Get(ctx, job.ID)
	if getErr != nil || snapshot == nil {
		copied := *job
		snapshot = &copied
		if kind == EventCompleted {
			snapshot.Status = queue.StatusCompleted
		} else {
			snapshot.Status = queue.StatusFailed
		}
	}
	w.bus.Publish(Event{Kind: kind, Job: snapshot, Result: result, Err: err, At: w.clock.Now()})
}

func (w *Worker) markActive() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.queueActive {
		w.queueActive = true
		w.queueStart = w.clock.Now()
		w.completed = 0
		w.failed = 0
	}
}

func (w *Worker) recordOutcome(ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ok {
		w.completed++
	} else {
		w.failed++
	}
}

func (w *Worker) checkDrained() {
	w.mu.Lock()
	if !w.queueActive {
		w.mu.Unlock()
		return
	}
	now := w.clock.Now()
	evt := Event{
		Kind:      EventDrained,
		At:        now,
		Completed: w.completed,
		Failed:    w.failed,
		Elapsed:   now.Sub(w.queueStart),
	}
	w.queueActive = false
	w.mu.Unlock()

	w.logger.Info("queue drained",
		logging.String(logging.FieldEventType, "queue_drained"),
		logging.Int("completed", evt.Completed),
		logging.Int("failed", evt.Failed),
	)
	w.bus.Publish(evt)
}

func (w *Worker) maybePrune(ctx context.Context) {
	if w.pruneAge <= 0 {
		return
	}
	now := w.clock.Now()
	w.mu.Lock()
	if !w.lastPrune.IsZero() && now.Sub(w.lastPrune) < w.pruneInterval {
		w.mu.Unlock()
		return
	}
	w.lastPrune = now
	w.mu.Unlock()

	removed, err := w.repo.PruneCompletedOlderThan(ctx, w.pruneAge)
	if err != nil {
		logging.WarnWithContext(w.logger, "prune of completed jobs failed", "queue_prune_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
			logging.String(logging.FieldImpact, "old completed jobs remain listed"),
		)
		return
	}
	if removed > 0 {
		w.logger.Info("pruned completed jobs",
			logging.String(logging.FieldEventType, "queue_pruned"),
			logging.Int64("removed", removed),
		)
	}
}
