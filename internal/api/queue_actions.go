package api

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"meetflow/internal/pipeline"
	"meetflow/internal/queue"
)

// sessionLookupLimit bounds concurrent session-note lookups during bulk enqueue.
const sessionLookupLimit = 4

// EnqueueBulk queues each item independently and reports a tally. Partial
// success is normal: a rejected or malformed item never prevents the others
// from being queued. Items are queued in request order so the worker sees
// them FIFO. Once limit new jobs exist, the remainder are counted as deferred.
func (s *QueueService) EnqueueBulk(ctx context.Context, req BulkRequest) (BulkResult, error) {
	result := BulkResult{Errors: []BulkError{}}

	sourceIDs := make([]string, len(req.Items))
	for i, item := range req.Items {
		sourceIDs[i] = strings.TrimSpace(item.SourceID)
	}
	sessionErrs, err := s.checkSessions(ctx, sourceIDs)
	if err != nil {
		return BulkResult{}, err
	}

	for i, item := range req.Items {
		sourceID := sourceIDs[i]
		if sourceID == "" {
			result.Errors = append(result.Errors, BulkError{Index: i, Error: "source id is required"})
			continue
		}
		if err := sessionErrs[i]; err != nil {
			result.record(i, sourceID, err)
			continue
		}
		if req.Limit > 0 && result.Queued >= req.Limit {
			result.Deferred++
			continue
		}
		job, err := s.enqueue(ctx, sourceID, item.Title)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.record(i, sourceID, err)
			continue
		}
		result.Queued++
		result.JobIDs = append(result.JobIDs, job.ID)
	}
	return result, nil
}

// checkSessions looks up session notes concurrently. The returned slice holds
// the per-item rejection (or nil); the error is reserved for lookup failures.
func (s *QueueService) checkSessions(ctx context.Context, sourceIDs []string) ([]error, error) {
	out := make([]error, len(sourceIDs))
	if s.sessions == nil {
		return out, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sessionLookupLimit)
	for i, id := range sourceIDs {
		if id == "" {
			continue
		}
		g.Go(func() error {
			err := s.checkSession(gctx, id)
			if errors.Is(err, pipeline.ErrAlreadyProcessed) || errors.Is(err, pipeline.ErrSkipped) {
				out[i] = err
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BulkResult) record(index int, sourceID string, err error) {
	switch {
	case errors.Is(err, pipeline.ErrSkipped):
		r.Skipped++
	case errors.Is(err, pipeline.ErrAlreadyProcessed), errors.Is(err, queue.ErrAlreadyCompleted):
		r.AlreadyProcessed++
	case errors.Is(err, queue.ErrAlreadyQueued):
		r.AlreadyQueued++
	default:
		r.Errors = append(r.Errors, BulkError{Index: index, SourceID: sourceID, Error: err.Error()})
	}
}
