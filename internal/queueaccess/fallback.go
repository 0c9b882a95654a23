package queueaccess

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meetflow/internal/apiclient"
	"meetflow/internal/config"
	"meetflow/internal/queue"
	"meetflow/internal/records"
)

const probeTimeout = 2 * time.Second

// Session represents a queue access handle and its cleanup function.
type Session struct {
	Access Access
	close  func() error
}

// Close releases resources associated with the session.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Stores opens the job store and the records store together.
type Stores func() (*queue.Store, *records.Store, error)

// ConfigStores opens both databases described by cfg.
func ConfigStores(cfg *config.Config) Stores {
	return func() (*queue.Store, *records.Store, error) {
		jobs, err := queue.Open(cfg)
		if err != nil {
			return nil, nil, err
		}
		notes, err := records.Open(cfg)
		if err != nil {
			_ = jobs.Close()
			return nil, nil, err
		}
		return jobs, notes, nil
	}
}

// OpenWithFallback tries the daemon first, then falls back to direct store
// access when nothing answers. A daemon that answers with an error (a bad
// token, say) is reported rather than bypassed.
func OpenWithFallback(ctx context.Context, dial func() (*apiclient.Client, error), openStores Stores) (Session, error) {
	if dial != nil {
		if client, err := dial(); err == nil && client != nil {
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			_, probeErr := client.Status(probeCtx)
			cancel()
			switch {
			case probeErr == nil:
				return Session{Access: NewDaemonAccess(client)}, nil
			case !apiclient.IsUnavailable(probeErr) && !errors.Is(probeErr, context.DeadlineExceeded):
				return Session{}, fmt.Errorf("daemon api: %w", probeErr)
			}
		}
	}

	if openStores == nil {
		return Session{}, fmt.Errorf("open queue store: no store opener configured")
	}
	jobs, notes, err := openStores()
	if err != nil {
		return Session{}, fmt.Errorf("open queue store: %w", err)
	}
	return Session{
		Access: NewStoreAccess(jobs, notes),
		close: func() error {
			return errors.Join(jobs.Close(), notes.Close())
		},
	}, nil
}
