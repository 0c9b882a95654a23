package notifications

import (
	"context"
	"log/slog"
	"time"

	"meetflow/internal/config"
	"meetflow/internal/logging"
	"meetflow/internal/worker"
)

// NewWorkerListener forwards worker events to svc according to the
// [notifications] toggles. Delivery failures are logged and returned so the
// bus records them; they never affect the job.
func NewWorkerListener(svc Service, cfg config.Notifications, logger *slog.Logger) worker.Listener {
	logger = logging.NewComponentLogger(logger, "notifications")
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return func(ev worker.Event) error {
		event, payload, ok := translate(ev, cfg)
		if !ok {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := svc.Publish(ctx, event, payload); err != nil {
			logging.WarnWithContext(logger, "notification delivery failed", "notification_failed",
				logging.String("event", string(event)),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
				logging.String(logging.FieldImpact, "notification not delivered"),
				logging.Error(err),
			)
			return err
		}
		return nil
	}
}

func translate(ev worker.Event, cfg config.Notifications) (Event, Payload, bool) {
	switch ev.Kind {
	case worker.EventCompleted:
		if !cfg.Completed || ev.Job == nil {
			return "", nil, false
		}
		payload := Payload{"title": ev.Job.DisplayTitle(), "summary": ev.Job.ResultSummary}
		if ev.Result != nil {
			payload["summary"] = ev.Result.Describe()
		}
		return EventJobCompleted, payload, true
	case worker.EventFailed:
		if !cfg.Failed || ev.Job == nil {
			return "", nil, false
		}
		payload := Payload{"title": ev.Job.DisplayTitle(), "error": ev.Job.Error}
		if ev.Err != nil {
			payload["error"] = ev.Err.Error()
		}
		return EventJobFailed, payload, true
	case worker.EventDrained:
		if !cfg.Queue {
			return "", nil, false
		}
		return EventQueueDrained, Payload{
			"completed": ev.Completed,
			"failed":    ev.Failed,
			"duration":  ev.Elapsed,
		}, true
	}
	return "", nil, false
}
