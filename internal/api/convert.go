package api

import (
	"time"

	"meetflow/internal/logging"
	"meetflow/internal/queue"
	"meetflow/internal/records"
	"meetflow/internal/worker"
)

// FromJob converts a queue row to its API representation.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}
	dto := Job{
		ID:            job.ID,
		SourceID:      job.SourceID,
		Title:         job.Title,
		Status:        string(job.Status),
		Error:         job.Error,
		ResultSummary: job.ResultSummary,
		CustomerID:    job.CustomerID,
		CreatedAt:     FormatTime(job.CreatedAt),
		DurationMs:    job.Duration().Milliseconds(),
	}
	if job.StartedAt != nil {
		dto.StartedAt = FormatTime(*job.StartedAt)
	}
	if job.CompletedAt != nil {
		dto.CompletedAt = FormatTime(*job.CompletedAt)
	}
	return dto
}

// FromJobs converts a slice of queue rows.
func FromJobs(jobs []*queue.Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromWorkerStatus converts the worker's polling view.
func FromWorkerStatus(status worker.Status, counts map[queue.Status]int) QueueStatus {
	dto := QueueStatus{
		Running:        status.Running,
		PendingCount:   status.PendingCount,
		RecentTerminal: FromJobs(status.RecentTerminal),
		Counts:         MergeQueueStats(counts),
		LastError:      status.LastError,
		LastPoll:       FormatTime(status.LastPoll),
	}
	if status.Current != nil {
		current := FromJob(status.Current)
		dto.Current = &current
	}
	return dto
}

// MergeQueueStats produces a string-keyed representation of queue stats with
// every status present.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

// FromCustomerSummary converts a customer list row.
func FromCustomerSummary(summary records.CustomerSummary) Customer {
	return Customer{
		ID:           summary.ID,
		Name:         summary.Name,
		Unknown:      summary.IsUnknown,
		OpenActions:  summary.OpenActions,
		TotalActions: summary.TotalActions,
		Versions:     summary.Versions,
		CreatedAt:    FormatTime(summary.CreatedAt),
	}
}

// FromActionItem converts an action item.
func FromActionItem(item *records.ActionItem) ActionItem {
	if item == nil {
		return ActionItem{}
	}
	dto := ActionItem{
		ID:           item.ID,
		CustomerID:   item.CustomerID,
		Owner:        item.Owner,
		Text:         item.Text,
		Completed:    item.Completed,
		SessionTitle: item.SessionTitle,
	}
	if item.CompletedAt != nil {
		dto.CompletedAt = FormatTime(*item.CompletedAt)
	}
	if item.SessionDate != nil {
		dto.SessionDate = item.SessionDate.UTC().Format(time.DateOnly)
	}
	return dto
}

// FromActionItems converts a slice of action items.
func FromActionItems(items []*records.ActionItem) []ActionItem {
	out := make([]ActionItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromActionItem(item))
	}
	return out
}

// FromDiagram converts a diagram and its versions.
func FromDiagram(diagram *records.Diagram, versions []*records.DiagramVersion) Diagram {
	dto := Diagram{ID: diagram.ID, CustomerID: diagram.CustomerID, Versions: make([]DiagramVersion, 0, len(versions))}
	for _, v := range versions {
		dto.Versions = append(dto.Versions, DiagramVersion{
			ID:        v.ID,
			Version:   v.Version,
			Source:    v.Source,
			ImagePath: v.ImagePath,
			Notes:     v.Notes,
			CreatedAt: FormatTime(v.CreatedAt),
		})
	}
	return dto
}

// FromDatabaseHealth converts queue database diagnostics.
func FromDatabaseHealth(h queue.DatabaseHealth) DatabaseHealth {
	return DatabaseHealth{
		Path:           h.DBPath,
		SchemaVersion:  h.SchemaVersion,
		IntegrityCheck: h.IntegrityCheck,
		MissingColumns: h.MissingColumns,
		TotalJobs:      h.TotalJobs,
		Error:          h.Error,
	}
}

// FromLogEvents converts stream hub events for the log API.
func FromLogEvents(events []logging.LogEvent) []LogEvent {
	out := make([]LogEvent, 0, len(events))
	for _, evt := range events {
		out = append(out, LogEvent{
			Sequence:      evt.Sequence,
			Timestamp:     FormatTime(evt.Timestamp),
			Level:         evt.Level,
			Message:       evt.Message,
			Component:     evt.Component,
			Step:          evt.Step,
			JobID:         evt.JobID,
			SourceID:      evt.SourceID,
			CorrelationID: evt.CorrelationID,
			Fields:        evt.Fields,
		})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseTime parses a timestamp produced by FormatTime.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}
