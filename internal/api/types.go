package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a queue job in a transport-friendly format.
type Job struct {
	ID            int64  `json:"id"`
	SourceID      string `json:"sourceId"`
	Title         string `json:"title,omitempty"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
	ResultSummary string `json:"resultSummary,omitempty"`
	CustomerID    *int64 `json:"customerId,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
	StartedAt     string `json:"startedAt,omitempty"`
	CompletedAt   string `json:"completedAt,omitempty"`
	DurationMs    int64  `json:"durationMs,omitempty"`
}

// EnqueueRequest is one session to queue.
type EnqueueRequest struct {
	SourceID string `json:"sourceId"`
	Title    string `json:"title,omitempty"`
}

// BulkRequest queues many sessions. Limit caps how many new jobs are created;
// zero means no cap.
type BulkRequest struct {
	Items []EnqueueRequest `json:"items"`
	Limit int              `json:"limit,omitempty"`
}

// BulkError reports one item that could not be queued.
type BulkError struct {
	Index    int    `json:"index"`
	SourceID string `json:"sourceId,omitempty"`
	Error    string `json:"error"`
}

// BulkResult tallies a bulk enqueue. Every item lands in exactly one bucket.
type BulkResult struct {
	Queued           int         `json:"queued"`
	Skipped          int         `json:"skipped"`
	AlreadyProcessed int         `json:"alreadyProcessed"`
	AlreadyQueued    int         `json:"alreadyQueued"`
	Deferred         int         `json:"deferred,omitempty"`
	Errors           []BulkError `json:"errors"`
	JobIDs           []int64     `json:"jobIds,omitempty"`
}

// QueueStatus is the polling view combining the worker and the job store.
type QueueStatus struct {
	Running        bool           `json:"running"`
	PendingCount   int            `json:"pendingCount"`
	Current        *Job           `json:"current,omitempty"`
	RecentTerminal []Job          `json:"recentTerminal"`
	Counts         map[string]int `json:"counts"`
	LastError      string         `json:"lastError,omitempty"`
	LastPoll       string         `json:"lastPoll,omitempty"`
}

// HealthCheck mirrors one readiness probe.
type HealthCheck struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DatabaseHealth summarizes the queue database diagnostics.
type DatabaseHealth struct {
	Path           string   `json:"path"`
	SchemaVersion  int      `json:"schemaVersion"`
	IntegrityCheck bool     `json:"integrityCheck"`
	MissingColumns []string `json:"missingColumns,omitempty"`
	TotalJobs      int      `json:"totalJobs"`
	Error          string   `json:"error,omitempty"`
}

// HealthResponse aggregates collaborator and database health.
type HealthResponse struct {
	Ready    bool           `json:"ready"`
	Checks   []HealthCheck  `json:"checks"`
	Database DatabaseHealth `json:"database"`
}

// Customer is a customer with list-view counts.
type Customer struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Unknown      bool   `json:"unknown"`
	OpenActions  int    `json:"openActions"`
	TotalActions int    `json:"totalActions"`
	Versions     int    `json:"diagramVersions"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// ActionItem is a follow-up owned by a customer.
type ActionItem struct {
	ID           int64  `json:"id"`
	CustomerID   int64  `json:"customerId"`
	Owner        string `json:"owner,omitempty"`
	Text         string `json:"text"`
	Completed    bool   `json:"completed"`
	CompletedAt  string `json:"completedAt,omitempty"`
	SessionTitle string `json:"sessionTitle,omitempty"`
	SessionDate  string `json:"sessionDate,omitempty"`
}

// DiagramVersion is one entry of a diagram's history.
type DiagramVersion struct {
	ID        int64  `json:"id"`
	Version   int    `json:"version"`
	Source    string `json:"source"`
	ImagePath string `json:"imagePath,omitempty"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// Diagram is a customer's diagram with its full version history.
type Diagram struct {
	ID         int64            `json:"id"`
	CustomerID int64            `json:"customerId"`
	Versions   []DiagramVersion `json:"versions"`
}

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// LogEvent is one structured log record from the daemon's stream.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     string            `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	Step          string            `json:"step,omitempty"`
	JobID         int64             `json:"jobId,omitempty"`
	SourceID      string            `json:"sourceId,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// LogStreamResponse carries a page of log events and the cursor to resume
// from.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

// PruneRequest removes completed jobs older than OlderThanHours.
type PruneRequest struct {
	OlderThanHours int `json:"olderThanHours"`
}

// PruneResponse reports how many rows a prune removed.
type PruneResponse struct {
	Removed int64 `json:"removed"`
}

// CustomerListResponse wraps the customer list.
type CustomerListResponse struct {
	Customers []Customer `json:"customers"`
}

// ActionListResponse wraps a list of action items.
type ActionListResponse struct {
	Items []ActionItem `json:"items"`
}

// ActionResponse wraps a single action item.
type ActionResponse struct {
	Item ActionItem `json:"item"`
}

// DiagramResponse wraps a diagram and its history.
type DiagramResponse struct {
	Diagram Diagram `json:"diagram"`
}
