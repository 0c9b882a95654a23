package queueaccess

import (
	"context"
	"time"

	"meetflow/internal/api"
	"meetflow/internal/apiclient"
	"meetflow/internal/queue"
	"meetflow/internal/records"
)

// Access provides queue operations regardless of daemon or direct store
// backing.
type Access interface {
	Enqueue(ctx context.Context, sourceID, title string) (*api.Job, error)
	EnqueueBulk(ctx context.Context, req api.BulkRequest) (api.BulkResult, error)
	List(ctx context.Context, statuses []string) ([]api.Job, error)
	Get(ctx context.Context, id int64) (*api.Job, error)
	Cancel(ctx context.Context, id int64) error
	Retry(ctx context.Context, id int64) (*api.Job, error)
	Prune(ctx context.Context, age time.Duration) (int64, error)
	Status(ctx context.Context) (api.QueueStatus, error)
	// Remote reports whether calls go through a running daemon.
	Remote() bool
}

// NewDaemonAccess returns an Access backed by the daemon HTTP API.
func NewDaemonAccess(client *apiclient.Client) Access {
	return &daemonAccess{client: client}
}

// NewStoreAccess returns an Access backed by direct database access. records
// may be nil, in which case enqueue does not consult session notes.
func NewStoreAccess(jobs *queue.Store, notes *records.Store) Access {
	var sessions api.SessionLookup
	if notes != nil {
		sessions = notes
	}
	return &storeAccess{service: api.NewQueueService(jobs, sessions)}
}

type daemonAccess struct {
	client *apiclient.Client
}

func (a *daemonAccess) Enqueue(ctx context.Context, sourceID, title string) (*api.Job, error) {
	return a.client.Enqueue(ctx, sourceID, title)
}

func (a *daemonAccess) EnqueueBulk(ctx context.Context, req api.BulkRequest) (api.BulkResult, error) {
	return a.client.EnqueueBulk(ctx, req)
}

func (a *daemonAccess) List(ctx context.Context, statuses []string) ([]api.Job, error) {
	return a.client.List(ctx, parseStatuses(statuses)...)
}

func (a *daemonAccess) Get(ctx context.Context, id int64) (*api.Job, error) {
	return a.client.Get(ctx, id)
}

func (a *daemonAccess) Cancel(ctx context.Context, id int64) error {
	return a.client.Cancel(ctx, id)
}

func (a *daemonAccess) Retry(ctx context.Context, id int64) (*api.Job, error) {
	return a.client.Retry(ctx, id)
}

func (a *daemonAccess) Prune(ctx context.Context, age time.Duration) (int64, error) {
	return a.client.Prune(ctx, age)
}

func (a *daemonAccess) Status(ctx context.Context) (api.QueueStatus, error) {
	return a.client.Status(ctx)
}

func (a *daemonAccess) Remote() bool { return true }

type storeAccess struct {
	service *api.QueueService
}

func (a *storeAccess) Enqueue(ctx context.Context, sourceID, title string) (*api.Job, error) {
	return a.service.Enqueue(ctx, sourceID, title)
}

func (a *storeAccess) EnqueueBulk(ctx context.Context, req api.BulkRequest) (api.BulkResult, error) {
	return a.service.EnqueueBulk(ctx, req)
}

func (a *storeAccess) List(ctx context.Context, statuses []string) ([]api.Job, error) {
	return a.service.List(ctx, parseStatuses(statuses)...)
}

func (a *storeAccess) Get(ctx context.Context, id int64) (*api.Job, error) {
	return a.service.Get(ctx, id)
}

func (a *storeAccess) Cancel(ctx context.Context, id int64) error {
	return a.service.Cancel(ctx, id)
}

func (a *storeAccess) Retry(ctx context.Context, id int64) (*api.Job, error) {
	return a.service.Retry(ctx, id)
}

func (a *storeAccess) Prune(ctx context.Context, age time.Duration) (int64, error) {
	return a.service.Prune(ctx, age)
}

func (a *storeAccess) Status(ctx context.Context) (api.QueueStatus, error) {
	return a.service.Status(ctx)
}

func (a *storeAccess) Remote() bool { return false }

func parseStatuses(values []string) []queue.Status {
	var out []queue.Status
	for _, value := range values {
		if parsed, ok := queue.ParseStatus(value); ok {
			out = append(out, parsed)
		}
	}
	return out
}
