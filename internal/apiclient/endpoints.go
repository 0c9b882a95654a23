package apiclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"meetflow/internal/api"
	"meetflow/internal/queue"
)

// Enqueue queues a single session.
func (c *Client) Enqueue(ctx context.Context, sourceID, title string) (*api.Job, error) {
	var resp api.JobResponse
	if err := c.post(ctx, "/api/queue", api.EnqueueRequest{SourceID: sourceID, Title: title}, &resp); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// EnqueueBulk queues many sessions in order.
func (c *Client) EnqueueBulk(ctx context.Context, req api.BulkRequest) (api.BulkResult, error) {
	var result api.BulkResult
	err := c.post(ctx, "/api/queue/bulk", req, &result)
	return result, err
}

// List returns jobs, optionally filtered by status.
func (c *Client) List(ctx context.Context, statuses ...queue.Status) ([]api.Job, error) {
	query := url.Values{}
	for _, status := range statuses {
		query.Add("status", string(status))
	}
	var resp api.JobListResponse
	if err := c.get(ctx, "/api/queue", query, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Get fetches one job.
func (c *Client) Get(ctx context.Context, id int64) (*api.Job, error) {
	var resp api.JobResponse
	if err := c.get(ctx, jobPath(id, ""), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// Cancel removes a pending job.
func (c *Client) Cancel(ctx context.Context, id int64) error {
	return c.post(ctx, jobPath(id, "cancel"), nil, nil)
}

// Retry resets a failed job to pending.
func (c *Client) Retry(ctx context.Context, id int64) (*api.Job, error) {
	var resp api.JobResponse
	if err := c.post(ctx, jobPath(id, "retry"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// Prune removes completed jobs older than age.
func (c *Client) Prune(ctx context.Context, age time.Duration) (int64, error) {
	var resp api.PruneResponse
	req := api.PruneRequest{OlderThanHours: int(age / time.Hour)}
	if err := c.post(ctx, "/api/queue/prune", req, &resp); err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

// Status returns the worker polling view.
func (c *Client) Status(ctx context.Context) (api.QueueStatus, error) {
	var status api.QueueStatus
	err := c.get(ctx, "/api/status", nil, &status)
	return status, err
}

// Health returns collaborator readiness and database diagnostics.
func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	var health api.HealthResponse
	err := c.get(ctx, "/api/health", nil, &health)
	return health, err
}

// Customers lists customers with their counts.
func (c *Client) Customers(ctx context.Context) ([]api.Customer, error) {
	var resp api.CustomerListResponse
	if err := c.get(ctx, "/api/customers", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Customers, nil
}

// CustomerActions lists a customer's action items.
func (c *Client) CustomerActions(ctx context.Context, customerID int64, includeCompleted bool) ([]api.ActionItem, error) {
	query := url.Values{}
	if includeCompleted {
		query.Set("all", "1")
	}
	var resp api.ActionListResponse
	path := fmt.Sprintf("/api/customers/%d/actions", customerID)
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// OpenActions lists open action items across customers.
func (c *Client) OpenActions(ctx context.Context, owner string) ([]api.ActionItem, error) {
	query := url.Values{}
	if owner = strings.TrimSpace(owner); owner != "" {
		query.Set("owner", owner)
	}
	var resp api.ActionListResponse
	if err := c.get(ctx, "/api/actions", query, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// CustomerDiagram returns a customer's diagram with full history.
func (c *Client) CustomerDiagram(ctx context.Context, customerID int64) (*api.Diagram, error) {
	var resp api.DiagramResponse
	path := fmt.Sprintf("/api/customers/%d/diagram", customerID)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Diagram, nil
}

// ToggleAction flips an action item's completion state.
func (c *Client) ToggleAction(ctx context.Context, id int64) (*api.ActionItem, error) {
	var resp api.ActionResponse
	if err := c.post(ctx, fmt.Sprintf("/api/actions/%d/toggle", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Item, nil
}

// LogQuery selects a page of the daemon's log stream.
type LogQuery struct {
	Since     uint64
	Limit     int
	Follow    bool
	Tail      bool
	Component string
	JobID     int64
}

// Logs fetches log events. With Follow set the call blocks until new events
// arrive or ctx ends.
func (c *Client) Logs(ctx context.Context, q LogQuery) (api.LogStreamResponse, error) {
	values := url.Values{}
	if q.Since > 0 {
		values.Set("since", strconv.FormatUint(q.Since, 10))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Follow {
		values.Set("follow", "1")
	}
	if q.Tail {
		values.Set("tail", "1")
	}
	if component := strings.TrimSpace(q.Component); component != "" {
		values.Set("component", component)
	}
	if q.JobID > 0 {
		values.Set("job", strconv.FormatInt(q.JobID, 10))
	}
	var resp api.LogStreamResponse
	if c == nil {
		return resp, ErrUnavailable
	}
	err := c.do(ctx, c.stream, "GET", "/api/logs", values, nil, &resp)
	return resp, err
}

func jobPath(id int64, action string) string {
	path := "/api/queue/" + strconv.FormatInt(id, 10)
	if action != "" {
		path += "/" + action
	}
	return path
}
