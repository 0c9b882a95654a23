package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"meetflow/internal/api"
	"meetflow/internal/queueaccess"
)

// ActionSource reads action items. Both the HTTP client and the in-process
// records service satisfy it.
type ActionSource interface {
	OpenActions(ctx context.Context, owner string) ([]api.ActionItem, error)
	CustomerActions(ctx context.Context, customerID int64, includeCompleted bool) ([]api.ActionItem, error)
}

// Server wires the tools onto an MCP server.
type Server struct {
	queue   queueaccess.Access
	actions ActionSource
	mcp     *server.MCPServer
}

// New registers every tool. actions may be nil, in which case
// list_action_items is not offered.
func New(queue queueaccess.Access, actions ActionSource, version string) *Server {
	s := &Server{
		queue:   queue,
		actions: actions,
		mcp:     server.NewMCPServer("meetflow", version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool("queue_status",
		mcp.WithDescription("Report whether the worker is running, the job in flight, pending count and recent outcomes."),
	), s.handleQueueStatus)

	s.mcp.AddTool(mcp.NewTool("enqueue_session",
		mcp.WithDescription("Queue a meeting transcript for processing."),
		mcp.WithString("source_id", mcp.Required(), mcp.Description("Transcript source identifier")),
		mcp.WithString("title", mcp.Description("Optional display title")),
	), s.handleEnqueue)

	s.mcp.AddTool(mcp.NewTool("list_jobs",
		mcp.WithDescription("List queue jobs, optionally filtered by comma-separated statuses (pending, processing, completed, failed)."),
		mcp.WithString("status", mcp.Description("Comma-separated status filter")),
	), s.handleListJobs)

	if actions != nil {
		s.mcp.AddTool(mcp.NewTool("list_action_items",
			mcp.WithDescription("List action items. With customer_id, lists that customer's items; otherwise open items across customers."),
			mcp.WithNumber("customer_id", mcp.Description("Customer id")),
			mcp.WithString("owner", mcp.Description("Owner name, case-insensitive")),
			mcp.WithBoolean("include_completed", mcp.Description("Include completed items when listing one customer")),
		), s.handleListActions)
	}
	return s
}

// ServeStdio blocks serving JSON-RPC over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleQueueStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.queue.Status(ctx)
	if err != nil {
		return failure("queue status", err), nil
	}
	return jsonResult(status)
}

func (s *Server) handleEnqueue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sourceID, err := req.RequireString("source_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	job, err := s.queue.Enqueue(ctx, strings.TrimSpace(sourceID), req.GetString("title", ""))
	if err != nil {
		return failure("enqueue", err), nil
	}
	return jsonResult(job)
}

func (s *Server) handleListJobs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var statuses []string
	for _, part := range strings.Split(req.GetString("status", ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			statuses = append(statuses, part)
		}
	}
	jobs, err := s.queue.List(ctx, statuses)
	if err != nil {
		return failure("list jobs", err), nil
	}
	return jsonResult(jobs)
}

func (s *Server) handleListActions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		items []api.ActionItem
		err   error
	)
	if id := int64(req.GetFloat("customer_id", 0)); id > 0 {
		items, err = s.actions.CustomerActions(ctx, id, req.GetBool("include_completed", false))
	} else {
		items, err = s.actions.OpenActions(ctx, req.GetString("owner", ""))
	}
	if err != nil {
		return failure("list action items", err), nil
	}
	return jsonResult(items)
}

// failure reports a tool error to the client rather than failing the call.
func failure(op string, err error) *mcp.CallToolResult {
	msg := fmt.Sprintf("%s: %v", op, err)
	if code := api.ErrorCode(err); code != api.CodeInternal {
		msg = fmt.Sprintf("%s (%s)", msg, code)
	}
	return mcp.NewToolResultError(msg)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
