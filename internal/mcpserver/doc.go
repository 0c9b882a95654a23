// Package mcpserver exposes the queue and action items to MCP clients over
// stdio so assistants can queue sessions and read follow-ups.
//
// Tools:
//   - queue_status: worker state, pending count and recent outcomes
//   - enqueue_session: queue one transcript by source id
//   - list_jobs: jobs filtered by status
//   - list_action_items: open action items, by owner or for one customer
package mcpserver
