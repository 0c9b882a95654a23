// Package llm talks to an OpenRouter-compatible chat completion endpoint and
// turns meeting transcripts into structured analyses.
//
// Client.CompleteJSON sends a system/user prompt pair and returns the JSON
// text the model produced, tolerating code fences, tool-call arguments and
// streaming-shaped responses. Requests are retried on 408, 429, 5xx, empty
// content and network timeouts with exponential backoff (1s base, 10s cap,
// five attempts by default); context cancellation stops retries at once.
//
// Analyzer implements pipeline.Analyzer on top of the client: it prompts for
// call classification, customer name, summary, action items, components, gaps
// and a Mermaid diagram, then maps the JSON onto pipeline.Analysis.
package llm
