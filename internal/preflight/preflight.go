package preflight

import (
	"context"
	"fmt"

	"meetflow/internal/config"
	"meetflow/internal/transcripts"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config. The Mermaid
// CLI is reported but never fails the run since rendering is optional.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Diagram directory", cfg.Paths.DiagramDir),
		CheckTranscripts(ctx, transcripts.NewFromConfig(cfg)),
		CheckLLM(ctx, "Analyzer LLM", cfg.GetLLM()),
	}

	for _, status := range CheckSystemDeps(cfg) {
		result := Result{Name: status.Name, Passed: status.Available || status.Optional}
		switch {
		case status.Available:
			result.Detail = status.Path
		case status.Optional:
			result.Detail = fmt.Sprintf("%s (optional; %s)", status.Detail, status.Description)
		default:
			result.Detail = status.Detail
		}
		results = append(results, result)
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
