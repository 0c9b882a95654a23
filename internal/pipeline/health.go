package pipeline

import "context"

// Health summarizes the readiness of one collaborator.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

type readiness interface {
	IsReady() bool
}

// Health reports readiness for each collaborator the orchestrator uses.
func (o *Orchestrator) Health(_ context.Context) []Health {
	return []Health{
		check("transcripts", o.source),
		check("analyzer", o.analyzer),
		check("renderer", o.renderer),
	}
}

func check(name string, c any) Health {
	if c == nil {
		return Health{Name: name, Detail: "not configured"}
	}
	if r, ok := c.(readiness); ok && !r.IsReady() {
		return Health{Name: name, Detail: "not ready"}
	}
	return Health{Name: name, Ready: true}
}
