package testsupport

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"meetflow/internal/pipeline"
)

// StubSource serves transcripts from memory.
type StubSource struct {
	mu          sync.Mutex
	NotReady    bool
	Transcripts map[string]string
	Err         error
	Fetched     []string
}

// NewStubSource returns a ready source holding the given id -> text pairs.
func NewStubSource(pairs map[string]string) *StubSource {
	if pairs == nil {
		pairs = map[string]string{}
	}
	return &StubSource{Transcripts: pairs}
}

func (s *StubSource) IsReady() bool { return !s.NotReady }

// Put adds or replaces a transcript.
func (s *StubSource) Put(sourceID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Transcripts[sourceID] = text
}

func (s *StubSource) Fetch(_ context.Context, sourceID string) (*pipeline.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fetched = append(s.Fetched, sourceID)
	if s.Err != nil {
		return nil, s.Err
	}
	text, ok := s.Transcripts[sourceID]
	if !ok {
		return nil, fmt.Errorf("transcript %s not found", sourceID)
	}
	return &pipeline.Transcript{SourceID: sourceID, Title: "Session " + sourceID, Text: text}, nil
}

// StubAnalyzer returns a canned analysis, optionally per source id.
type StubAnalyzer struct {
	mu       sync.Mutex
	NotReady bool
	Default  pipeline.Analysis
	BySource map[string]pipeline.Analysis
	Err      error
	Calls    int
	Titles   []string
}

func (a *StubAnalyzer) IsReady() bool { return !a.NotReady }

func (a *StubAnalyzer) Analyze(_ context.Context, transcript *pipeline.Transcript) (*pipeline.Analysis, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Calls++
	a.Titles = append(a.Titles, transcript.Title)
	if a.Err != nil {
		return nil, a.Err
	}
	analysis := a.Default
	if specific, ok := a.BySource[transcript.SourceID]; ok {
		analysis = specific
	}
	analysis.ActionItems = append([]pipeline.ActionItem(nil), analysis.ActionItems...)
	return &analysis, nil
}

// ErrStubInvalidDiagram is returned by StubRenderer.Validate for rejected sources.
var ErrStubInvalidDiagram = errors.New("invalid diagram")

// StubRenderer accepts diagrams starting with a Mermaid keyword and pretends
// to render them into Dir.
type StubRenderer struct {
	mu        sync.Mutex
	Dir       string
	RenderErr error
	Rendered  []string
}

func (r *StubRenderer) Validate(source string) error {
	for _, prefix := range []string{"graph", "flowchart", "sequenceDiagram", "mindmap"} {
		if len(source) >= len(prefix) && source[:len(prefix)] == prefix {
			return nil
		}
	}
	return ErrStubInvalidDiagram
}

func (r *StubRenderer) Render(_ context.Context, _ string, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.RenderErr != nil {
		return "", r.RenderErr
	}
	r.Rendered = append(r.Rendered, name)
	return filepath.Join(r.Dir, name+".png"), nil
}
