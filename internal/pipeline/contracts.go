package pipeline

import (
	"context"
	"strings"
	"time"

	"meetflow/internal/records"
)

// Transcript is the raw text of one recorded session.
type Transcript struct {
	SourceID string
	Title    string
	Text     string
	Date     *time.Time
}

// TranscriptSource fetches transcripts by source session id.
type TranscriptSource interface {
	IsReady() bool
	Fetch(ctx context.Context, sourceID string) (*Transcript, error)
}

// CallType is the analyzer's classification of a session.
type CallType string

const (
	CallTechnical    CallType = "technical"
	CallPartner      CallType = "partner"
	CallNonTechnical CallType = "non-technical"
)

// ParseCallType maps free-form analyzer output onto a CallType. Anything
// unrecognised is reported as non-technical with ok=false.
func ParseCallType(value string) (CallType, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "technical", "tech":
		return CallTechnical, true
	case "partner":
		return CallPartner, true
	case "non-technical", "non_technical", "nontechnical":
		return CallNonTechnical, true
	default:
		return CallNonTechnical, false
	}
}

// WantsDiagram reports whether sessions of this type produce diagrams.
func (c CallType) WantsDiagram() bool {
	return c == CallTechnical || c == CallPartner
}

// ActionItem is an analyzer-produced follow-up before it is stored.
type ActionItem struct {
	Owner string `json:"owner"`
	Text  string `json:"text"`
}

// Analysis is the structured output of the analyzer for one transcript.
type Analysis struct {
	CallType     CallType
	CustomerName string
	Title        string
	Summary      string
	ActionItems  []ActionItem
	Components   []string
	Gaps         []string
	Diagram      string
}

// Analyzer classifies and summarises a transcript.
type Analyzer interface {
	IsReady() bool
	Analyze(ctx context.Context, transcript *Transcript) (*Analysis, error)
}

// Renderer validates diagram source and renders it to an image. Render
// returns the path of the produced artifact.
type Renderer interface {
	Validate(source string) error
	Render(ctx context.Context, source, name string) (string, error)
}

// RecordStore is the subset of the record store the orchestrator writes to.
type RecordStore interface {
	GetSessionNote(ctx context.Context, sourceID string) (*records.SessionNote, error)
	UpsertSessionNote(ctx context.Context, note records.SessionNote) (*records.SessionNote, error)
	ReplaceActionItems(ctx context.Context, note *records.SessionNote, customerID int64, items []records.NewActionItem) ([]*records.ActionItem, error)
	FindKnownCustomer(ctx context.Context, name string) (*records.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*records.Customer, error)
	CreateCustomer(ctx context.Context, name string, unknown bool) (*records.Customer, error)
	GetOrCreateDiagram(ctx context.Context, customerID int64) (*records.Diagram, error)
	AppendVersion(ctx context.Context, diagramID int64, source, notes string) (*records.DiagramVersion, error)
	SetVersionImage(ctx context.Context, versionID int64, imagePath string) error
}

var _ RecordStore = (*records.Store)(nil)
