package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"meetflow/internal/config"
	"meetflow/internal/logging"
	"meetflow/internal/records"
	"meetflow/internal/services"
	"meetflow/internal/textutil"
)

// Collaborators bundles the external services the orchestrator calls.
type Collaborators struct {
	Source   TranscriptSource
	Analyzer Analyzer
	Renderer Renderer
}

// Orchestrator runs the transcript-to-records pipeline for one session.
type Orchestrator struct {
	store       RecordStore
	source      TranscriptSource
	analyzer    Analyzer
	renderer    Renderer
	owners      *OwnerNormalizer
	minChars    int
	unknownName string
	logger      *slog.Logger
}

// New constructs an orchestrator from configuration.
func New(cfg *config.Config, store RecordStore, c Collaborators, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &Orchestrator{
		store:       store,
		source:      c.Source,
		analyzer:    c.Analyzer,
		renderer:    c.Renderer,
		owners:      NewOwnerNormalizer(nil),
		unknownName: "Unknown Customer",
		logger:      logging.NewComponentLogger(logger, "pipeline"),
	}
	if cfg != nil {
		o.owners = NewOwnerNormalizer(cfg.Pipeline.OwnerAliases)
		o.minChars = cfg.Pipeline.MinTranscriptChars
		if name := strings.TrimSpace(cfg.Pipeline.UnknownCustomerName); name != "" {
			o.unknownName = name
		}
	}
	return o
}

// Process runs every step for sourceID. title overrides the transcript's own
// title when non-empty.
func (o *Orchestrator) Process(ctx context.Context, sourceID, title string) (*Result, error) {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return nil, services.Wrap(services.ErrValidation, StepValidate, "check session", "source id is required", nil)
	}
	ctx = services.WithSourceID(ctx, sourceID)

	if err := o.checkSession(ctx, sourceID); err != nil {
		return nil, err
	}
	if err := o.checkCollaborators(); err != nil {
		return nil, err
	}

	transcript, err := o.fetchTranscript(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if title = strings.TrimSpace(title); title == "" {
		title = strings.TrimSpace(transcript.Title)
	}
	if title != "" {
		titled := *transcript
		titled.Title = title
		transcript = &titled
	}

	analysis, err := o.analyze(ctx, transcript)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = strings.TrimSpace(analysis.Title)
	}

	result := &Result{
		SourceID: sourceID,
		Title:    title,
		CallType: analysis.CallType,
		Summary:  strings.TrimSpace(analysis.Summary),
	}

	var customer *records.Customer
	if analysis.CallType.WantsDiagram() && strings.TrimSpace(analysis.Diagram) != "" {
		customer, err = o.commitDiagram(ctx, analysis, title, result)
		if err != nil {
			return nil, err
		}
	}
	if customer == nil {
		customer, err = o.resolveCustomer(services.WithStep(ctx, StepCustomer), analysis.CustomerName)
		if err != nil {
			return nil, err
		}
	}
	result.Customer = customer

	if err := o.persistSession(ctx, transcript, title, analysis, result); err != nil {
		return nil, err
	}

	logging.WithContext(ctx, o.logger).Info("session processed",
		logging.String(logging.FieldEventType, "session_processed"),
		logging.String("call_type", string(result.CallType)),
		logging.String("customer", customer.Name),
		logging.Int("action_items", len(result.ActionItems)),
		logging.Bool("has_diagram", result.HasDiagram),
	)
	return result, nil
}

func (o *Orchestrator) checkSession(ctx context.Context, sourceID string) error {
	note, err := o.store.GetSessionNote(ctx, sourceID)
	if err != nil {
		return services.Wrap(services.ErrTransient, StepValidate, "load session note", "lookup failed", err)
	}
	if note == nil {
		return nil
	}
	if note.Skipped {
		return services.Wrap(ErrSkipped, StepValidate, "check session", "session is marked as skipped", nil)
	}
	return services.Wrap(ErrAlreadyProcessed, StepValidate, "check session", "session note already exists", nil)
}

func (o *Orchestrator) checkCollaborators() error {
	var missing []string
	if o.source == nil || !o.source.IsReady() {
		missing = append(missing, "transcript source")
	}
	if o.analyzer == nil || !o.analyzer.IsReady() {
		missing = append(missing, "analyzer")
	}
	if len(missing) == 0 {
		return nil
	}
	return services.Wrap(ErrNotConfigured, StepValidate, "check collaborators",
		strings.Join(missing, " and ")+" unavailable", nil)
}

func (o *Orchestrator) fetchTranscript(ctx context.Context, sourceID string) (*Transcript, error) {
	ctx = services.WithStep(ctx, StepFetch)
	transcript, err := o.source.Fetch(ctx, sourceID)
	if err != nil {
		return nil, classify(err, services.ErrUpstreamFetch, StepFetch, "fetch transcript", "transcript source request failed")
	}
	if transcript == nil {
		return nil, services.Wrap(ErrTranscriptTooShort, StepFetch, "fetch transcript", "transcript is empty", nil)
	}
	text := strings.TrimSpace(transcript.Text)
	if text == "" || utf8.RuneCountInString(text) < o.minChars {
		return nil, services.Wrap(ErrTranscriptTooShort, StepFetch, "check transcript",
			fmt.Sprintf("%d characters, need at least %d", utf8.RuneCountInString(text), o.minChars), nil)
	}
	transcript.Text = text
	if transcript.SourceID == "" {
		transcript.SourceID = sourceID
	}
	logging.WithContext(ctx, o.logger).Debug("transcript fetched",
		logging.Int("chars", utf8.RuneCountInString(text)),
	)
	return transcript, nil
}

func (o *Orchestrator) analyze(ctx context.Context, transcript *Transcript) (*Analysis, error) {
	ctx = services.WithStep(ctx, StepAnalyze)
	analysis, err := o.analyzer.Analyze(ctx, transcript)
	if err != nil {
		return nil, classify(err, services.ErrAnalysis, StepAnalyze, "analyze transcript", "analyzer request failed")
	}
	if analysis == nil {
		return nil, services.Wrap(services.ErrAnalysis, StepAnalyze, "analyze transcript", "analyzer returned no result", nil)
	}
	if callType, ok := ParseCallType(string(analysis.CallType)); ok {
		analysis.CallType = callType
	} else {
		logging.WarnWithContext(logging.WithContext(ctx, o.logger), "unrecognised call type; treating as non-technical",
			"call_type_unrecognised",
			logging.String("call_type", string(analysis.CallType)),
			logging.String(logging.FieldImpact, "no diagram is produced for this session"),
		)
		analysis.CallType = callType
	}
	analysis.ActionItems = o.owners.Normalize(analysis.ActionItems)
	return analysis, nil
}

// commitDiagram validates, stores and renders the analysed diagram. An
// invalid diagram is dropped with a warning and a nil customer is returned so
// resolution happens later. Rendering failures only cost the image.
func (o *Orchestrator) commitDiagram(ctx context.Context, analysis *Analysis, title string, result *Result) (*records.Customer, error) {
	ctx = services.WithStep(ctx, StepDiagram)
	logger := logging.WithContext(ctx, o.logger)
	source := strings.TrimSpace(analysis.Diagram)

	if o.renderer == nil {
		logging.WarnWithContext(logger, "renderer not configured; diagram dropped", "diagram_dropped",
			logging.String(logging.FieldErrorHint, "configure the renderer section"),
			logging.String(logging.FieldImpact, "session stored without a diagram"),
		)
		return nil, nil
	}
	if err := o.renderer.Validate(source); err != nil {
		logging.WarnWithContext(logger, "diagram failed validation; dropped", "diagram_invalid",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the analyzer diagram output"),
			logging.String(logging.FieldImpact, "session stored without a diagram"),
		)
		return nil, nil
	}

	customer, err := o.resolveCustomer(ctx, analysis.CustomerName)
	if err != nil {
		return nil, err
	}
	diagram, err := o.store.GetOrCreateDiagram(ctx, customer.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, StepDiagram, "get diagram", "diagram lookup failed", err)
	}
	version, err := o.store.AppendVersion(ctx, diagram.ID, source, versionNotes(title, result.SourceID))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, StepDiagram, "append version", "diagram version insert failed", err)
	}
	result.Diagram = diagram
	result.Version = version
	result.HasDiagram = true
	logger.Info("diagram version stored",
		logging.String(logging.FieldEventType, "diagram_version_stored"),
		logging.Int64("diagram_id", diagram.ID),
		logging.Int("version", version.Version),
	)

	o.render(ctx, customer, diagram, version, result)
	return customer, nil
}

func (o *Orchestrator) render(ctx context.Context, customer *records.Customer, diagram *records.Diagram, version *records.DiagramVersion, result *Result) {
	ctx = services.WithStep(ctx, StepRender)
	logger := logging.WithContext(ctx, o.logger)

	name := textutil.ArtifactName(customer.Name, diagram.ID, version.Version)
	path, err := o.renderer.Render(ctx, version.Source, name)
	if err != nil {
		err = classify(err, services.ErrRender, StepRender, "render diagram", "renderer failed")
		logging.WarnWithContext(logger, "diagram render failed; version kept without image", "diagram_render_failed",
			append(logging.FailureAttrs(err),
				logging.String(logging.FieldImpact, "diagram version has no image"),
			)...,
		)
		return
	}
	if err := o.store.SetVersionImage(ctx, version.ID, path); err != nil {
		logging.WarnWithContext(logger, "failed to record diagram image path", "diagram_image_update_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check records database access"),
			logging.String(logging.FieldImpact, "rendered image is not linked to its version"),
		)
		return
	}
	version.ImagePath = path
	result.Rendered = true
	logger.Info("diagram rendered",
		logging.String(logging.FieldEventType, "diagram_rendered"),
		logging.String("image_path", path),
	)
}

func (o *Orchestrator) persistSession(ctx context.Context, transcript *Transcript, title string, analysis *Analysis, result *Result) error {
	ctx = services.WithStep(ctx, StepPersist)
	customerID := result.Customer.ID
	note, err := o.store.UpsertSessionNote(ctx, records.SessionNote{
		SourceID:        result.SourceID,
		CustomerID:      &customerID,
		CallType:        string(analysis.CallType),
		Title:           title,
		Summary:         result.Summary,
		ActionItemsJSON: encodeList(analysis.ActionItems),
		ComponentsJSON:  encodeList(analysis.Components),
		GapsJSON:        encodeList(analysis.Gaps),
		SessionDate:     transcript.Date,
	})
	if errors.Is(err, records.ErrSessionSkipped) {
		return services.Wrap(ErrSkipped, StepPersist, "upsert session note", "session was skipped while processing", err)
	}
	if err != nil {
		return services.Wrap(services.ErrTransient, StepPersist, "upsert session note", "session note write failed", err)
	}
	result.Note = note

	items := make([]records.NewActionItem, 0, len(analysis.ActionItems))
	for _, item := range analysis.ActionItems {
		items = append(items, records.NewActionItem{Owner: item.Owner, Text: item.Text})
	}
	stored, err := o.store.ReplaceActionItems(ctx, note, customerID, items)
	if err != nil {
		return services.Wrap(services.ErrTransient, StepPersist, "replace action items", "action item write failed", err)
	}
	result.ActionItems = stored
	return nil
}

func versionNotes(title, sourceID string) string {
	if title == "" {
		return "session " + sourceID
	}
	return title + " (session " + sourceID + ")"
}

func encodeList[T any](values []T) string {
	if len(values) == 0 {
		return ""
	}
	data, err := json.Marshal(values)
	if err != nil {
		return ""
	}
	return string(data)
}
