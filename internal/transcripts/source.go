package transcripts

import (
	"context"
	"strings"
	"time"

	"meetflow/internal/config"
	"meetflow/internal/pipeline"
	"meetflow/internal/services"
)

// Source is a transcript source that can also be probed for reachability.
type Source interface {
	pipeline.TranscriptSource
	Describe() string
	Ping(ctx context.Context) error
}

// NewFromConfig returns the HTTP source when base_url is set, the directory
// source when dir is set, and nil otherwise.
func NewFromConfig(cfg *config.Config) Source {
	if cfg == nil {
		return nil
	}
	if base := strings.TrimSpace(cfg.Transcripts.BaseURL); base != "" {
		timeout := time.Duration(cfg.Transcripts.TimeoutSeconds) * time.Second
		return NewHTTPSource(base, cfg.Transcripts.APIKey, WithTimeout(timeout))
	}
	if dir := strings.TrimSpace(cfg.Transcripts.Dir); dir != "" {
		return NewDirSource(dir)
	}
	return nil
}

func validateSourceID(sourceID string) (string, error) {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return "", services.Wrap(services.ErrValidation, "fetch", "validate source id", "source id is empty", nil)
	}
	if strings.ContainsAny(sourceID, `/\`) || sourceID == "." || sourceID == ".." {
		return "", services.Wrap(services.ErrValidation, "fetch", "validate source id", "source id contains path separators", nil)
	}
	return sourceID, nil
}

func parseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, time.DateTime, time.DateOnly} {
		if ts, err := time.Parse(layout, value); err == nil {
			ts = ts.UTC()
			return &ts
		}
	}
	return nil
}
