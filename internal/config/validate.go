package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateTranscripts(); err != nil {
		return err
	}
	if err := c.validateRenderer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorker() error {
	if err := ensurePositiveMap(map[string]int{
		"worker.poll_interval":        c.Worker.PollInterval,
		"worker.error_retry_interval": c.Worker.ErrorRetryInterval,
		"worker.recent_window":        c.Worker.RecentWindow,
		"worker.prune_interval":       c.Worker.PruneInterval,
		"llm.timeout_seconds":         c.LLM.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Worker.PruneCompletedDays < 0 {
		return errors.New("worker.prune_completed_days must be >= 0")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.MinTranscriptChars < 0 {
		return errors.New("pipeline.min_transcript_chars must be >= 0")
	}
	seen := make(map[string]string)
	for canonical, variants := range c.Pipeline.OwnerAliases {
		for _, variant := range variants {
			key := strings.ToLower(variant)
			if prior, ok := seen[key]; ok && prior != canonical {
				return fmt.Errorf("pipeline.owner_aliases: %q is listed under both %q and %q", variant, prior, canonical)
			}
			seen[key] = canonical
		}
	}
	return nil
}

func (c *Config) validateTranscripts() error {
	if c.Transcripts.BaseURL != "" {
		parsed, err := url.Parse(c.Transcripts.BaseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("transcripts.base_url must be an absolute URL, got %q", c.Transcripts.BaseURL)
		}
	}
	if c.Transcripts.TimeoutSeconds <= 0 {
		return errors.New("transcripts.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateRenderer() error {
	switch c.Renderer.Format {
	case "png", "svg", "pdf":
	default:
		return fmt.Errorf("renderer.format must be one of png, svg, pdf, got %q", c.Renderer.Format)
	}
	if c.Renderer.TimeoutSeconds <= 0 {
		return errors.New("renderer.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
