package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePipeline()
	if err := c.normalizeTranscripts(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeRenderer()
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DiagramDir) == "" {
		c.Paths.DiagramDir = defaultDiagramDir
	}
	if c.Paths.DiagramDir, err = expandPath(c.Paths.DiagramDir); err != nil {
		return fmt.Errorf("paths.diagram_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("MEETFLOW_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizePipeline() {
	c.Pipeline.UnknownCustomerName = strings.TrimSpace(c.Pipeline.UnknownCustomerName)
	if c.Pipeline.UnknownCustomerName == "" {
		c.Pipeline.UnknownCustomerName = defaultUnknownCustomerName
	}
	if len(c.Pipeline.OwnerAliases) == 0 {
		return
	}
	aliases := make(map[string][]string, len(c.Pipeline.OwnerAliases))
	for canonical, variants := range c.Pipeline.OwnerAliases {
		canonical = strings.TrimSpace(canonical)
		if canonical == "" {
			continue
		}
		cleaned := make([]string, 0, len(variants))
		for _, variant := range variants {
			if trimmed := strings.TrimSpace(variant); trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		sort.Strings(cleaned)
		aliases[canonical] = cleaned
	}
	c.Pipeline.OwnerAliases = aliases
}

func (c *Config) normalizeTranscripts() error {
	c.Transcripts.BaseURL = strings.TrimRight(strings.TrimSpace(c.Transcripts.BaseURL), "/")
	c.Transcripts.APIKey = strings.TrimSpace(c.Transcripts.APIKey)
	if c.Transcripts.APIKey == "" {
		if value, ok := os.LookupEnv("MEETFLOW_TRANSCRIPTS_API_KEY"); ok {
			c.Transcripts.APIKey = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Transcripts.Dir) != "" {
		dir, err := expandPath(strings.TrimSpace(c.Transcripts.Dir))
		if err != nil {
			return fmt.Errorf("transcripts.dir: %w", err)
		}
		c.Transcripts.Dir = dir
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeRenderer() {
	c.Renderer.Binary = strings.TrimSpace(c.Renderer.Binary)
	if c.Renderer.Binary == "" {
		c.Renderer.Binary = defaultRendererBinary
	}
	c.Renderer.Format = strings.ToLower(strings.TrimSpace(c.Renderer.Format))
	if c.Renderer.Format == "" {
		c.Renderer.Format = defaultRendererFormat
	}
	c.Renderer.Theme = strings.TrimSpace(c.Renderer.Theme)
	c.Renderer.Background = strings.TrimSpace(c.Renderer.Background)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
