package config

const (
	defaultConfigPath           = "~/.config/meetflow/config.toml"
	defaultDataDir              = "~/.local/share/meetflow"
	defaultLogDir               = "~/.local/share/meetflow/logs"
	defaultDiagramDir           = "~/.local/share/meetflow/diagrams"
	defaultAPIBind              = "127.0.0.1:7488"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
	defaultPollInterval         = 3
	defaultErrorRetryInterval   = 10
	defaultRecentWindow         = 10
	defaultPruneCompletedDays   = 30
	defaultPruneInterval        = 3600
	defaultMinTranscriptChars   = 200
	defaultUnknownCustomerName  = "Unknown Customer"
	defaultTranscriptsTimeout   = 60
	defaultLLMBaseURL           = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel             = "google/gemini-3-flash-preview"
	defaultLLMReferer           = "https://github.com/meetflow/meetflow"
	defaultLLMTitle             = "meetflow transcript analyzer"
	defaultLLMTimeoutSeconds    = 120
	defaultRendererBinary       = "mmdc"
	defaultRendererFormat       = "png"
	defaultRendererTheme        = "default"
	defaultRendererBackground   = "white"
	defaultRendererTimeout      = 60
	defaultNotifyRequestTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			DiagramDir: defaultDiagramDir,
			APIBind:    defaultAPIBind,
		},
		Worker: Worker{
			PollInterval:       defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			RecentWindow:       defaultRecentWindow,
			PruneCompletedDays: defaultPruneCompletedDays,
			PruneInterval:      defaultPruneInterval,
		},
		Pipeline: Pipeline{
			MinTranscriptChars:  defaultMinTranscriptChars,
			UnknownCustomerName: defaultUnknownCustomerName,
		},
		Transcripts: Transcripts{
			TimeoutSeconds: defaultTranscriptsTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Renderer: Renderer{
			Binary:         defaultRendererBinary,
			Format:         defaultRendererFormat,
			Theme:          defaultRendererTheme,
			Background:     defaultRendererBackground,
			TimeoutSeconds: defaultRendererTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Completed:      true,
			Failed:         true,
			Queue:          true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
