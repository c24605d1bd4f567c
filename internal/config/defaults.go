package config

const (
	defaultDataDir               = "~/.local/share/dispatch"
	defaultLogDir                = "~/.local/share/dispatch/logs"
	defaultAPIBind               = "127.0.0.1:7519"
	defaultBridgeBind            = "127.0.0.1:7520"
	defaultBridgeMaxPromptBytes  = 1 << 16
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel              = "google/gemini-3-flash-preview"
	defaultLLMTimeoutSeconds     = 60
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultWorkerPollSeconds     = 5
	defaultContentionDelayMillis = 250
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Bridge: Bridge{
			Bind:           defaultBridgeBind,
			MaxPromptBytes: defaultBridgeMaxPromptBytes,
		},
		Worker: Worker{
			Enabled:               true,
			PollIntervalSeconds:   defaultWorkerPollSeconds,
			ContentionDelayMillis: defaultContentionDelayMillis,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
