package config

const (
	defaultDownloadDir           = "~/paperrouter/downloads"
	defaultLogDir                = "~/.local/share/paperrouter/logs"
	defaultSpeedProfile          = "safe"
	defaultRetryAttempts         = 5
	defaultRetryBackoffSeconds   = 2
	defaultRequestTimeoutSeconds = 30
	defaultUserAgent             = "PaperRouter/1.0 (educational research)"
	defaultOCRMode               = "none"
	defaultSuryaBinary           = "surya-page-ocr"
	defaultHarnessMemoryFraction = 0.75
	defaultHarnessTimeoutMinutes = 120
	defaultHarnessPollSeconds    = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			LogDir:      defaultLogDir,
		},
		Network: Network{
			SpeedProfile:          defaultSpeedProfile,
			RetryAttempts:         defaultRetryAttempts,
			RetryBackoffSeconds:   defaultRetryBackoffSeconds,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			UserAgent:             defaultUserAgent,
		},
		OCR: OCR{
			Mode:        defaultOCRMode,
			SuryaBinary: defaultSuryaBinary,
		},
		Harness: Harness{
			MemoryFraction: defaultHarnessMemoryFraction,
			TimeoutMinutes: defaultHarnessTimeoutMinutes,
			PollSeconds:    defaultHarnessPollSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
