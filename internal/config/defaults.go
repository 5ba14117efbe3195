package config

const (
	defaultSessionsDir             = "~/.local/share/revoice/sessions"
	defaultLogDir                  = "~/.local/share/revoice/logs"
	defaultAPIBind                 = "127.0.0.1:7490"
	defaultTranscriptionBackend    = "openai"
	defaultTranscriptionModel      = "whisper-1"
	defaultWhisperXModel           = "large-v2"
	defaultWhisperXVADMethod       = "silero"
	defaultTranscriptionTimeout    = 600
	defaultOpenAIBaseURL           = "https://api.openai.com/v1"
	defaultTranslationModel        = "gpt-4o-mini"
	defaultTranslationTimeout      = 60
	defaultTranslationConcurrency  = 4
	defaultSynthesisBackend        = "openai"
	defaultSynthesisModel          = "tts-1"
	defaultOpenAIVoice             = "alloy"
	defaultEdgeVoice               = "de-DE-FlorianMultilingualNeural"
	defaultSynthesisTimeout        = 60
	defaultSynthesisConcurrency    = 4
	defaultRatePolicy              = "band"
	defaultMaxAttempts             = 3
	defaultLowerRatio              = 0.85
	defaultUpperRatio              = 1.10
	defaultMaxSpeedupPercent       = 85
	defaultMaxSlowdownPercent      = 20
	defaultSpeedupMarginPercent    = 15
	defaultSingleThresholdRatio    = 1.01
	defaultSingleMaxSpeedupPercent = 99
	defaultSampleRate              = 24000
	defaultOverrunToleranceMS      = 100
	defaultDuckDB                  = -20
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SessionsDir: defaultSessionsDir,
			LogDir:      defaultLogDir,
			APIBind:     defaultAPIBind,
		},
		Transcription: Transcription{
			Backend:           defaultTranscriptionBackend,
			Model:             defaultTranscriptionModel,
			BaseURL:           defaultOpenAIBaseURL,
			TimeoutSeconds:    defaultTranscriptionTimeout,
			WhisperXVADMethod: defaultWhisperXVADMethod,
		},
		Translation: Translation{
			BaseURL:        defaultOpenAIBaseURL,
			Model:          defaultTranslationModel,
			TimeoutSeconds: defaultTranslationTimeout,
			Concurrency:    defaultTranslationConcurrency,
		},
		Synthesis: Synthesis{
			Backend:        defaultSynthesisBackend,
			Model:          defaultSynthesisModel,
			BaseURL:        defaultOpenAIBaseURL,
			TimeoutSeconds: defaultSynthesisTimeout,
			Concurrency:    defaultSynthesisConcurrency,
		},
		RateSearch: RateSearch{
			Policy:                  defaultRatePolicy,
			MaxAttempts:             defaultMaxAttempts,
			LowerRatio:              defaultLowerRatio,
			UpperRatio:              defaultUpperRatio,
			MaxSpeedupPercent:       defaultMaxSpeedupPercent,
			MaxSlowdownPercent:      defaultMaxSlowdownPercent,
			SpeedupMarginPercent:    defaultSpeedupMarginPercent,
			SingleThresholdRatio:    defaultSingleThresholdRatio,
			SingleMaxSpeedupPercent: defaultSingleMaxSpeedupPercent,
		},
		Assembly: Assembly{
			SampleRate:         defaultSampleRate,
			OverrunToleranceMS: defaultOverrunToleranceMS,
		},
		Mixing: Mixing{
			Enabled: true,
			DuckDB:  defaultDuckDB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
