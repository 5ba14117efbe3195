package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranscription()
	c.normalizeTranslation()
	c.normalizeSynthesis()
	c.normalizeRateSearch()
	c.normalizeAssembly()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.SessionsDir) == "" {
		c.Paths.SessionsDir = defaultSessionsDir
	}
	if c.Paths.SessionsDir, err = expandPath(c.Paths.SessionsDir); err != nil {
		return fmt.Errorf("paths.sessions_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeTranscription() {
	t := &c.Transcription
	t.Backend = strings.ToLower(strings.TrimSpace(t.Backend))
	if t.Backend == "" {
		t.Backend = defaultTranscriptionBackend
	}
	t.Model = strings.TrimSpace(t.Model)
	if t.Model == "" || (t.Backend == "whisperx" && t.Model == defaultTranscriptionModel) {
		if t.Backend == "whisperx" {
			t.Model = defaultWhisperXModel
		} else {
			t.Model = defaultTranscriptionModel
		}
	}
	t.Language = strings.ToLower(strings.TrimSpace(t.Language))
	t.BaseURL = strings.TrimSpace(t.BaseURL)
	if t.BaseURL == "" {
		t.BaseURL = defaultOpenAIBaseURL
	}
	t.APIKey = strings.TrimSpace(t.APIKey)
	if t.APIKey == "" {
		t.APIKey = lookupEnv("OPENAI_API_KEY")
	}
	if t.TimeoutSeconds <= 0 {
		t.TimeoutSeconds = defaultTranscriptionTimeout
	}
	t.WhisperXVADMethod = strings.ToLower(strings.TrimSpace(t.WhisperXVADMethod))
	if t.WhisperXVADMethod == "" {
		t.WhisperXVADMethod = defaultWhisperXVADMethod
	}
	t.WhisperXHFToken = strings.TrimSpace(t.WhisperXHFToken)
	if t.WhisperXHFToken == "" {
		if value := lookupEnv("HUGGING_FACE_HUB_TOKEN"); value != "" {
			t.WhisperXHFToken = value
		} else {
			t.WhisperXHFToken = lookupEnv("HF_TOKEN")
		}
	}
}

func (c *Config) normalizeTranslation() {
	t := &c.Translation
	t.APIKey = strings.TrimSpace(t.APIKey)
	if t.APIKey == "" {
		if value := lookupEnv("REVOICE_TRANSLATION_API_KEY"); value != "" {
			t.APIKey = value
		} else {
			t.APIKey = lookupEnv("OPENAI_API_KEY")
		}
	}
	t.BaseURL = strings.TrimSpace(t.BaseURL)
	if t.BaseURL == "" {
		t.BaseURL = defaultOpenAIBaseURL
	}
	t.Model = strings.TrimSpace(t.Model)
	if t.Model == "" {
		t.Model = defaultTranslationModel
	}
	if t.TimeoutSeconds <= 0 {
		t.TimeoutSeconds = defaultTranslationTimeout
	}
	if t.Concurrency <= 0 {
		t.Concurrency = defaultTranslationConcurrency
	}
}

func (c *Config) normalizeSynthesis() {
	s := &c.Synthesis
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	if s.Backend == "" {
		s.Backend = defaultSynthesisBackend
	}
	s.Voice = strings.TrimSpace(s.Voice)
	if s.Voice == "" {
		if s.Backend == "edge-tts" {
			s.Voice = defaultEdgeVoice
		} else {
			s.Voice = defaultOpenAIVoice
		}
	}
	s.Model = strings.TrimSpace(s.Model)
	if s.Model == "" {
		s.Model = defaultSynthesisModel
	}
	s.BaseURL = strings.TrimSpace(s.BaseURL)
	if s.BaseURL == "" {
		s.BaseURL = defaultOpenAIBaseURL
	}
	s.APIKey = strings.TrimSpace(s.APIKey)
	if s.APIKey == "" {
		s.APIKey = lookupEnv("OPENAI_API_KEY")
	}
	if s.TimeoutSeconds <= 0 {
		s.TimeoutSeconds = defaultSynthesisTimeout
	}
	if s.Concurrency <= 0 {
		s.Concurrency = defaultSynthesisConcurrency
	}
}

func (c *Config) normalizeRateSearch() {
	r := &c.RateSearch
	r.Policy = strings.ToLower(strings.TrimSpace(r.Policy))
	if r.Policy == "" {
		r.Policy = defaultRatePolicy
	}
	if r.SingleThresholdRatio <= 0 {
		r.SingleThresholdRatio = defaultSingleThresholdRatio
	}
	if r.SingleMaxSpeedupPercent <= 0 {
		r.SingleMaxSpeedupPercent = defaultSingleMaxSpeedupPercent
	}
}

func (c *Config) normalizeAssembly() {
	if c.Assembly.SampleRate == 0 {
		c.Assembly.SampleRate = defaultSampleRate
	}
	if c.Assembly.OverrunToleranceMS < 0 {
		c.Assembly.OverrunToleranceMS = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func lookupEnv(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
