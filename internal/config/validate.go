package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateSynthesis(); err != nil {
		return err
	}
	if err := c.validateRateSearch(); err != nil {
		return err
	}
	if err := c.validateAssembly(); err != nil {
		return err
	}
	return c.validateMixing()
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Backend {
	case "openai", "whisperx":
	default:
		return fmt.Errorf("transcription.backend: unsupported value %q (want openai or whisperx)", c.Transcription.Backend)
	}
	switch c.Transcription.WhisperXVADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("transcription.whisperx_vad_method: unsupported value %q", c.Transcription.WhisperXVADMethod)
	}
	return nil
}

func (c *Config) validateSynthesis() error {
	switch c.Synthesis.Backend {
	case "openai", "edge-tts":
	default:
		return fmt.Errorf("synthesis.backend: unsupported value %q (want openai or edge-tts)", c.Synthesis.Backend)
	}
	return nil
}

func (c *Config) validateRateSearch() error {
	r := c.RateSearch
	switch r.Policy {
	case "band", "single":
	default:
		return fmt.Errorf("rate_search.policy: unsupported value %q (want band or single)", r.Policy)
	}
	if r.MaxAttempts < 1 {
		return errors.New("rate_search.max_attempts must be at least 1")
	}
	if r.LowerRatio <= 0 || r.LowerRatio >= 1 || r.UpperRatio <= 1 {
		return fmt.Errorf("rate_search ratio band [%.2f, %.2f] must satisfy 0 < lower < 1 < upper", r.LowerRatio, r.UpperRatio)
	}
	if r.MaxSpeedupPercent < 0 || r.MaxSlowdownPercent < 0 {
		return errors.New("rate_search speed bounds must be non-negative")
	}
	if r.MaxSlowdownPercent >= 100 {
		return errors.New("rate_search.max_slowdown_percent must be below 100")
	}
	if r.SingleThresholdRatio < 1 {
		return errors.New("rate_search.single_threshold_ratio must be at least 1")
	}
	return nil
}

func (c *Config) validateAssembly() error {
	if c.Assembly.SampleRate < 8000 {
		return fmt.Errorf("assembly.sample_rate must be at least 8000, got %d", c.Assembly.SampleRate)
	}
	return nil
}

func (c *Config) validateMixing() error {
	if c.Mixing.DuckDB > 0 || c.Mixing.DuckDB < -40 {
		return fmt.Errorf("mixing.duck_db must be between -40 and 0, got %.1f", c.Mixing.DuckDB)
	}
	return nil
}
