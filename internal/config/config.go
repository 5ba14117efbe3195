package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	SessionsDir string `toml:"sessions_dir"`
	LogDir      string `toml:"log_dir"`
	APIBind     string `toml:"api_bind"`
}

// Transcription selects and tunes the speech-to-text backend.
type Transcription struct {
	Backend string `toml:"backend"` // "openai" or "whisperx"
	Model   string `toml:"model"`
	// Language forces the source language; empty lets the backend detect it.
	Language          string `toml:"language"`
	APIKey            string `toml:"api_key"`
	BaseURL           string `toml:"base_url"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	WhisperXCUDA      bool   `toml:"whisperx_cuda_enabled"`
	WhisperXVADMethod string `toml:"whisperx_vad_method"`
	WhisperXHFToken   string `toml:"whisperx_hf_token"`
}

// Translation contains settings for the chat-completion translator.
type Translation struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// Concurrency bounds parallel segment requests per transcript.
	Concurrency int `toml:"concurrency"`
}

// Synthesis configures the text-to-speech backend.
type Synthesis struct {
	Backend        string `toml:"backend"` // "openai" or "edge-tts"
	Voice          string `toml:"voice"`
	Model          string `toml:"model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Concurrency    int    `toml:"concurrency"`
}

// RateSearch tunes how synthesized clips are fitted into their windows.
type RateSearch struct {
	// Policy is "band" (bidirectional, bounded retries) or "single"
	// (one speed-up correction for overlong clips only).
	Policy                  string  `toml:"policy"`
	MaxAttempts             int     `toml:"max_attempts"`
	LowerRatio              float64 `toml:"lower_ratio"`
	UpperRatio              float64 `toml:"upper_ratio"`
	MaxSpeedupPercent       int     `toml:"max_speedup_percent"`
	MaxSlowdownPercent      int     `toml:"max_slowdown_percent"`
	SpeedupMarginPercent    int     `toml:"speedup_margin_percent"`
	SingleThresholdRatio    float64 `toml:"single_threshold_ratio"`
	SingleMaxSpeedupPercent int     `toml:"single_max_speedup_percent"`
}

// Assembly contains settings for building the dubbed audio track.
type Assembly struct {
	SampleRate         int     `toml:"sample_rate"`
	OverrunToleranceMS float64 `toml:"overrun_tolerance_ms"`
	KeepSegments       bool    `toml:"keep_segments"`
}

// Mixing controls the ducking mix of the original audio under the dub.
type Mixing struct {
	Enabled bool    `toml:"enabled"`
	DuckDB  float64 `toml:"duck_db"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for revoice.
//
// Configuration sections by subsystem:
//   - Paths: session working directories, logs, API bind address
//   - Transcription: speech-to-text backend (OpenAI Whisper or WhisperX)
//   - Translation: chat-completion translator
//   - Synthesis: text-to-speech backend (OpenAI speech or edge-tts)
//   - RateSearch: clip fitting policy and bounds
//   - Assembly: track sample rate and overrun tolerance
//   - Mixing: ducking of the original audio
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Transcription Transcription `toml:"transcription"`
	Translation   Translation   `toml:"translation"`
	Synthesis     Synthesis     `toml:"synthesis"`
	RateSearch    RateSearch    `toml:"rate_search"`
	Assembly      Assembly      `toml:"assembly"`
	Mixing        Mixing        `toml:"mixing"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/revoice/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("revoice.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for CLI and server operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.SessionsDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for duration probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// DatabasePath returns the SQLite session database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.SessionsDir, "sessions.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
