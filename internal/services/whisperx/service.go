package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	langpkg "revoice/internal/language"
)

// Config captures runtime settings for WhisperX.
type Config struct {
	Model       string
	CUDAEnabled bool
	// VADMethod is "silero" or "pyannote". Pyannote needs HFToken.
	VADMethod string
	HFToken   string
}

const (
	DefaultModel      = "large-v3"
	UVXCommand        = "uvx"
	CUDAIndexURL      = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL      = "https://pypi.org/simple"
	VADMethodPyannote = "pyannote"
	VADMethodSilero   = "silero"
)

// Decoding parameters passed verbatim to WhisperX.
const (
	batchSize         = "4"
	chunkSize         = "15"
	vadOnset          = "0.08"
	vadOffset         = "0.07"
	beamSize          = "10"
	bestOf            = "10"
	temperature       = "0.0"
	patience          = "1.0"
	segmentResolution = "sentence"
	outputFormat      = "json"
	cpuComputeType    = "float32"
)

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Service invokes WhisperX.
type Service struct {
	cfg Config
	run CommandRunner
}

// NewService creates a WhisperX service.
func NewService(cfg Config) *Service {
	return &Service{cfg: cfg, run: defaultRunner}
}

// WithCommandRunner replaces the process runner (tests).
func (s *Service) WithCommandRunner(runner CommandRunner) {
	if runner != nil {
		s.run = runner
	}
}

// Model returns the effective model name.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// VADMethod returns the effective VAD method. Pyannote without a token
// falls back to silero.
func (s *Service) VADMethod() string {
	if s.cfg.VADMethod == VADMethodPyannote && strings.TrimSpace(s.cfg.HFToken) != "" {
		return VADMethodPyannote
	}
	return VADMethodSilero
}

// Segment is one sentence-level span from WhisperX output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Result holds a parsed WhisperX run.
type Result struct {
	Language string
	Segments []Segment
	JSONPath string
}

type payload struct {
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// Transcribe runs WhisperX on source and parses the JSON it writes into
// outputDir. An empty language lets WhisperX detect it.
func (s *Service) Transcribe(ctx context.Context, source, outputDir, language string) (Result, error) {
	if source == "" {
		return Result{}, fmt.Errorf("transcribe: source path required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	if err := s.run(ctx, UVXCommand, s.buildArgs(source, outputDir, language)...); err != nil {
		return Result{}, fmt.Errorf("whisperx: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	jsonPath := filepath.Join(outputDir, baseName+".json")
	parsed, err := Load(jsonPath)
	if err != nil {
		return Result{}, err
	}
	parsed.JSONPath = jsonPath
	if parsed.Language == "" {
		parsed.Language = langpkg.ToISO2(language)
	}
	return parsed, nil
}

// Load parses a WhisperX JSON file.
func Load(jsonPath string) (Result, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return Result{}, fmt.Errorf("read whisperx json: %w", err)
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Result{}, fmt.Errorf("parse whisperx json: %w", err)
	}
	return Result{Language: p.Language, Segments: p.Segments}, nil
}

func (s *Service) buildArgs(source, outputDir, language string) []string {
	args := make([]string, 0, 40)

	if s.cfg.CUDAEnabled {
		args = append(args, "--index-url", CUDAIndexURL, "--extra-index-url", PypiIndexURL)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", s.Model(),
		"--batch_size", batchSize,
		"--output_dir", outputDir,
		"--output_format", outputFormat,
		"--segment_resolution", segmentResolution,
		"--chunk_size", chunkSize,
		"--vad_onset", vadOnset,
		"--vad_offset", vadOffset,
		"--beam_size", beamSize,
		"--best_of", bestOf,
		"--temperature", temperature,
		"--patience", patience,
	)

	vad := s.VADMethod()
	args = append(args, "--vad_method", vad)
	if vad == VADMethodPyannote {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}

	if lang := langpkg.ToISO2(language); lang != "" {
		args = append(args, "--language", lang)
	}

	if s.cfg.CUDAEnabled {
		args = append(args, "--device", "cuda")
	} else {
		args = append(args, "--device", "cpu", "--compute_type", cpuComputeType)
	}
	return args
}

func defaultRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 defaults torch.load to weights_only; WhisperX checkpoints need the legacy loader.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
