package preflight

import (
	"fmt"
	"os/exec"
	"strings"

	"revoice/internal/config"
)

// Requirement defines an external binary revoice relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a binary.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// CheckSystemDeps evaluates the binaries the configured backends need.
// Backends that are not selected are still listed, marked optional.
func CheckSystemDeps(cfg *config.Config) []Status {
	requirements := []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for audio extraction, clip normalization, and muxing",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for media duration probing",
		},
		{
			Name:        "uvx",
			Command:     "uvx",
			Description: "Runs WhisperX transcription",
			Optional:    cfg.Transcription.Backend != "whisperx",
		},
		{
			Name:        "edge-tts",
			Command:     "edge-tts",
			Description: "Edge speech synthesis",
			Optional:    cfg.Synthesis.Backend != "edge-tts",
		},
	}
	return CheckBinaries(requirements)
}
