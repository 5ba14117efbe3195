package tts

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const edgeCommand = "edge-tts"

type commandRunner func(ctx context.Context, name string, args ...string) error

// Edge renders speech with the edge-tts command-line client.
type Edge struct {
	binary string
	run    commandRunner
}

// NewEdge returns an edge-tts backend. A nil runner executes the binary.
func NewEdge(binary string, run commandRunner) *Edge {
	if strings.TrimSpace(binary) == "" {
		binary = edgeCommand
	}
	if run == nil {
		run = defaultCommandRunner
	}
	return &Edge{binary: binary, run: run}
}

func (e *Edge) Name() string { return "edge-tts" }

// Render writes OutputBase+".mp3".
func (e *Edge) Render(ctx context.Context, req Request) (string, error) {
	path := req.OutputBase + ".mp3"
	args := []string{
		"--voice", req.Voice,
		"--rate=" + FormatRate(req.RatePercent),
		"--text", req.Text,
		"--write-media", path,
	}
	if err := e.run(ctx, e.binary, args...); err != nil {
		return "", fmt.Errorf("edge-tts: %w", err)
	}
	return path, nil
}

// FormatRate renders a signed rate percent as the literal edge-tts expects,
// e.g. 15 -> "+15%", -10 -> "-10%", 0 -> "+0%".
func FormatRate(ratePercent int) string {
	return fmt.Sprintf("%+d%%", ratePercent)
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
