package tts

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"

	"revoice/internal/config"
)

const (
	minOpenAISpeed = 0.25
	maxOpenAISpeed = 4.0
)

// speechClient is the subset of the go-openai client used here.
type speechClient interface {
	CreateSpeech(ctx context.Context, request openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// OpenAI renders speech through the OpenAI-compatible speech endpoint.
type OpenAI struct {
	client speechClient
	model  string
}

// NewOpenAI builds a backend from synthesis config.
func NewOpenAI(cfg config.Synthesis) *OpenAI {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return newOpenAIWithClient(openai.NewClientWithConfig(clientConfig), cfg.Model)
}

func newOpenAIWithClient(client speechClient, model string) *OpenAI {
	if strings.TrimSpace(model) == "" {
		model = string(openai.TTSModel1)
	}
	return &OpenAI{client: client, model: model}
}

func (o *OpenAI) Name() string { return "openai" }

// Render writes OutputBase+".mp3".
func (o *OpenAI) Render(ctx context.Context, req Request) (string, error) {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.model),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(req.Voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          SpeedFactor(req.RatePercent),
	})
	if err != nil {
		return "", fmt.Errorf("create speech: %w", err)
	}
	defer resp.Close()

	path := req.OutputBase + ".mp3"
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create clip file: %w", err)
	}
	if _, err := io.Copy(out, resp); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write clip file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close clip file: %w", err)
	}
	return path, nil
}

// SpeedFactor maps a signed rate percent to the multiplicative speed the
// speech endpoint accepts.
func SpeedFactor(ratePercent int) float64 {
	speed := 1 + float64(ratePercent)/100
	return max(minOpenAISpeed, min(speed, maxOpenAISpeed))
}
