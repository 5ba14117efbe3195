package preflight

import (
	"context"

	"revoice/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Remote checks only run for backends that use them.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Sessions directory", cfg.Paths.SessionsDir),
		CheckFreeSpace("Sessions disk", cfg.Paths.SessionsDir, MinFreeBytes),
	}

	for _, status := range CheckSystemDeps(cfg) {
		if status.Optional {
			continue
		}
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Command
		}
		results = append(results, result)
	}

	return append(results, CheckAPIs(ctx, cfg)...)
}

// CheckAPIs checks each distinct OpenAI-compatible endpoint the config uses.
func CheckAPIs(ctx context.Context, cfg *config.Config) []Result {
	var results []Result
	for _, endpoint := range openAIEndpoints(cfg) {
		results = append(results, CheckOpenAI(ctx, endpoint.name, endpoint.apiKey, endpoint.baseURL))
	}
	return results
}

// Failed filters the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

type endpoint struct {
	name    string
	apiKey  string
	baseURL string
}

// openAIEndpoints lists distinct OpenAI-compatible endpoints in use. Stages
// sharing a key and base URL are checked once.
func openAIEndpoints(cfg *config.Config) []endpoint {
	candidates := []endpoint{
		{name: "Translation API", apiKey: cfg.Translation.APIKey, baseURL: cfg.Translation.BaseURL},
	}
	if cfg.Transcription.Backend == "openai" {
		candidates = append(candidates, endpoint{name: "Transcription API", apiKey: cfg.Transcription.APIKey, baseURL: cfg.Transcription.BaseURL})
	}
	if cfg.Synthesis.Backend == "openai" {
		candidates = append(candidates, endpoint{name: "Speech API", apiKey: cfg.Synthesis.APIKey, baseURL: cfg.Synthesis.BaseURL})
	}
	seen := make(map[[2]string]bool, len(candidates))
	var out []endpoint
	for _, c := range candidates {
		key := [2]string{c.apiKey, c.baseURL}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
