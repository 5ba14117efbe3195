package dub_test

import (
	"errors"
	"testing"

	"revoice/internal/config"
	"revoice/internal/dub"
	"revoice/internal/services"
)

func TestBandPolicyDecide(t *testing.T) {
	p := dub.DefaultBandPolicy()
	tests := []struct {
		name    string
		attempt int
		rate    int
		ratio   float64
		verdict dub.Verdict
		next    int
	}{
		{"inside band", 1, 0, 1.0, dub.VerdictAccept, 0},
		{"lower edge", 1, 0, 0.85, dub.VerdictAccept, 0},
		{"upper edge", 1, 0, 1.10, dub.VerdictAccept, 0},
		{"too long adds margin", 1, 0, 1.5, dub.VerdictRetry, 65},
		{"too long clamps to max speedup", 1, 0, 3.0, dub.VerdictRetry, 85},
		{"too short slows down", 1, 0, 0.84, dub.VerdictRetry, -19},
		{"too short clamps to max slowdown", 1, 0, 0.5, dub.VerdictRetry, -20},
		{"corrections accumulate", 2, 30, 1.2, dub.VerdictRetry, 65},
		{"overshoot backs off the speed-up", 2, 65, 0.8, dub.VerdictRetry, 40},
		{"no progress at clamp degrades", 2, 85, 1.4, dub.VerdictDegraded, 85},
		{"no progress at slow clamp degrades", 2, -20, 0.7, dub.VerdictDegraded, -20},
		{"budget exhausted degrades", 3, 10, 1.3, dub.VerdictDegraded, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Decide(tt.attempt, tt.rate, tt.ratio)
			if got.Verdict != tt.verdict || got.NextRate != tt.next {
				t.Fatalf("Decide(%d, %d, %v) = %v/%d, want %v/%d",
					tt.attempt, tt.rate, tt.ratio, got.Verdict, got.NextRate, tt.verdict, tt.next)
			}
		})
	}
}

func TestSinglePolicyDecide(t *testing.T) {
	p := dub.DefaultSinglePolicy()
	tests := []struct {
		name    string
		attempt int
		rate    int
		ratio   float64
		verdict dub.Verdict
		next    int
	}{
		{"short clip accepted as is", 1, 0, 0.4, dub.VerdictAccept, 0},
		{"within threshold", 1, 0, 1.01, dub.VerdictAccept, 0},
		{"overlong speeds up by overrun", 1, 0, 1.5, dub.VerdictRetry, 50},
		{"speedup clamps to 99", 1, 0, 2.5, dub.VerdictRetry, 99},
		{"corrected attempt fits", 2, 50, 0.98, dub.VerdictAccept, 50},
		{"corrected attempt still long", 2, 50, 1.2, dub.VerdictDegraded, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Decide(tt.attempt, tt.rate, tt.ratio)
			if got.Verdict != tt.verdict || got.NextRate != tt.next {
				t.Fatalf("Decide(%d, %d, %v) = %v/%d, want %v/%d",
					tt.attempt, tt.rate, tt.ratio, got.Verdict, got.NextRate, tt.verdict, tt.next)
			}
		})
	}
}

func TestPolicyFromConfig(t *testing.T) {
	cfg := config.Default()

	policy, err := dub.PolicyFromConfig(cfg.RateSearch)
	if err != nil {
		t.Fatalf("PolicyFromConfig: %v", err)
	}
	band, ok := policy.(dub.BandPolicy)
	if !ok {
		t.Fatalf("default policy is %T, want BandPolicy", policy)
	}
	if band != dub.DefaultBandPolicy() {
		t.Fatalf("config defaults %+v differ from DefaultBandPolicy %+v", band, dub.DefaultBandPolicy())
	}

	cfg.RateSearch.Policy = "single"
	policy, err = dub.PolicyFromConfig(cfg.RateSearch)
	if err != nil {
		t.Fatalf("PolicyFromConfig single: %v", err)
	}
	if policy.Name() != "single" || policy.MaxAttempts() != 2 {
		t.Fatalf("unexpected single policy %s/%d", policy.Name(), policy.MaxAttempts())
	}

	cfg.RateSearch.Policy = "psola"
	if _, err := dub.PolicyFromConfig(cfg.RateSearch); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
