package dub

import (
	"fmt"
	"math"
	"strings"

	"revoice/internal/config"
	"revoice/internal/services"
)

// Verdict is the outcome of judging one synthesis attempt.
type Verdict int

const (
	// VerdictAccept keeps the clip as a fitted placement.
	VerdictAccept Verdict = iota
	// VerdictRetry asks for another attempt at Decision.NextRate.
	VerdictRetry
	// VerdictDegraded keeps the clip although it does not fit.
	VerdictDegraded
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccept:
		return "accept"
	case VerdictRetry:
		return "retry"
	case VerdictDegraded:
		return "degraded"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Decision is what a RatePolicy wants done after an attempt.
type Decision struct {
	Verdict  Verdict
	NextRate int
}

// RatePolicy decides, from the measured duration ratio of an attempt, whether
// to accept the clip or resynthesize at a corrected rate. Implementations are
// pure: no I/O, no state between calls.
//
// attempt is the 1-based number of the attempt just measured, rate the rate
// percent it was synthesized at, and ratio its produced/available duration.
type RatePolicy interface {
	Name() string
	MaxAttempts() int
	Decide(attempt, rate int, ratio float64) Decision
}

// BandPolicy accepts clips whose ratio lies in [Lower, Upper] and otherwise
// corrects the rate in both directions until the attempt budget runs out.
type BandPolicy struct {
	Attempts      int
	Lower         float64
	Upper         float64
	MaxSpeedup    int
	MaxSlowdown   int
	SpeedupMargin int
}

// DefaultBandPolicy returns the bidirectional policy with its standard bounds.
func DefaultBandPolicy() BandPolicy {
	return BandPolicy{Attempts: 3, Lower: 0.85, Upper: 1.10, MaxSpeedup: 85, MaxSlowdown: 20, SpeedupMargin: 15}
}

func (p BandPolicy) Name() string { return "band" }

func (p BandPolicy) MaxAttempts() int { return p.Attempts }

// Decide applies the band correction. Corrections accumulate on top of the
// current rate rather than restarting from natural speed, so a clip that came
// out short after a speed-up is retried at a smaller speed-up, not at a
// negative rate. The result is clamped to [-MaxSlowdown, +MaxSpeedup]; when
// the clamp leaves the rate unchanged no further attempt can help and the
// clip is degraded immediately.
func (p BandPolicy) Decide(attempt, rate int, ratio float64) Decision {
	if ratio >= p.Lower && ratio <= p.Upper {
		return Decision{Verdict: VerdictAccept, NextRate: rate}
	}
	if attempt >= p.Attempts || ratio <= 0 || !finite(ratio) {
		return Decision{Verdict: VerdictDegraded, NextRate: rate}
	}

	var next int
	if ratio < p.Lower {
		slow := min(int(math.Round((1/ratio-1)*100)), p.MaxSlowdown)
		next = rate - slow
	} else {
		speed := min(int(math.Round((ratio-1)*100))+p.SpeedupMargin, p.MaxSpeedup)
		next = rate + speed
	}
	next = clampRate(next, -p.MaxSlowdown, p.MaxSpeedup)
	if next == rate {
		return Decision{Verdict: VerdictDegraded, NextRate: rate}
	}
	return Decision{Verdict: VerdictRetry, NextRate: next}
}

// SinglePolicy synthesizes at natural rate and, only when the clip overruns
// its window by more than Threshold, speeds it up once. Short clips are
// accepted as they are and simply followed by extra silence.
type SinglePolicy struct {
	Threshold  float64
	MaxSpeedup int
}

// DefaultSinglePolicy returns the single-correction policy with its standard bounds.
func DefaultSinglePolicy() SinglePolicy {
	return SinglePolicy{Threshold: 1.01, MaxSpeedup: 99}
}

func (p SinglePolicy) Name() string { return "single" }

func (p SinglePolicy) MaxAttempts() int { return 2 }

// Decide accepts the first attempt unless it is overlong. The corrected
// attempt is always kept; it counts as accepted only when it fits.
func (p SinglePolicy) Decide(attempt, rate int, ratio float64) Decision {
	if ratio <= p.Threshold {
		return Decision{Verdict: VerdictAccept, NextRate: rate}
	}
	if attempt >= p.MaxAttempts() {
		return Decision{Verdict: VerdictDegraded, NextRate: rate}
	}
	speed := clampRate(int(math.Round((ratio-1)*100)), 0, p.MaxSpeedup)
	return Decision{Verdict: VerdictRetry, NextRate: speed}
}

// PolicyFromConfig builds the configured rate policy.
func PolicyFromConfig(cfg config.RateSearch) (RatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Policy)) {
	case "", "band":
		return BandPolicy{
			Attempts:      cfg.MaxAttempts,
			Lower:         cfg.LowerRatio,
			Upper:         cfg.UpperRatio,
			MaxSpeedup:    cfg.MaxSpeedupPercent,
			MaxSlowdown:   cfg.MaxSlowdownPercent,
			SpeedupMargin: cfg.SpeedupMarginPercent,
		}, nil
	case "single":
		return SinglePolicy{
			Threshold:  cfg.SingleThresholdRatio,
			MaxSpeedup: cfg.SingleMaxSpeedupPercent,
		}, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "rate_search", "policy", fmt.Sprintf("unknown policy %q", cfg.Policy), nil)
	}
}

func clampRate(rate, lo, hi int) int {
	return max(lo, min(rate, hi))
}
