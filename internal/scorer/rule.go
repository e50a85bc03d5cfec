package scorer

import (
	"context"
	"log/slog"
)

const (
	// DefaultDangerPitchHz is the pitch above which a frame signals danger.
	DefaultDangerPitchHz = 500

	// DefaultHighEnergyRMS is the energy level that is logged as notable
	// but never escalates on its own.
	DefaultHighEnergyRMS = 0.8
)

// RuleBased scores frames with fixed acoustic thresholds: sustained pitch
// above the danger threshold signals danger, and unusually high energy is
// logged for the record without escalating.
type RuleBased struct {
	dangerPitchHz float64
	highEnergyRMS float64
	log           *slog.Logger
}

// Compile-time interface check.
var _ Scorer = (*RuleBased)(nil)

// RuleOption configures a [RuleBased] scorer.
type RuleOption func(*RuleBased)

// WithDangerPitch overrides the danger pitch threshold in Hz.
func WithDangerPitch(hz float64) RuleOption {
	return func(r *RuleBased) { r.dangerPitchHz = hz }
}

// WithHighEnergy overrides the logged-only high energy threshold.
func WithHighEnergy(rms float64) RuleOption {
	return func(r *RuleBased) { r.highEnergyRMS = rms }
}

// WithRuleLogger overrides the logger. Defaults to [slog.Default].
func WithRuleLogger(l *slog.Logger) RuleOption {
	return func(r *RuleBased) { r.log = l }
}

// NewRuleBased creates a rule-based scorer with the default thresholds.
func NewRuleBased(opts ...RuleOption) *RuleBased {
	r := &RuleBased{
		dangerPitchHz: DefaultDangerPitchHz,
		highEnergyRMS: DefaultHighEnergyRMS,
		log:           slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Score applies the pitch and energy rules to one frame.
func (r *RuleBased) Score(ctx context.Context, obs Observation) Signal {
	if obs.RMS > r.highEnergyRMS {
		r.log.LogAttrs(ctx, slog.LevelDebug, "high energy frame",
			slog.Float64("rms", obs.RMS),
			slog.Float64("threshold", r.highEnergyRMS),
		)
	}
	if obs.Voiced && obs.PitchHz > r.dangerPitchHz {
		return SignalDanger
	}
	return SignalNone
}

// Reset is a no-op: the rule-based scorer keeps no state between frames.
func (r *RuleBased) Reset() {}
