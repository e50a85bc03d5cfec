package scorer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kavachapp/kavach/internal/observe"
	"github.com/kavachapp/kavach/pkg/provider/classifier"
)

const (
	// DefaultInferenceInterval is the cadence of classifier inference: one
	// inference per this many voiced frames.
	DefaultInferenceInterval = 10

	// DefaultDangerProbability is the classifier probability above which a
	// frame signals danger.
	DefaultDangerProbability = 0.5
)

// ModelFused layers classifier inference on top of the [RuleBased] rules.
// Every Nth voiced frame the current normalized feature vector is sent to
// the classifier on a dedicated goroutine. While an inference is in flight,
// due frames are skipped, never queued, so inference latency can never
// backlog the audio worker. A danger verdict from a completed inference is
// delivered with the next scored frame.
type ModelFused struct {
	model    classifier.Model
	rules    *RuleBased
	interval int
	danger   float64
	metrics  *observe.Metrics
	log      *slog.Logger

	mu            sync.Mutex
	sinceLast     int
	busy          bool
	pendingDanger bool
}

// Compile-time interface check.
var _ Scorer = (*ModelFused)(nil)

// ModelOption configures a [ModelFused] scorer.
type ModelOption func(*ModelFused)

// WithInterval overrides the inference cadence in voiced frames.
func WithInterval(n int) ModelOption {
	return func(m *ModelFused) { m.interval = n }
}

// WithDangerProbability overrides the danger probability threshold.
func WithDangerProbability(p float64) ModelOption {
	return func(m *ModelFused) { m.danger = p }
}

// WithRules overrides the embedded rule-based scorer.
func WithRules(r *RuleBased) ModelOption {
	return func(m *ModelFused) { m.rules = r }
}

// WithMetrics overrides the metrics sink. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(met *observe.Metrics) ModelOption {
	return func(m *ModelFused) { m.metrics = met }
}

// WithModelLogger overrides the logger. Defaults to [slog.Default].
func WithModelLogger(l *slog.Logger) ModelOption {
	return func(m *ModelFused) { m.log = l }
}

// NewModelFused creates a model-fused scorer around the given classifier.
func NewModelFused(model classifier.Model, opts ...ModelOption) *ModelFused {
	m := &ModelFused{
		model:    model,
		interval: DefaultInferenceInterval,
		danger:   DefaultDangerProbability,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rules == nil {
		m.rules = NewRuleBased(WithRuleLogger(m.log))
	}
	if m.metrics == nil {
		m.metrics = observe.DefaultMetrics()
	}
	return m
}

// Score evaluates one voiced frame. The rule verdict is computed inline;
// classifier verdicts arrive asynchronously and are folded into the signal
// of a later frame.
func (m *ModelFused) Score(ctx context.Context, obs Observation) Signal {
	sig := m.rules.Score(ctx, obs)

	m.mu.Lock()
	if m.pendingDanger {
		m.pendingDanger = false
		sig = SignalDanger
	}

	m.sinceLast++
	launch := false
	if m.sinceLast >= m.interval {
		m.sinceLast = 0
		switch {
		case !obs.VectorOK:
			// Scaler parameters absent: rule-only mode.
		case m.busy:
			m.metrics.InferenceSkips.Add(ctx, 1)
			m.log.LogAttrs(ctx, slog.LevelDebug, "inference in flight, skipping frame")
		default:
			m.busy = true
			launch = true
		}
	}
	m.mu.Unlock()

	if launch {
		go m.infer(ctx, obs.Vector)
	}
	return sig
}

// infer runs one classifier prediction off the audio worker goroutine.
func (m *ModelFused) infer(ctx context.Context, vec [VectorDim]float64) {
	start := time.Now()
	p, err := m.model.Predict(ctx, vec[:])
	elapsed := time.Since(start).Seconds()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = false
	if err != nil {
		m.metrics.RecordInference(ctx, elapsed, "error")
		m.log.LogAttrs(ctx, slog.LevelError, "classifier inference failed",
			slog.String("error", err.Error()),
		)
		return
	}
	m.metrics.RecordInference(ctx, elapsed, "ok")
	if p > m.danger {
		m.pendingDanger = true
	}
}

// Reset clears the inference cadence and any undelivered verdict. Callers
// reset between sessions, when no frames are flowing and no inference is in
// flight.
func (m *ModelFused) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinceLast = 0
	m.pendingDanger = false
	m.rules.Reset()
}
