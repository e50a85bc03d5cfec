// Package fusion implements the threat fusion engine: the single state
// machine that merges keyword matches and acoustic danger signals into one
// ordered threat level for the session.
package fusion

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kavachapp/kavach/internal/keyword"
	"github.com/kavachapp/kavach/internal/observe"
	"github.com/kavachapp/kavach/internal/scorer"
)

// Level is the fused threat level. Levels are strictly ordered:
// SAFE < LOW < MEDIUM < HIGH.
type Level int

const (
	LevelSafe Level = iota
	LevelLow
	LevelMedium
	LevelHigh
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelSafe:
		return "SAFE"
	case LevelLow:
		return "LOW"
	case LevelMedium:
		return "MEDIUM"
	case LevelHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// Assessment is the engine's current verdict. It is owned by the engine and
// only ever mutated through the transition rules.
type Assessment struct {
	// Level is the fused threat level.
	Level Level

	// Source names the input that caused the last transition, such as
	// "keyword" or "acoustic".
	Source string

	// Timestamp is when the last transition happened.
	Timestamp time.Time
}

// Engine fuses keyword and acoustic inputs into a single threat level.
// Safe for concurrent use: the audio worker and the transcript pump both
// report into it.
type Engine struct {
	onChange func(Assessment)
	onHigh   func(Assessment)
	metrics  *observe.Metrics
	log      *slog.Logger
	now      func() time.Time

	mu          sync.Mutex
	current     Assessment
	highEpisode bool
}

// Option configures an [Engine].
type Option func(*Engine)

// WithOnChange registers a callback invoked on every level change, with the
// new assessment. The callback runs on the reporting goroutine and must not
// block.
func WithOnChange(fn func(Assessment)) Option {
	return func(e *Engine) { e.onChange = fn }
}

// WithOnHigh registers a callback invoked exactly once per episode when the
// engine enters HIGH. The callback runs on the reporting goroutine and must
// not block.
func WithOnHigh(fn func(Assessment)) Option {
	return func(e *Engine) { e.onHigh = fn }
}

// WithMetrics overrides the metrics sink. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger overrides the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a fusion engine starting at SAFE.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		log: slog.Default(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	e.current = Assessment{Level: LevelSafe, Source: "init", Timestamp: e.now()}
	return e
}

// Current returns the engine's current assessment.
func (e *Engine) Current() Assessment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// ObserveKeyword feeds one keyword match into the engine. CRITICAL matches
// force HIGH; ALERT matches raise the level to MEDIUM unless the session is
// already at MEDIUM or above. TierNone is ignored.
func (e *Engine) ObserveKeyword(ctx context.Context, m keyword.Match) {
	switch m.Tier {
	case keyword.TierCritical:
		e.escalate(ctx, LevelHigh, "keyword")
	case keyword.TierAlert:
		e.escalate(ctx, LevelMedium, "keyword")
	}
}

// ObserveSignal feeds one acoustic scorer signal into the engine. DANGER
// forces HIGH; NONE is ignored.
func (e *Engine) ObserveSignal(ctx context.Context, sig scorer.Signal) {
	if sig == scorer.SignalDanger {
		e.escalate(ctx, LevelHigh, "acoustic")
	}
}

// Reset returns the engine to SAFE and clears the per-episode HIGH marker.
// Called on session stop and countdown cancellation. The change callback is
// invoked when the level actually dropped.
func (e *Engine) Reset(ctx context.Context) {
	e.mu.Lock()
	changed := e.current.Level != LevelSafe
	e.current = Assessment{Level: LevelSafe, Source: "reset", Timestamp: e.now()}
	e.highEpisode = false
	snapshot := e.current
	e.mu.Unlock()

	if changed {
		e.metrics.RecordThreatTransition(ctx, LevelSafe.String(), "reset")
		e.log.LogAttrs(ctx, slog.LevelInfo, "threat level reset",
			slog.String("level", LevelSafe.String()),
		)
		if e.onChange != nil {
			e.onChange(snapshot)
		}
	}
}

// escalate applies one upward transition request. Levels never move down
// here; only Reset lowers them. Entering HIGH fires the onHigh callback
// exactly once per episode.
func (e *Engine) escalate(ctx context.Context, to Level, source string) {
	e.mu.Lock()
	if to <= e.current.Level {
		// Repeated HIGH (or a MEDIUM under HIGH) is a no-op.
		e.mu.Unlock()
		return
	}
	e.current = Assessment{Level: to, Source: source, Timestamp: e.now()}
	firstHigh := to == LevelHigh && !e.highEpisode
	if firstHigh {
		e.highEpisode = true
	}
	snapshot := e.current
	e.mu.Unlock()

	e.metrics.RecordThreatTransition(ctx, to.String(), source)
	e.log.LogAttrs(ctx, slog.LevelWarn, "threat level raised",
		slog.String("level", to.String()),
		slog.String("source", source),
	)
	if e.onChange != nil {
		e.onChange(snapshot)
	}
	if firstHigh && e.onHigh != nil {
		e.onHigh(snapshot)
	}
}
