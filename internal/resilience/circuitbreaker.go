// Package resilience keeps the detection pipeline alive when a provider
// backend misbehaves. [CircuitBreaker] is a three-state breaker (closed,
// open, half-open) that stops hammering a failing backend, and
// [FallbackGroup] chains several backends of one provider type behind
// per-backend breakers so a broken primary recognizer degrades into its
// fallback instead of stalling the audio worker.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] while the breaker
// is open and the reset timeout has not elapsed.
var ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call to the backend.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrCircuitOpen] until the reset
	// timeout elapses.
	StateOpen

	// StateHalfOpen lets a bounded number of probe calls through; the
	// breaker closes on enough successes and re-opens on any failure.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes a [CircuitBreaker]. Zero fields take the
// defaults noted per field.
type CircuitBreakerConfig struct {
	// Name labels the guarded backend in log output.
	Name string

	// MaxFailures is how many consecutive failures trip the breaker from
	// closed to open. Default 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before probing the
	// backend again. Default 30s.
	ResetTimeout time.Duration

	// HalfOpenMax bounds the probe calls allowed while half-open.
	// Default 3.
	HalfOpenMax int
}

// CircuitBreaker guards one provider backend. Safe for concurrent use.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int
	log          *slog.Logger

	mu              sync.Mutex
	state           State
	consecutiveFail int
	lastFailure     time.Time
	halfOpenCalls   int
	halfOpenFails   int
}

// NewCircuitBreaker creates a closed breaker from cfg, filling zero fields
// with defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	return &CircuitBreaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
		log:          slog.Default(),
		state:        StateClosed,
	}
}

// Execute runs fn unless the breaker refuses. Open breakers return
// [ErrCircuitOpen] without calling fn; half-open breakers admit at most
// HalfOpenMax probes.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.resetTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.halfOpenCalls = 0
		cb.halfOpenFails = 0
		cb.log.LogAttrs(context.Background(), slog.LevelInfo, "breaker half-open, probing backend",
			slog.String("backend", cb.name),
		)

	case StateHalfOpen:
		if cb.halfOpenCalls >= cb.halfOpenMax {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	}

	inHalfOpen := cb.state == StateHalfOpen
	if inHalfOpen {
		cb.halfOpenCalls++
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.recordFailure(inHalfOpen)
	} else {
		cb.recordSuccess(inHalfOpen)
	}
	return err
}

// recordFailure advances failure accounting. Caller holds cb.mu.
func (cb *CircuitBreaker) recordFailure(inHalfOpen bool) {
	cb.lastFailure = time.Now()

	if inHalfOpen {
		// One failed probe re-opens immediately.
		cb.halfOpenFails++
		cb.state = StateOpen
		cb.consecutiveFail = cb.maxFailures
		cb.log.LogAttrs(context.Background(), slog.LevelWarn, "breaker re-opened, probe failed",
			slog.String("backend", cb.name),
		)
		return
	}

	cb.consecutiveFail++
	if cb.consecutiveFail >= cb.maxFailures {
		cb.state = StateOpen
		cb.log.LogAttrs(context.Background(), slog.LevelWarn, "breaker opened, backend failing",
			slog.String("backend", cb.name),
			slog.Int("consecutive_failures", cb.consecutiveFail),
		)
	}
}

// recordSuccess advances success accounting. Caller holds cb.mu.
func (cb *CircuitBreaker) recordSuccess(inHalfOpen bool) {
	if inHalfOpen {
		if cb.halfOpenCalls-cb.halfOpenFails >= cb.halfOpenMax {
			cb.state = StateClosed
			cb.consecutiveFail = 0
			cb.halfOpenCalls = 0
			cb.halfOpenFails = 0
			cb.log.LogAttrs(context.Background(), slog.LevelInfo, "breaker closed, backend recovered",
				slog.String("backend", cb.name),
			)
		}
		return
	}
	cb.consecutiveFail = 0
}

// State returns the breaker's state. An open breaker whose reset timeout
// has elapsed reports [StateHalfOpen]; the stored transition happens on the
// next [CircuitBreaker.Execute].
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.lastFailure) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to [StateClosed] and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.consecutiveFail = 0
	cb.halfOpenCalls = 0
	cb.halfOpenFails = 0
	cb.log.LogAttrs(context.Background(), slog.LevelInfo, "breaker reset",
		slog.String("backend", cb.name),
	)
}
