// Package countdown implements the cancellation countdown that runs between
// a HIGH threat entry and the emergency dispatch. The carrier gets a fixed
// grace window to prove the alarm false by entering the shared secret; an
// uncancelled countdown expires into the dispatch exactly once.
package countdown

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/kavachapp/kavach/internal/observe"
)

const (
	// DefaultDuration is the countdown length in seconds.
	DefaultDuration = 10

	// DefaultSecret is the shared cancellation secret.
	DefaultSecret = "1234"
)

// Sentinel errors returned by Cancel.
var (
	// ErrWrongSecret means the supplied secret did not match. The countdown
	// keeps running untouched.
	ErrWrongSecret = errors.New("countdown: wrong secret")

	// ErrNotCounting means no countdown is running.
	ErrNotCounting = errors.New("countdown: not counting")
)

// Phase is the controller's life-cycle phase.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCounting
	PhaseCancelled
	PhaseExpired
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseCounting:
		return "COUNTING"
	case PhaseCancelled:
		return "CANCELLED"
	case PhaseExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// State is an observable snapshot of the countdown.
type State struct {
	Phase     Phase
	Remaining int
}

// Controller runs the cancellation countdown. Phase transitions are the
// only mutation path; expiry firing exactly once follows from the state
// graph, not from a separate flag. Safe for concurrent use.
type Controller struct {
	duration    int
	secret      string
	interval    time.Duration
	onTick      func(remaining int)
	onExpired   func()
	onCancelled func()
	metrics     *observe.Metrics
	log         *slog.Logger

	mu        sync.Mutex
	phase     Phase
	remaining int
	stop      chan struct{}
}

// Option configures a [Controller].
type Option func(*Controller)

// WithDuration overrides the countdown length in seconds.
func WithDuration(seconds int) Option {
	return func(c *Controller) { c.duration = seconds }
}

// WithSecret overrides the shared cancellation secret.
func WithSecret(secret string) Option {
	return func(c *Controller) { c.secret = secret }
}

// WithTickInterval overrides the tick interval. Production uses one second;
// tests shorten it.
func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

// WithOnTick registers a callback invoked once per tick with the remaining
// seconds. Runs on the ticker goroutine and must not block.
func WithOnTick(fn func(remaining int)) Option {
	return func(c *Controller) { c.onTick = fn }
}

// WithOnExpired registers a callback invoked on the Counting to Expired
// transition. Runs on the ticker goroutine.
func WithOnExpired(fn func()) Option {
	return func(c *Controller) { c.onExpired = fn }
}

// WithOnCancelled registers a callback invoked on the Counting to Cancelled
// transition. Runs on the cancelling goroutine.
func WithOnCancelled(fn func()) Option {
	return func(c *Controller) { c.onCancelled = fn }
}

// WithMetrics overrides the metrics sink. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithLogger overrides the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// New creates an idle controller.
func New(opts ...Option) *Controller {
	c := &Controller{
		duration: DefaultDuration,
		secret:   DefaultSecret,
		interval: time.Second,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// State returns a snapshot of the countdown.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Phase: c.phase, Remaining: c.remaining}
}

// Start begins the countdown from Idle and reports whether it started. A
// controller that is already counting or in a terminal phase refuses to
// restart; Reset first.
func (c *Controller) Start(ctx context.Context) bool {
	c.mu.Lock()
	if c.phase != PhaseIdle {
		c.mu.Unlock()
		return false
	}
	c.phase = PhaseCounting
	c.remaining = c.duration
	stop := make(chan struct{})
	c.stop = stop
	c.mu.Unlock()

	c.log.LogAttrs(ctx, slog.LevelWarn, "cancellation countdown started",
		slog.Int("seconds", c.duration),
	)
	go c.run(ctx, stop)
	return true
}

// Cancel attempts to cancel a running countdown with the given secret. A
// wrong secret returns [ErrWrongSecret] and leaves the countdown running
// with no tick consumed.
func (c *Controller) Cancel(ctx context.Context, secret string) error {
	c.mu.Lock()
	if c.phase != PhaseCounting {
		c.mu.Unlock()
		return ErrNotCounting
	}
	if secret != c.secret {
		c.mu.Unlock()
		c.log.LogAttrs(ctx, slog.LevelWarn, "countdown cancellation rejected")
		return ErrWrongSecret
	}
	c.phase = PhaseCancelled
	close(c.stop)
	fn := c.onCancelled
	c.mu.Unlock()

	c.metrics.RecordCountdownOutcome(ctx, "cancelled")
	c.log.LogAttrs(ctx, slog.LevelInfo, "countdown cancelled")
	if fn != nil {
		fn()
	}
	return nil
}

// SetOnCancelled replaces the cancellation callback. It exists for wiring
// that needs the controller before the callback can be built; call it
// before the first Start.
func (c *Controller) SetOnCancelled(fn func()) {
	c.mu.Lock()
	c.onCancelled = fn
	c.mu.Unlock()
}

// Reset returns the controller to Idle from any phase, halting a running
// countdown without firing callbacks. Used on session stop.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.phase == PhaseCounting {
		close(c.stop)
	}
	c.phase = PhaseIdle
	c.remaining = 0
	c.mu.Unlock()
}

// run drives the ticker until cancellation, reset, or expiry.
func (c *Controller) run(ctx context.Context, stop chan struct{}) {
	t := time.NewTicker(c.interval)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-t.C:
			c.mu.Lock()
			if c.phase != PhaseCounting {
				c.mu.Unlock()
				return
			}
			c.remaining--
			rem := c.remaining
			expired := rem <= 0
			if expired {
				c.phase = PhaseExpired
			}
			c.mu.Unlock()

			if c.onTick != nil {
				c.onTick(rem)
			}
			if expired {
				c.metrics.RecordCountdownOutcome(ctx, "expired")
				c.log.LogAttrs(ctx, slog.LevelError, "countdown expired")
				if c.onExpired != nil {
					c.onExpired()
				}
				return
			}
		}
	}
}
