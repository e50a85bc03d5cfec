// Package dispatch implements the emergency action dispatcher: the single
// component allowed to place the emergency call and send the distress SMS
// fan-out. It owns the per-episode dispatch marker and the debounce window,
// making it the sole arbiter when multiple triggers race.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kavachapp/kavach/internal/observe"
	"github.com/kavachapp/kavach/pkg/contacts"
	"github.com/kavachapp/kavach/pkg/telephony"
)

// Kind identifies the type of emergency action.
type Kind string

const (
	KindCall Kind = "call"
	KindSMS  Kind = "sms"
)

// DefaultDebounce is the minimum interval between successful dispatches.
// Triggers inside the window are silently absorbed.
const DefaultDebounce = 5000 * time.Millisecond

// DefaultMessage is the distress SMS text sent to every secondary contact.
const DefaultMessage = "EMERGENCY: I may be in danger. This is an automated alert from my safety monitor. Please check on me immediately."

// Action records one attempted emergency action. Immutable once recorded.
type Action struct {
	Kind      Kind
	Target    string
	Timestamp time.Time

	// Failed reports whether the attempt errored. Error holds the error
	// text when it did.
	Failed bool
	Error  string
}

// Dispatcher fans an emergency trigger out to the configured contacts:
// a call to the primary contact and the distress SMS to every secondary.
// Each action is independent best-effort; one failing or missing never
// aborts the others. Safe for concurrent use.
type Dispatcher struct {
	dialer   telephony.Dialer
	store    contacts.Store
	message  string
	debounce time.Duration
	onAction func(Action)
	metrics  *observe.Metrics
	log      *slog.Logger
	now      func() time.Time

	mu           sync.Mutex
	episodeDone  bool
	lastDispatch time.Time
}

// Option configures a [Dispatcher].
type Option func(*Dispatcher)

// WithMessage overrides the distress SMS text.
func WithMessage(msg string) Option {
	return func(d *Dispatcher) { d.message = msg }
}

// WithDebounce overrides the debounce window.
func WithDebounce(w time.Duration) Option {
	return func(d *Dispatcher) { d.debounce = w }
}

// WithOnAction registers a callback invoked for every attempted action,
// successful or failed. Runs on the triggering goroutine.
func WithOnAction(fn func(Action)) Option {
	return func(d *Dispatcher) { d.onAction = fn }
}

// WithMetrics overrides the metrics sink. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithLogger overrides the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// New creates a dispatcher. The dialer may be nil when no telephony
// transport is available; dispatch then records the trigger without placing
// actions.
func New(dialer telephony.Dialer, store contacts.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		dialer:   dialer,
		store:    store,
		message:  DefaultMessage,
		debounce: DefaultDebounce,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = observe.DefaultMetrics()
	}
	return d
}

// Trigger requests an emergency dispatch. Exactly one trigger per episode
// passes the marker; later triggers in the same episode, and any trigger
// inside the debounce window of the previous successful dispatch, are
// absorbed. Returns the actions attempted, or nil when the trigger was
// absorbed.
func (d *Dispatcher) Trigger(ctx context.Context) []Action {
	d.mu.Lock()
	if d.episodeDone {
		d.mu.Unlock()
		return nil
	}
	if !d.lastDispatch.IsZero() && d.now().Sub(d.lastDispatch) < d.debounce {
		d.mu.Unlock()
		d.metrics.RecordDispatch(ctx, "any", "debounced")
		d.log.LogAttrs(ctx, slog.LevelInfo, "dispatch absorbed by debounce window")
		return nil
	}
	d.episodeDone = true
	d.mu.Unlock()

	actions := d.dispatch(ctx)

	anyOK := false
	for _, a := range actions {
		if !a.Failed {
			anyOK = true
			break
		}
	}
	if anyOK {
		d.mu.Lock()
		d.lastDispatch = d.now()
		d.mu.Unlock()
	}
	return actions
}

// ResetEpisode clears the per-episode dispatch marker so the next HIGH
// entry can dispatch again. The debounce window is unaffected.
func (d *Dispatcher) ResetEpisode() {
	d.mu.Lock()
	d.episodeDone = false
	d.mu.Unlock()
}

// Dispatched reports whether a dispatch already happened this episode.
func (d *Dispatcher) Dispatched() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.episodeDone
}

// dispatch performs the call and SMS fan-out.
func (d *Dispatcher) dispatch(ctx context.Context) []Action {
	set, err := d.store.Contacts(ctx)
	if err != nil {
		d.log.LogAttrs(ctx, slog.LevelError, "contact lookup failed",
			slog.String("error", err.Error()),
		)
		return nil
	}

	var actions []Action

	if set.Primary != "" && d.dialer != nil {
		a := Action{Kind: KindCall, Target: set.Primary, Timestamp: d.now()}
		if err := d.dialer.PlaceCall(ctx, set.Primary); err != nil {
			a.Failed = true
			a.Error = err.Error()
		}
		actions = append(actions, d.record(ctx, a))
	}

	if d.dialer != nil {
		for _, number := range set.Secondary {
			a := Action{Kind: KindSMS, Target: number, Timestamp: d.now()}
			if err := d.dialer.SendSMS(ctx, number, d.message); err != nil {
				a.Failed = true
				a.Error = err.Error()
			}
			actions = append(actions, d.record(ctx, a))
		}
	}

	if len(actions) == 0 {
		d.log.LogAttrs(ctx, slog.LevelWarn, "emergency trigger with no dispatchable contacts")
	}
	return actions
}

// record logs and counts one attempted action and forwards it to the
// action callback.
func (d *Dispatcher) record(ctx context.Context, a Action) Action {
	status := "ok"
	level := slog.LevelWarn
	if a.Failed {
		status = "error"
		level = slog.LevelError
	}
	d.metrics.RecordDispatch(ctx, string(a.Kind), status)
	d.log.LogAttrs(ctx, level, "emergency action attempted",
		slog.String("kind", string(a.Kind)),
		slog.String("target", a.Target),
		slog.String("status", status),
	)
	if d.onAction != nil {
		d.onAction(a)
	}
	return a
}
