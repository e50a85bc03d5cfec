// Package journal persists incident history for monitoring sessions: threat
// level transitions, dispatch actions, and countdown outcomes. The PostgreSQL
// backend is optional; deployments without a database get a [Nop] journal and
// lose nothing but the audit trail.
package journal

import (
	"context"
	"time"
)

// Transition is one threat level change within a session.
type Transition struct {
	SessionID string
	Level     string
	Source    string
	Detail    string
	At        time.Time
}

// Action is one dispatch attempt (call or SMS) within a session.
type Action struct {
	SessionID string
	Kind      string
	Target    string
	Failed    bool
	Error     string
	At        time.Time
}

// CountdownEvent is the terminal outcome of one countdown run.
type CountdownEvent struct {
	SessionID string
	Outcome   string
	At        time.Time
}

// Journal records incident events. Implementations must be safe for
// concurrent use; callers treat write failures as non-fatal.
type Journal interface {
	RecordTransition(ctx context.Context, tr Transition) error
	RecordAction(ctx context.Context, a Action) error
	RecordCountdown(ctx context.Context, ev CountdownEvent) error

	// RecentTransitions returns the newest transitions for a session,
	// most recent first, capped at limit.
	RecentTransitions(ctx context.Context, sessionID string, limit int) ([]Transition, error)

	Close()
}

// Open returns a PostgreSQL-backed journal for dsn, or a [Nop] journal when
// dsn is empty.
func Open(ctx context.Context, dsn string) (Journal, error) {
	if dsn == "" {
		return Nop{}, nil
	}
	return NewPostgres(ctx, dsn)
}

// Nop is a journal that discards every event. It is returned by [Open] when
// no database is configured.
type Nop struct{}

var _ Journal = Nop{}

func (Nop) RecordTransition(context.Context, Transition) error { return nil }
func (Nop) RecordAction(context.Context, Action) error         { return nil }
func (Nop) RecordCountdown(context.Context, CountdownEvent) error {
	return nil
}

func (Nop) RecentTransitions(context.Context, string, int) ([]Transition, error) {
	return []Transition{}, nil
}

func (Nop) Close() {}
