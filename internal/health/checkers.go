package health

import (
	"context"
	"errors"
)

// Pinger probes connectivity to a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Database returns a checker that pings a backing store. A nil pinger always
// passes; an unconfigured store is not a readiness failure.
func Database(name string, p Pinger) Checker {
	return Checker{
		Name: name,
		Check: func(ctx context.Context) error {
			if p == nil {
				return nil
			}
			return p.Ping(ctx)
		},
	}
}

// Component returns a checker that fails while an optional pipeline component
// is unavailable. Degraded components keep the process serving but show up in
// the readiness report.
func Component(name string, available bool) Checker {
	return Checker{
		Name: name,
		Check: func(_ context.Context) error {
			if !available {
				return errors.New("not configured")
			}
			return nil
		},
	}
}

// Monitoring returns a checker that fails while no monitoring session is
// active. running reports whether audio is currently being processed.
func Monitoring(running func() bool) Checker {
	return Checker{
		Name: "monitoring",
		Check: func(_ context.Context) error {
			if !running() {
				return errors.New("no active monitoring session")
			}
			return nil
		},
	}
}
