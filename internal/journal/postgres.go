package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Journal = (*Postgres)(nil)

// Postgres is a Journal backed by a PostgreSQL database. It holds a single
// [pgxpool.Pool]; all methods are safe for concurrent use.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the database at dsn and runs [Migrate] to ensure
// the journal tables exist.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

const ddlJournal = `
CREATE TABLE IF NOT EXISTS threat_transitions (
    id          BIGSERIAL    PRIMARY KEY,
    session_id  TEXT         NOT NULL,
    level       TEXT         NOT NULL,
    source      TEXT         NOT NULL,
    detail      TEXT         NOT NULL DEFAULT '',
    occurred_at TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_threat_transitions_session
    ON threat_transitions (session_id, occurred_at);

CREATE TABLE IF NOT EXISTS dispatch_actions (
    id          BIGSERIAL    PRIMARY KEY,
    session_id  TEXT         NOT NULL,
    kind        TEXT         NOT NULL,
    target      TEXT         NOT NULL,
    failed      BOOLEAN      NOT NULL DEFAULT false,
    error       TEXT         NOT NULL DEFAULT '',
    occurred_at TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_dispatch_actions_session
    ON dispatch_actions (session_id, occurred_at);

CREATE TABLE IF NOT EXISTS countdown_events (
    id          BIGSERIAL    PRIMARY KEY,
    session_id  TEXT         NOT NULL,
    outcome     TEXT         NOT NULL,
    occurred_at TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_countdown_events_session
    ON countdown_events (session_id, occurred_at);
`

// Migrate creates the journal tables if they do not exist. It is idempotent
// and safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlJournal); err != nil {
		return fmt.Errorf("journal migrate: %w", err)
	}
	return nil
}

// RecordTransition implements [Journal].
func (p *Postgres) RecordTransition(ctx context.Context, tr Transition) error {
	const q = `
		INSERT INTO threat_transitions (session_id, level, source, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := p.pool.Exec(ctx, q, tr.SessionID, tr.Level, tr.Source, tr.Detail, tr.At)
	if err != nil {
		return fmt.Errorf("journal: record transition: %w", err)
	}
	return nil
}

// RecordAction implements [Journal].
func (p *Postgres) RecordAction(ctx context.Context, a Action) error {
	const q = `
		INSERT INTO dispatch_actions (session_id, kind, target, failed, error, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := p.pool.Exec(ctx, q, a.SessionID, a.Kind, a.Target, a.Failed, a.Error, a.At)
	if err != nil {
		return fmt.Errorf("journal: record action: %w", err)
	}
	return nil
}

// RecordCountdown implements [Journal].
func (p *Postgres) RecordCountdown(ctx context.Context, ev CountdownEvent) error {
	const q = `
		INSERT INTO countdown_events (session_id, outcome, occurred_at)
		VALUES ($1, $2, $3)`

	_, err := p.pool.Exec(ctx, q, ev.SessionID, ev.Outcome, ev.At)
	if err != nil {
		return fmt.Errorf("journal: record countdown: %w", err)
	}
	return nil
}

// RecentTransitions implements [Journal].
func (p *Postgres) RecentTransitions(ctx context.Context, sessionID string, limit int) ([]Transition, error) {
	const q = `
		SELECT session_id, level, source, detail, occurred_at
		FROM   threat_transitions
		WHERE  session_id = $1
		ORDER  BY occurred_at DESC
		LIMIT  $2`

	rows, err := p.pool.Query(ctx, q, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent transitions: %w", err)
	}
	transitions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Transition, error) {
		var tr Transition
		err := row.Scan(&tr.SessionID, &tr.Level, &tr.Source, &tr.Detail, &tr.At)
		return tr, err
	})
	if err != nil {
		return nil, fmt.Errorf("journal: scan rows: %w", err)
	}
	if transitions == nil {
		transitions = []Transition{}
	}
	return transitions, nil
}

// Ping verifies connectivity to the database. It backs readiness checks.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close releases all connections held by the underlying pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
