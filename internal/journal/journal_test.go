package journal_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kavachapp/kavach/internal/journal"
)

func TestOpen_EmptyDSNReturnsNop(t *testing.T) {
	j, err := journal.Open(context.Background(), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := j.(journal.Nop); !ok {
		t.Fatalf("Open(\"\") = %T, want journal.Nop", j)
	}
}

func TestNop_AllOperationsSucceed(t *testing.T) {
	ctx := context.Background()
	var j journal.Journal = journal.Nop{}

	if err := j.RecordTransition(ctx, journal.Transition{SessionID: "s1", Level: "HIGH"}); err != nil {
		t.Errorf("RecordTransition: %v", err)
	}
	if err := j.RecordAction(ctx, journal.Action{SessionID: "s1", Kind: "call"}); err != nil {
		t.Errorf("RecordAction: %v", err)
	}
	if err := j.RecordCountdown(ctx, journal.CountdownEvent{SessionID: "s1", Outcome: "expired"}); err != nil {
		t.Errorf("RecordCountdown: %v", err)
	}

	transitions, err := j.RecentTransitions(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("RecentTransitions: %v", err)
	}
	if len(transitions) != 0 {
		t.Errorf("RecentTransitions: want 0, got %d", len(transitions))
	}
	j.Close()
}

// testDSN returns the test database DSN from the environment, or skips the
// test if KAVACH_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("KAVACH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("KAVACH_TEST_POSTGRES_DSN not set — skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestJournal creates a fresh [journal.Postgres] with a clean schema.
func newTestJournal(t *testing.T) *journal.Postgres {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	cleanPool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(cleanPool.Close)
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS threat_transitions",
		"DROP TABLE IF EXISTS dispatch_actions",
		"DROP TABLE IF EXISTS countdown_events",
	} {
		if _, err := cleanPool.Exec(ctx, stmt); err != nil {
			t.Fatalf("dropSchema %q: %v", stmt, err)
		}
	}

	j, err := journal.NewPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	t.Cleanup(j.Close)
	return j
}

func TestPostgres_TransitionsRoundTrip(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	now := time.Now()
	sessionID := "session-1"
	transitions := []journal.Transition{
		{SessionID: sessionID, Level: "MEDIUM", Source: "keyword", Detail: "help me", At: now.Add(-2 * time.Minute)},
		{SessionID: sessionID, Level: "HIGH", Source: "keyword", Detail: "call the police", At: now.Add(-1 * time.Minute)},
		{SessionID: "other", Level: "LOW", Source: "acoustic", At: now},
	}
	for _, tr := range transitions {
		if err := j.RecordTransition(ctx, tr); err != nil {
			t.Fatalf("RecordTransition: %v", err)
		}
	}

	got, err := j.RecentTransitions(ctx, sessionID, 10)
	if err != nil {
		t.Fatalf("RecentTransitions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("RecentTransitions: want 2, got %d", len(got))
	}
	// Most recent first.
	if got[0].Level != "HIGH" {
		t.Errorf("got[0].Level = %q, want HIGH", got[0].Level)
	}
	if got[1].Detail != "help me" {
		t.Errorf("got[1].Detail = %q, want %q", got[1].Detail, "help me")
	}

	limited, err := j.RecentTransitions(ctx, sessionID, 1)
	if err != nil {
		t.Fatalf("RecentTransitions limit: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("RecentTransitions limit 1: want 1, got %d", len(limited))
	}

	none, err := j.RecentTransitions(ctx, "unknown-session", 10)
	if err != nil {
		t.Fatalf("RecentTransitions unknown: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("RecentTransitions unknown: want 0, got %d", len(none))
	}
}

func TestPostgres_ActionsAndCountdowns(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	err := j.RecordAction(ctx, journal.Action{
		SessionID: "s1", Kind: "sms", Target: "+15551234567",
		Failed: true, Error: "carrier rejected", At: time.Now(),
	})
	if err != nil {
		t.Fatalf("RecordAction: %v", err)
	}

	err = j.RecordCountdown(ctx, journal.CountdownEvent{
		SessionID: "s1", Outcome: "cancelled", At: time.Now(),
	})
	if err != nil {
		t.Fatalf("RecordCountdown: %v", err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	j := newTestJournal(t)
	_ = j

	pool, err := pgxpool.New(context.Background(), testDSN(t))
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	defer pool.Close()

	for range 2 {
		if err := journal.Migrate(context.Background(), pool); err != nil {
			t.Fatalf("Migrate: %v", err)
		}
	}
}
