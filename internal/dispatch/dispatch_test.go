package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kavachapp/kavach/internal/observe"
	"github.com/kavachapp/kavach/pkg/contacts"
	telmock "github.com/kavachapp/kavach/pkg/telephony/mock"
)

func newTestObserve(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

// errStore is a contacts.Store whose lookup always fails.
type errStore struct{ err error }

func (s errStore) Contacts(context.Context) (contacts.Set, error) {
	return contacts.Set{}, s.err
}

func TestTrigger_CallsPrimaryAndTextsSecondaries(t *testing.T) {
	dialer := &telmock.Dialer{}
	store := contacts.NewStatic("+911234567890", []string{"+911111111111", "+912222222222"})
	d := New(dialer, store, WithMetrics(newTestObserve(t)))

	actions := d.Trigger(context.Background())

	if got := dialer.CallCount(); got != 1 {
		t.Errorf("call count = %d, want 1", got)
	}
	if got := dialer.SMSCount(); got != 2 {
		t.Errorf("sms count = %d, want 2", got)
	}
	if len(actions) != 3 {
		t.Fatalf("got %d actions, want 3", len(actions))
	}
	if actions[0].Kind != KindCall || actions[0].Target != "+911234567890" {
		t.Errorf("first action = %+v, want call to primary", actions[0])
	}
	for _, m := range dialer.Messages {
		if m.Message != DefaultMessage {
			t.Errorf("sms text = %q, want default distress message", m.Message)
		}
	}
}

func TestTrigger_SecondDispatchAbsorbedByEpisodeMarker(t *testing.T) {
	dialer := &telmock.Dialer{}
	store := contacts.NewStatic("+911234567890", nil)
	d := New(dialer, store, WithMetrics(newTestObserve(t)))
	ctx := context.Background()

	if got := d.Trigger(ctx); len(got) != 1 {
		t.Fatalf("first trigger: got %d actions, want 1", len(got))
	}
	if got := d.Trigger(ctx); got != nil {
		t.Errorf("second trigger returned actions, want nil")
	}
	if got := dialer.CallCount(); got != 1 {
		t.Errorf("call count = %d, want 1", got)
	}
}

func TestTrigger_DebounceAbsorbsAcrossEpisodes(t *testing.T) {
	now := time.Unix(1000, 0)
	dialer := &telmock.Dialer{}
	store := contacts.NewStatic("+911234567890", nil)
	d := New(dialer, store,
		WithMetrics(newTestObserve(t)),
		WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	d.Trigger(ctx)
	d.ResetEpisode()

	// Inside the debounce window: absorbed.
	now = now.Add(2 * time.Second)
	if got := d.Trigger(ctx); got != nil {
		t.Errorf("trigger inside debounce window returned actions, want nil")
	}
	if got := dialer.CallCount(); got != 1 {
		t.Errorf("call count = %d, want 1", got)
	}

	// Past the window: dispatches again.
	now = now.Add(4 * time.Second)
	if got := d.Trigger(ctx); len(got) != 1 {
		t.Errorf("trigger past debounce window: got %d actions, want 1", len(got))
	}
	if got := dialer.CallCount(); got != 2 {
		t.Errorf("call count = %d, want 2", got)
	}
}

func TestTrigger_FailingCallNeverAbortsSMS(t *testing.T) {
	dialer := &telmock.Dialer{PlaceCallError: errors.New("no carrier")}
	store := contacts.NewStatic("+911234567890", []string{"+911111111111"})
	d := New(dialer, store, WithMetrics(newTestObserve(t)))

	actions := d.Trigger(context.Background())
	if len(actions) != 2 {
		t.Fatalf("got %d actions, want 2", len(actions))
	}
	if !actions[0].Failed || actions[0].Error != "no carrier" {
		t.Errorf("call action = %+v, want failed with error text", actions[0])
	}
	if actions[1].Failed {
		t.Errorf("sms action failed, want success")
	}
	if got := dialer.SMSCount(); got != 1 {
		t.Errorf("sms count = %d, want 1", got)
	}
}

func TestTrigger_NoPrimarySkipsCall(t *testing.T) {
	dialer := &telmock.Dialer{}
	store := contacts.NewStatic("", []string{"+911111111111"})
	d := New(dialer, store, WithMetrics(newTestObserve(t)))

	actions := d.Trigger(context.Background())
	if len(actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(actions))
	}
	if actions[0].Kind != KindSMS {
		t.Errorf("action kind = %v, want %v", actions[0].Kind, KindSMS)
	}
	if got := dialer.CallCount(); got != 0 {
		t.Errorf("call count = %d, want 0", got)
	}
}

func TestTrigger_NilDialerRecordsNothing(t *testing.T) {
	store := contacts.NewStatic("+911234567890", []string{"+911111111111"})
	d := New(nil, store, WithMetrics(newTestObserve(t)))

	if got := d.Trigger(context.Background()); got != nil {
		t.Errorf("trigger with nil dialer returned actions, want nil")
	}
	if !d.Dispatched() {
		t.Error("episode marker not set after trigger")
	}
}

func TestTrigger_ContactLookupFailure(t *testing.T) {
	dialer := &telmock.Dialer{}
	d := New(dialer, errStore{err: errors.New("storage gone")}, WithMetrics(newTestObserve(t)))

	if got := d.Trigger(context.Background()); got != nil {
		t.Errorf("trigger with failing store returned actions, want nil")
	}
	if got := dialer.CallCount(); got != 0 {
		t.Errorf("call count = %d, want 0", got)
	}
}

func TestTrigger_FailedDispatchNotDebounced(t *testing.T) {
	now := time.Unix(1000, 0)
	dialer := &telmock.Dialer{PlaceCallError: errors.New("no carrier")}
	store := contacts.NewStatic("+911234567890", nil)
	d := New(dialer, store,
		WithMetrics(newTestObserve(t)),
		WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	d.Trigger(ctx)
	d.ResetEpisode()

	// The previous dispatch failed entirely so no debounce window opened.
	now = now.Add(time.Second)
	if got := d.Trigger(ctx); len(got) != 1 {
		t.Errorf("retrigger after failed dispatch: got %d actions, want 1", len(got))
	}
}

func TestOnActionCallback(t *testing.T) {
	var seen []Action
	dialer := &telmock.Dialer{}
	store := contacts.NewStatic("+911234567890", []string{"+911111111111"})
	d := New(dialer, store,
		WithMetrics(newTestObserve(t)),
		WithOnAction(func(a Action) { seen = append(seen, a) }),
	)

	d.Trigger(context.Background())
	if len(seen) != 2 {
		t.Errorf("callback saw %d actions, want 2", len(seen))
	}
}
