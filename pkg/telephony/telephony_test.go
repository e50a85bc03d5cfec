package telephony

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNullDialer_SucceedsWithoutTransport(t *testing.T) {
	var buf bytes.Buffer
	d := &NullDialer{Log: slog.New(slog.NewTextHandler(&buf, nil))}
	ctx := context.Background()

	if err := d.PlaceCall(ctx, "+15551112222"); err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	if err := d.SendSMS(ctx, "+15553334444", "test message"); err != nil {
		t.Fatalf("SendSMS: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "call not placed") {
		t.Errorf("log output missing call record: %q", out)
	}
	if !strings.Contains(out, "SMS not sent") {
		t.Errorf("log output missing SMS record: %q", out)
	}
	if !strings.Contains(out, "+15551112222") {
		t.Errorf("log output missing call number: %q", out)
	}
}

func TestNullDialer_NilLoggerUsesDefault(t *testing.T) {
	d := &NullDialer{}
	if err := d.PlaceCall(context.Background(), "+15551112222"); err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
}
