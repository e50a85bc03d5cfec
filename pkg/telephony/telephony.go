// Package telephony defines the Dialer interface for emergency call and SMS
// transport.
//
// The transport mechanics (mobile radio, VoIP gateway, SMS aggregator) are
// external to this system. A Dialer is fire-and-forget: a nil return means
// the action was handed to the transport, not that it was delivered. The
// dispatcher treats "attempted" and "delivered" as distinct by design.
//
// Implementations must be safe for concurrent use.
package telephony

import (
	"context"
	"log/slog"
)

// Dialer initiates calls and text messages.
type Dialer interface {
	// PlaceCall initiates a voice call to number. Returns an error only if
	// the call could not be handed to the transport.
	PlaceCall(ctx context.Context, number string) error

	// SendSMS sends message to number. Returns an error only if the message
	// could not be handed to the transport.
	SendSMS(ctx context.Context, number, message string) error
}

// NullDialer logs every action instead of placing it. It stands in when no
// real transport is configured so the rest of the pipeline behaves exactly
// as it would in production.
type NullDialer struct {
	// Log receives the action records. Nil means slog.Default().
	Log *slog.Logger
}

var _ Dialer = (*NullDialer)(nil)

// PlaceCall logs the call and reports success.
func (d *NullDialer) PlaceCall(ctx context.Context, number string) error {
	d.logger().LogAttrs(ctx, slog.LevelWarn, "telephony: null transport, call not placed",
		slog.String("number", number),
	)
	return nil
}

// SendSMS logs the message and reports success.
func (d *NullDialer) SendSMS(ctx context.Context, number, message string) error {
	d.logger().LogAttrs(ctx, slog.LevelWarn, "telephony: null transport, SMS not sent",
		slog.String("number", number),
	)
	return nil
}

func (d *NullDialer) logger() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}
