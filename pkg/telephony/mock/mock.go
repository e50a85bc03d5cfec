// Package mock provides an in-memory mock implementation of
// [telephony.Dialer] for use in unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/kavachapp/kavach/pkg/telephony"
)

// SMS records one SendSMS invocation.
type SMS struct {
	Number  string
	Message string
}

// Dialer is a mock [telephony.Dialer]. Safe for concurrent use.
type Dialer struct {
	mu sync.Mutex

	// PlaceCallError is returned by PlaceCall when non-nil.
	PlaceCallError error

	// SendSMSError is returned by SendSMS when non-nil.
	SendSMSError error

	// Calls holds the numbers passed to PlaceCall, in order.
	Calls []string

	// Messages holds the SendSMS invocations, in order.
	Messages []SMS
}

// Compile-time interface check.
var _ telephony.Dialer = (*Dialer)(nil)

// PlaceCall records the call and returns the configured error.
func (d *Dialer) PlaceCall(_ context.Context, number string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls = append(d.Calls, number)
	return d.PlaceCallError
}

// SendSMS records the message and returns the configured error.
func (d *Dialer) SendSMS(_ context.Context, number, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Messages = append(d.Messages, SMS{Number: number, Message: message})
	return d.SendSMSError
}

// CallCount returns how many calls were placed.
func (d *Dialer) CallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Calls)
}

// SMSCount returns how many messages were sent.
func (d *Dialer) SMSCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Messages)
}
