// Package outreach sends the first-contact SMS when a candidate becomes
// ready for outreach, through one of several interchangeable transports.
//
// Transports are split into individual files:
//   - twilio.go:    Twilio Messages API (basic auth, form-encoded)
//   - resend.go:    Resend SMS API (bearer token, JSON)
//   - simulated.go: no-op logger used when nothing is configured
package outreach

import (
	"context"
	"log"
	"time"

	"github.com/hunterai/recruit-engine/internal/config"
)

// SendResult describes one delivery attempt that the provider accepted.
type SendResult struct {
	MessageID string
	Provider  string
	Simulated bool
	SentAt    time.Time
}

// MessageTransport delivers one SMS. Implementations make exactly one
// attempt; retry policy, if any, belongs to the caller.
type MessageTransport interface {
	Name() string
	Send(ctx context.Context, to, body string) (*SendResult, error)
}

// SelectTransport picks the delivery backend once at startup: Twilio if
// configured, else Resend, else the simulated sender. Selection is
// static per process, not per request.
func SelectTransport(twilio config.TwilioConfig, resend config.ResendConfig) MessageTransport {
	if twilio.Configured() {
		log.Printf("[Outreach] SMS transport: twilio")
		return NewTwilioTransport(twilio)
	}
	if resend.Configured() {
		log.Printf("[Outreach] SMS transport: resend")
		return NewResendTransport(resend)
	}
	log.Printf("[Outreach] no SMS provider configured, using simulated transport")
	return NewSimulatedTransport()
}
