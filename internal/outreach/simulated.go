package outreach

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// SimulatedTransport logs the message instead of sending it. It is the
// fallback when no real provider is configured, so development
// environments never hit a live SMS API.
type SimulatedTransport struct{}

// NewSimulatedTransport creates the no-op transport.
func NewSimulatedTransport() *SimulatedTransport { return &SimulatedTransport{} }

// Name returns the transport identifier used in logs and results.
func (t *SimulatedTransport) Name() string { return "simulated" }

// Send logs the would-be SMS and reports success.
func (t *SimulatedTransport) Send(ctx context.Context, to, body string) (*SendResult, error) {
	log.Printf("[Outreach] [DEV] simulated SMS to %s: %s", to, body)
	return &SendResult{
		MessageID: uuid.New().String(),
		Provider:  "simulated",
		Simulated: true,
		SentAt:    time.Now(),
	}, nil
}
