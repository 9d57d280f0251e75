package outreach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/hunterai/recruit-engine/internal/config"
)

// ResendTransport sends SMS through the Resend SMS API.
type ResendTransport struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewResendTransport creates a Resend SMS transport.
func NewResendTransport(cfg config.ResendConfig) *ResendTransport {
	return &ResendTransport{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the transport identifier used in logs and results.
func (t *ResendTransport) Name() string { return "resend" }

// Send delivers one SMS via Resend's JSON endpoint.
func (t *ResendTransport) Send(ctx context.Context, to, body string) (*SendResult, error) {
	payload, err := json.Marshal(map[string]string{"to": to, "message": body})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", t.baseURL+"/sms", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resend send: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("resend error %d: %s", resp.StatusCode, string(respBody))
	}

	var out struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(respBody, &out)

	log.Printf("[Outreach] SMS sent via resend (id: %s)", out.ID)
	return &SendResult{MessageID: out.ID, Provider: "resend", SentAt: time.Now()}, nil
}
