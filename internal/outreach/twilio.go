package outreach

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hunterai/recruit-engine/internal/config"
)

// TwilioTransport sends SMS through the Twilio Messages API.
type TwilioTransport struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
}

// NewTwilioTransport creates a Twilio SMS transport.
func NewTwilioTransport(cfg config.TwilioConfig) *TwilioTransport {
	return &TwilioTransport{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.PhoneNumber,
		baseURL:    cfg.BaseURL,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the transport identifier used in logs and results.
func (t *TwilioTransport) Name() string { return "twilio" }

// Send delivers one SMS via Twilio's form-encoded Messages endpoint.
func (t *TwilioTransport) Send(ctx context.Context, to, body string) (*SendResult, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", t.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twilio send: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("twilio error %d: %s", resp.StatusCode, string(respBody))
	}

	var out struct {
		SID string `json:"sid"`
	}
	_ = json.Unmarshal(respBody, &out)

	log.Printf("[Outreach] SMS sent via twilio (sid: %s)", out.SID)
	return &SendResult{MessageID: out.SID, Provider: "twilio", SentAt: time.Now()}, nil
}
