// Package enrich calls the profile enrichment provider to fill in
// contact details for a candidate from their LinkedIn URL, and advances
// candidate status based on the outcome.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Profile is the enrichment provider's response. Either field may be
// absent; the provider tolerates extra fields we ignore.
type Profile struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// APIError is a non-2xx response from the provider, kept with the raw
// body for diagnostics.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("enrichment API error %d: %s", e.StatusCode, e.Body)
}

// Client calls the enrichment provider's profile lookup endpoint.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates an enrichment client. A zero timeout defaults to 30s.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Configured reports whether provider credentials are present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Enrich looks up contact details for a LinkedIn profile. Exactly one
// attempt; the caller decides what a failure means for the record.
func (c *Client) Enrich(ctx context.Context, linkedinURL string) (*Profile, error) {
	payload, err := json.Marshal(map[string]string{"linkedinUrl": linkedinURL})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/enrich", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// Timeout, refused connection, DNS: no response at all.
		return nil, fmt.Errorf("no response from enrichment API: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &profile, nil
}
