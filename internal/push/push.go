// Package push delivers notifications to fully offline users through an
// external web-push provider. Delivery is strictly best effort: failures
// are returned for logging and never retried.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Sender is the push-delivery collaborator consumed by the hub.
type Sender interface {
	Send(ctx context.Context, token, title, body, targetURL string) error
}

// Client sends notifications to a Webpushr-compatible HTTP API, addressed
// by the recipient's provider-specific subscription token.
type Client struct {
	endpoint  string
	key       string
	authToken string
	http      *http.Client
}

// NewClient creates a push client.
func NewClient(endpoint, key, authToken string) *Client {
	return &Client{
		endpoint:  endpoint,
		key:       key,
		authToken: authToken,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

type sendRequest struct {
	Title     string `json:"title"`
	Message   string `json:"message"`
	TargetURL string `json:"target_url,omitempty"`
	SID       string `json:"sid"`
}

// Send pushes one notification to one subscriber.
func (c *Client) Send(ctx context.Context, token, title, body, targetURL string) error {
	payload, err := json.Marshal(sendRequest{
		Title:     title,
		Message:   body,
		TargetURL: targetURL,
		SID:       token,
	})
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/notification/send/sid", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("webpushrKey", c.key)
	req.Header.Set("webpushrAuthToken", c.authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("push request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("push provider returned status %d", resp.StatusCode)
	}
	return nil
}

// Noop is used when no push provider is configured.
type Noop struct{}

// Send discards the notification.
func (Noop) Send(ctx context.Context, token, title, body, targetURL string) error {
	return nil
}
