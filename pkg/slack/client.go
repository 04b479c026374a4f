// Package slack provides a client for sending notifications to a Slack
// incoming webhook. It backs the "chat" delivery channel.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client represents a Slack webhook client used to send notifications.
type Client struct {
	webhookURL string
	client     *http.Client
}

// NewClient creates a new Slack Client posting to the given incoming
// webhook URL.
func NewClient(webhookURL string, timeout time.Duration) *Client {
	return &Client{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
	}
}

// webhookRequest represents the payload for a Slack incoming webhook.
type webhookRequest struct {
	Channel string `json:"channel,omitempty"` // channel to post to, webhook default if empty
	Text    string `json:"text"`              // message text
}

// Send posts a notification message to the webhook. The recipient is
// passed as the Slack channel; the subject is folded into the text
// since webhooks have no subject concept.
func (c *Client) Send(ctx context.Context, to, subject, msg string) error {
	text := msg
	if subject != "" {
		text = fmt.Sprintf("*%s*\n%s", subject, msg)
	}

	body, err := json.Marshal(webhookRequest{Channel: to, Text: text})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack API error: %s", resp.Status)
	}

	return nil
}
