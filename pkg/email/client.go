package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/grattia/grattia-backend/pkg/config"
)

// Message is the payload accepted by the internal email relay.
type Message struct {
	To       string         `json:"to"`
	From     string         `json:"from"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data,omitempty"`
}

// Sender is the surface services depend on; the HTTP client satisfies it and
// tests stub it.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Client relays transactional email through the internal email service.
type Client struct {
	httpClient  *http.Client
	relayURL    string
	relayToken  string
	fromAddress string
}

// NewClient builds the relay client from config.
func NewClient(cfg config.EmailConfig) (*Client, error) {
	relayURL := strings.TrimSpace(cfg.RelayURL)
	if relayURL == "" {
		return nil, errors.New("email relay url is required")
	}
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		relayURL:    relayURL,
		relayToken:  strings.TrimSpace(cfg.RelayToken),
		fromAddress: strings.TrimSpace(cfg.FromAddress),
	}, nil
}

// Send posts the message to the relay. The relay owns templating and
// delivery; a non-2xx response is reported as an error.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("recipient is required")
	}
	if msg.From == "" {
		msg.From = c.fromAddress
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.relayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.relayToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.relayToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email relay request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email relay responded with status %d", resp.StatusCode)
	}
	return nil
}
