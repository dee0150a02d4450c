package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client posts text messages to the WhatsApp gateway. The gateway is a plain
// HTTP bridge: one POST per message, API key in a header.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// New builds a gateway client. An empty baseURL yields a disabled client
// whose Send returns an error, which keeps local environments honest.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
}

type sendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Send delivers a text message to the given phone number.
func (c *Client) Send(ctx context.Context, phone, message string) error {
	if c.baseURL == "" {
		return fmt.Errorf("whatsapp: gateway not configured")
	}
	body, err := json.Marshal(sendRequest{Phone: phone, Message: message})
	if err != nil {
		return fmt.Errorf("whatsapp: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: gateway call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whatsapp: gateway returned %d: %s", resp.StatusCode, snippet)
	}
	return nil
}
