package vapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the vendor REST API (assistants collection and call
// details) with bearer-token auth.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		BaseURL:    baseURL,
		APIKey:     apiKey,
	}
}

// ListAssistants fetches the assistants collection.
func (c *Client) ListAssistants(ctx context.Context) ([]Assistant, error) {
	var assistants []Assistant
	if err := c.getJSON(ctx, "/assistant", &assistants); err != nil {
		return nil, err
	}
	return assistants, nil
}

// GetAssistant fetches a single assistant by id.
func (c *Client) GetAssistant(ctx context.Context, id string) (*Assistant, error) {
	var a Assistant
	if err := c.getJSON(ctx, "/assistant/"+url.PathEscape(id), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetCall fetches the post-call detail payload for id.
func (c *Client) GetCall(ctx context.Context, id string) (*Call, error) {
	var call Call
	if err := c.getJSON(ctx, "/call/"+url.PathEscape(id), &call); err != nil {
		return nil, err
	}
	return &call, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if c.APIKey == "" {
		return fmt.Errorf("vapi api key missing")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("vapi error: GET %s status=%d body=%s", path, resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
