// Package provider holds the clients for the third-party generation services
// MelodyGram orchestrates: lyrics and titles (LLM), song audio, avatar video
// and the vision model used for gender detection. Each client exposes submit
// and poll semantics and is treated as opaque beyond that contract.
package provider

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrSetupRequired is returned when a client has no credentials configured.
// This is an operator problem, not a transient failure.
var ErrSetupRequired = errors.New("provider credentials not configured")

// ErrUnauthorized is returned when the provider rejects the configured
// credentials.
var ErrUnauthorized = errors.New("provider rejected credentials")

// Client is the shared HTTP client for provider APIs.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a provider client for the given endpoint.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// SetTimeout sets the request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// configured reports whether the client has an endpoint and credentials.
func (c *Client) configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// postJSON sends a JSON POST and decodes the JSON response into out.
func (c *Client) postJSON(req *http.Request, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.do(req, out)
}

// getJSON sends a GET and decodes the JSON response into out.
func (c *Client) getJSON(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
