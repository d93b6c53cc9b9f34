// Package client is a Go client for the finassist chat proxy.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/finassist/finassist/pkg/llm"
)

// APIError is a non-200 answer from the proxy.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("chat proxy returned %d", e.StatusCode)
	}
	return fmt.Sprintf("chat proxy returned %d: %s", e.StatusCode, e.Message)
}

// Client posts chat turns to a proxy.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each chat call. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// New creates a client for the proxy at baseURL (e.g. http://localhost:8080).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient = &http.Client{Timeout: c.timeout}
	return c
}

// Chat sends message with the caller's prior history and returns the reply
// together with the extended history.
func (c *Client) Chat(ctx context.Context, message string, history []llm.Message) (*llm.ChatResponse, error) {
	body, err := json.Marshal(llm.ChatRequest{Message: message, History: history})
	if err != nil {
		return nil, fmt.Errorf("could not marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e llm.ErrorResponse
		if json.Unmarshal(respBody, &e) == nil {
			apiErr.Message = e.Error
		}
		return nil, apiErr
	}

	var result llm.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}

	return &result, nil
}
