// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openai provides the HTTP client and stream decoding for the
// OpenAI-compatible chat completion API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the chat completion client.
type ClientConfig struct {
	// BaseURL is the API base URL (default: https://api.openai.com)
	BaseURL string

	// APIKey is sent as a bearer token on every request.
	APIKey string

	// Model to use for completions (default: "gpt-3.5-turbo")
	Model string

	// Temperature for sampling (default: 0.7)
	Temperature float64

	// MaxTokens caps the completion length (default: 2048)
	MaxTokens int

	// Stop sequences terminate generation server-side.
	Stop []string

	// StreamTimeout bounds connection establishment; the stream itself is
	// governed by the request context (default: 10s).
	StreamTimeout time.Duration

	// RequestsPerMinute rate-limits outgoing requests (default: 20).
	RequestsPerMinute int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:           "https://api.openai.com",
		Model:             "gpt-3.5-turbo",
		Temperature:       0.7,
		MaxTokens:         2048,
		Stop:              []string{"\n\n\n"},
		StreamTimeout:     10 * time.Second,
		RequestsPerMinute: 20,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// ChunkHandler receives one raw body chunk. Returning a non-nil error aborts
// the stream; the error is propagated out of StreamChat unchanged.
type ChunkHandler func(chunk []byte) error

// Client handles communication with the chat completion API.
//
// The Client is safe for concurrent use, though the session controller only
// ever has one stream in flight.
type Client struct {
	config  *ClientConfig
	limiter *rate.Limiter

	// httpClient has no overall timeout: a streaming response stays open
	// for as long as the model generates. Cancellation comes from the
	// request context.
	httpClient *http.Client
}

// NewClient creates a client with the given configuration, filling in
// defaults for any zero values.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com"
	}
	if config.Model == "" {
		config.Model = "gpt-3.5-turbo"
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 2048
	}
	if config.StreamTimeout == 0 {
		config.StreamTimeout = 10 * time.Second
	}
	if config.RequestsPerMinute == 0 {
		config.RequestsPerMinute = 20
	}

	return &Client{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(float64(config.RequestsPerMinute)/60.0), config.RequestsPerMinute),
		httpClient: &http.Client{
			// Response headers must arrive within the stream timeout;
			// after that the body may stream indefinitely.
			Transport: &http.Transport{
				ResponseHeaderTimeout: config.StreamTimeout,
			},
		},
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.config.Model
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// StreamChat sends a streaming chat completion request and delivers raw body
// chunks to the handler in arrival order. It blocks until the stream ends,
// the handler aborts, or the context is cancelled.
//
// The handler is called synchronously from the read loop: a chunk's bytes are
// fully processed before the next chunk is read from the wire.
func (c *Client) StreamChat(ctx context.Context, messages []ChatMessage, handler ChunkHandler) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return transportError("rate limit wait aborted", err)
	}

	reqBody := ChatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
		Stop:        c.config.Stop,
		Stream:      true,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return transportError("failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return transportError("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return transportError("request cancelled", err)
		}
		return transportError("connection failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error.Message != "" {
			return transportError(apiErr.Error.Message, nil)
		}
		return transportError("stream request failed: "+resp.Status, nil)
	}

	return c.readStream(ctx, resp.Body, handler)
}

// readStream pumps raw chunks from the response body to the handler.
func (c *Client) readStream(ctx context.Context, body io.Reader, handler ChunkHandler) error {
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return transportError("stream cancelled", ctx.Err())
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if handlerErr := handler(chunk); handlerErr != nil {
				return handlerErr
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return transportError("stream read failed", err)
		}
	}
}
