// Package fallback implements the client for the remote detection service
// used as the cascade's last resort.
//
// The service applies its own ladder of classical and machine-learned
// detection strategies; this client knows nothing about that ladder. The
// contract is one call with a hard deadline: an image goes out, and either a
// payload or nothing comes back. Timeouts and transport failures are ordinary
// "no detection" outcomes for the pipeline, not faults.
package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// ErrUnavailable reports that the fallback service could not produce a
// response within the deadline.
var ErrUnavailable = errors.New("fallback service unavailable")

// Config holds fallback client settings.
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// DefaultConfig returns the default fallback configuration.
func DefaultConfig() Config {
	return Config{
		Endpoint: "http://localhost:8501",
		Timeout:  5 * time.Second,
	}
}

// Client calls the remote detection service over HTTP.
type Client struct {
	endpoint string
	timeout  time.Duration
	http     *http.Client
}

// New creates a fallback client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Client{
		endpoint: cfg.Endpoint,
		timeout:  cfg.Timeout,
		http:     &http.Client{Timeout: cfg.Timeout},
	}
}

// detectResponse is the wire shape of the service's answer. Success is a
// pointer so a response missing the field entirely is distinguishable from
// success=false and rejected as malformed.
type detectResponse struct {
	Success     *bool    `json:"success"`
	Payload     string   `json:"payload,omitempty"`
	MethodTried []string `json:"method_tried,omitempty"`
	DurationMs  float64  `json:"duration_ms,omitempty"`
}

// Detect submits imageData to the service and returns the decoded payload if
// the service found one. ok=false with a nil error means the service answered
// "nothing found"; a non-nil error wraps ErrUnavailable and means the service
// could not be consulted at all.
func (c *Client) Detect(ctx context.Context, imageData []byte) (payload string, ok bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "image.png")
	if err != nil {
		return "", false, fmt.Errorf("%w: create form file: %w", ErrUnavailable, err)
	}
	if _, err := io.Copy(part, bytes.NewReader(imageData)); err != nil {
		return "", false, fmt.Errorf("%w: copy image data: %w", ErrUnavailable, err)
	}
	if err := writer.Close(); err != nil {
		return "", false, fmt.Errorf("%w: close multipart writer: %w", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/detect", body)
	if err != nil {
		return "", false, fmt.Errorf("%w: create request: %w", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var dr detectResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&dr); err != nil {
		return "", false, fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}
	if dr.Success == nil {
		// Contract violation, not a crash: treat as unavailable.
		return "", false, fmt.Errorf("%w: response missing success field", ErrUnavailable)
	}
	if !*dr.Success || dr.Payload == "" {
		return "", false, nil
	}
	return dr.Payload, true, nil
}

// Healthy probes the service's health endpoint and reports reachability and
// observed latency.
func (c *Client) Healthy(ctx context.Context) (bool, time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return false, time.Since(start)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, time.Since(start)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	return resp.StatusCode == http.StatusOK, time.Since(start)
}
