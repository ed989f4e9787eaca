// Package advisory talks to the optional text-generation endpoint that may phrase action results.
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"case-trainer-service/internal/app"
)

// maxResponseBytes bounds how much of an answer body is read.
const maxResponseBytes = 64 << 10

// Client posts the action payload as JSON and reads {"answer": "..."} back.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient returns a client for endpoint; timeout <= 0 uses 5s.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

type adviceRequest struct {
	app.AdvisoryRequest
	State map[string]any `json:"state"`
}

type adviceResponse struct {
	Answer string `json:"answer"`
}

// Advise returns the generated answer. An empty answer with a nil error means the endpoint had
// nothing to add.
func (c *Client) Advise(ctx context.Context, req app.AdvisoryRequest) (string, error) {
	body, err := json.Marshal(adviceRequest{AdvisoryRequest: req, State: map[string]any{}})
	if err != nil {
		return "", fmt.Errorf("marshal advisory request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build advisory request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("advisory request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return "", fmt.Errorf("advisory endpoint returned %s", resp.Status)
	}
	var out adviceResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode advisory response: %w", err)
	}
	return out.Answer, nil
}
