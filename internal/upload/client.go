package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/claude/vitalsync/internal/ingest"
	"github.com/google/uuid"
)

const maxAttempts = 3

// Result is the server's answer to one upload.
type Result struct {
	Status    int
	RequestID string
	Response  ingest.Response
}

// Client sends Health Auto Export payloads to a VitalSync server.
type Client struct {
	serverURL  string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a new HTTP client for the VitalSync server.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		backoff: time.Second,
	}
}

// Send POSTs one payload document to /api/data. Transport errors and 5xx
// answers other than a reported ingest outcome are retried with exponential
// backoff. Any answer carrying ingest outcomes (200, 207, 500) is returned as
// a Result without error.
func (c *Client) Send(ctx context.Context, payload []byte) (*Result, error) {
	requestID := uuid.NewString()

	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff << uint(attempt-1)):
			}
		}

		res, retry, err := c.post(ctx, requestID, payload)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) post(ctx context.Context, requestID string, payload []byte) (*Result, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/data", bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("reading response: %w", err)
	}

	res := &Result{Status: resp.StatusCode, RequestID: requestID}
	if json.Unmarshal(body, &res.Response) == nil && (res.Response.Metrics != nil || res.Response.Workouts != nil) {
		return res, false, nil
	}
	err = fmt.Errorf("ingest failed (status %d): %s", resp.StatusCode, bytes.TrimSpace(body))
	return nil, resp.StatusCode >= 500, err
}
