// Package webhook sends lateness and break-exceeded reports to the external
// notification endpoint. Delivery is at-most-once: callers log failures and
// move on, nothing here retries.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Endpoint paths on the notification host.
const (
	pathLatenessReport = "/webhook/lateness-report"
	pathBreakExceeded  = "/webhook/notify-break-exceeded"
)

// Payload is the JSON body both endpoints accept. StartTime is a wall-clock
// string (HH:MM:SS) in the reference timezone, not RFC 3339: the receiving
// workflow templates it straight into a chat message.
type Payload struct {
	UserName  string `json:"userName"`
	StartTime string `json:"startTime"`
}

// Client posts notification payloads to the webhook host.
type Client struct {
	baseURL    string
	loc        *time.Location
	httpClient *http.Client
	stubMode   bool
}

// NewClient creates a webhook client. In stub mode no network calls are
// made; sends are logged as successes (local development without the
// workflow host running).
func NewClient(baseURL string, loc *time.Location, stubMode bool) *Client {
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		baseURL:    baseURL,
		loc:        loc,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		stubMode:   stubMode,
	}
}

// SendLatenessReport reports a work start after the cutoff.
func (c *Client) SendLatenessReport(ctx context.Context, userName string, startTime time.Time) error {
	return c.post(ctx, pathLatenessReport, userName, startTime)
}

// SendBreakExceeded reports a user over the daily break budget.
func (c *Client) SendBreakExceeded(ctx context.Context, userName string, startTime time.Time) error {
	return c.post(ctx, pathBreakExceeded, userName, startTime)
}

func (c *Client) post(ctx context.Context, path, userName string, startTime time.Time) error {
	if c.stubMode {
		return nil
	}

	body, err := json.Marshal(Payload{
		UserName:  userName,
		StartTime: startTime.In(c.loc).Format("15:04:05"),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(b))
	}
	return nil
}
