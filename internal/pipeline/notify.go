package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hakim/headerstat/internal/models"
)

// NotifyConfig configures where to send completion notifications.
type NotifyConfig struct {
	WebhookURL string // if empty, no notifications

	// Client overrides the HTTP client; nil uses a client with a 10s timeout.
	Client *http.Client
}

// completionPayload is the JSON body posted to the webhook endpoint.
type completionPayload struct {
	Source          string               `json:"source"`
	RunID           string               `json:"run_id"`
	Status          models.RunStatus     `json:"status"`
	Summary         models.RunSummary    `json:"summary"`
	NoData          bool                 `json:"no_data"`
	TopHeaders      []models.HeaderCount `json:"top_headers"`
	CoveragePercent float64              `json:"coverage_percent"`
	ElapsedSeconds  float64              `json:"elapsed_seconds"`
}

// SendCompletion posts a JSON payload to the webhook URL with run results.
// Returns nil if WebhookURL is empty (no-op). Non-fatal: errors are returned
// but callers should treat them as warnings.
func (n *NotifyConfig) SendCompletion(ctx context.Context, result *RunResult) error {
	if n == nil || n.WebhookURL == "" {
		return nil
	}

	run := result.Run
	payload := completionPayload{
		Source:         run.Source,
		RunID:          run.ID,
		Status:         run.Status,
		Summary:        run.Summary,
		NoData:         result.NoData,
		TopHeaders:     []models.HeaderCount{},
		ElapsedSeconds: result.Elapsed.Seconds(),
	}
	if result.Report != nil {
		payload.TopHeaders = result.Report.TopN
		payload.CoveragePercent = result.Report.CoveragePercent
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: posting to %s: %w", n.WebhookURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook returned non-2xx status %d", resp.StatusCode)
	}

	return nil
}
