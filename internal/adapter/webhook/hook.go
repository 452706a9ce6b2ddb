package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/orbitwatch/neo-insights-etl/internal/domain"
)

// maxSampleSize caps how many records a notification carries; the hook
// is a heads-up, not a data channel.
const maxSampleSize = 10

// Notifier posts a summary of each completed cycle to a configured
// webhook. Delivery is best effort: failures are reported to the caller
// for counting but never abort a cycle.
type Notifier struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewNotifier creates a webhook notifier. An empty URL yields a notifier
// whose Notify is a no-op.
func NewNotifier(url string, logger *slog.Logger) *Notifier {
	return &Notifier{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

type payload struct {
	Title     string             `json:"title"`
	Text      string             `json:"text"`
	Timestamp string             `json:"timestamp"`
	Sample    []domain.NEORecord `json:"sample,omitempty"`
}

// Notify posts a cycle summary with a sample of the processed records.
func (n *Notifier) Notify(ctx context.Context, message string, records []domain.NEORecord) error {
	if n.url == "" {
		return nil
	}

	if len(records) > maxSampleSize {
		records = records[:maxSampleSize]
	}

	body, err := json.Marshal(payload{
		Title:     "NEO Insights",
		Text:      message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Sample:    records,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification rejected: status %d", resp.StatusCode)
	}

	n.logger.Debug("notification sent", "records", len(records))
	return nil
}
