package nasa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/orbitwatch/neo-insights-etl/internal/domain"
)

// maxFeedWindowDays is the widest date range the upstream feed accepts
// in a single request.
const maxFeedWindowDays = 7

const (
	maxAttempts  = 3
	retryBackoff = 200 * time.Millisecond
)

// Client fetches near-Earth-object records from the NASA NeoWs feed.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a NASA feed client. baseURL points at the NeoWs API
// root, e.g. https://api.nasa.gov/neo/rest/v1.
func NewClient(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchWindow retrieves all objects with a close approach in the trailing
// window of the given length, ending today. Windows wider than the feed
// allows are clamped to the maximum with a warning. The returned maps are
// the raw per-object JSON documents, in feed order (by date, then per-date
// list order).
func (c *Client) FetchWindow(ctx context.Context, days int) ([]map[string]any, error) {
	if days < 1 {
		days = 1
	}
	if days > maxFeedWindowDays {
		c.logger.Warn("feed window clamped", "requested_days", days, "max_days", maxFeedWindowDays)
		days = maxFeedWindowDays
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -(days - 1))

	params := url.Values{
		"start_date": {start.Format("2006-01-02")},
		"end_date":   {end.Format("2006-01-02")},
		"api_key":    {c.apiKey},
	}
	fullURL := c.baseURL + "/feed?" + params.Encode()

	body, err := c.get(ctx, fullURL)
	if err != nil {
		return nil, &domain.FetchError{Err: err}
	}

	var feed feedResponse
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, &domain.FetchError{Err: fmt.Errorf("decode feed: %w", err)}
	}

	// The feed groups objects by approach date. Walk dates in order so the
	// output is stable for a given response.
	dates := make([]string, 0, len(feed.NearEarthObjects))
	for date := range feed.NearEarthObjects {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var records []map[string]any
	for _, date := range dates {
		records = append(records, feed.NearEarthObjects[date]...)
	}

	c.logger.Debug("feed window fetched",
		"start", start.Format("2006-01-02"), "end", end.Format("2006-01-02"),
		"element_count", feed.ElementCount, "records", len(records))

	return records, nil
}

// get performs a GET with bounded retries. Transport errors and 5xx
// responses are retried; 4xx responses are not, since repeating them
// cannot succeed.
func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	backoff := retryBackoff

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if !sleepWithContext(ctx, backoff) {
				return nil, ctx.Err()
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("feed request: %w", err)
			c.logger.Warn("feed request failed", "attempt", attempt, "error", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("feed API error: status %d: %s", resp.StatusCode, truncate(body, 256))
			c.logger.Warn("feed server error", "attempt", attempt, "status", resp.StatusCode)
		default:
			return nil, fmt.Errorf("feed API error: status %d: %s", resp.StatusCode, truncate(body, 256))
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}

// feedResponse mirrors the subset of the NeoWs feed envelope we consume.
type feedResponse struct {
	ElementCount     int                         `json:"element_count"`
	NearEarthObjects map[string][]map[string]any `json:"near_earth_objects"`
}
