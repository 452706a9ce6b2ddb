package nasa

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitwatch/neo-insights-etl/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func feedBody(byDate map[string][]string) string {
	out := `{"element_count": 2, "near_earth_objects": {`
	first := true
	for date, objs := range byDate {
		if !first {
			out += ","
		}
		first = false
		out += fmt.Sprintf("%q: [", date)
		for i, o := range objs {
			if i > 0 {
				out += ","
			}
			out += o
		}
		out += "]"
	}
	return out + "}}"
}

func TestFetchWindow(t *testing.T) {
	t.Run("flattens dates in order", func(t *testing.T) {
		var gotQuery atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery.Store(r.URL.Query())
			fmt.Fprint(w, feedBody(map[string][]string{
				"2026-08-30": {`{"id": "3000002", "name": "B"}`},
				"2026-08-29": {`{"id": "3000001", "name": "A"}`},
			}))
		}))
		defer srv.Close()

		c := NewClient("test-key", srv.URL, 5*time.Second, testLogger())
		records, err := c.FetchWindow(context.Background(), 2)
		require.NoError(t, err)
		require.Len(t, records, 2)

		// Earlier approach date comes first regardless of map order.
		assert.Equal(t, "3000001", records[0]["id"])
		assert.Equal(t, "3000002", records[1]["id"])

		q := gotQuery.Load().(url.Values)
		assert.Equal(t, "test-key", q.Get("api_key"))
		assert.NotEmpty(t, q.Get("start_date"))
		assert.NotEmpty(t, q.Get("end_date"))
	})

	t.Run("window trails today", func(t *testing.T) {
		var gotQuery atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery.Store(r.URL.Query())
			fmt.Fprint(w, `{"element_count": 0, "near_earth_objects": {}}`)
		}))
		defer srv.Close()

		before := time.Now().UTC()
		c := NewClient("k", srv.URL, 5*time.Second, testLogger())
		_, err := c.FetchWindow(context.Background(), 7)
		require.NoError(t, err)
		after := time.Now().UTC()

		q := gotQuery.Load().(url.Values)
		start, err := time.Parse("2006-01-02", q.Get("start_date"))
		require.NoError(t, err)
		end, err := time.Parse("2006-01-02", q.Get("end_date"))
		require.NoError(t, err)

		// The window ends today and reaches back, never forward.
		endDate := end.Format("2006-01-02")
		assert.Contains(t, []string{before.Format("2006-01-02"), after.Format("2006-01-02")}, endDate)
		assert.Equal(t, end.AddDate(0, 0, -6), start)
	})

	t.Run("clamps oversized windows", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start, err := time.Parse("2006-01-02", r.URL.Query().Get("start_date"))
			require.NoError(t, err)
			end, err := time.Parse("2006-01-02", r.URL.Query().Get("end_date"))
			require.NoError(t, err)
			assert.Equal(t, 6, int(end.Sub(start).Hours()/24))
			fmt.Fprint(w, `{"element_count": 0, "near_earth_objects": {}}`)
		}))
		defer srv.Close()

		c := NewClient("k", srv.URL, 5*time.Second, testLogger())
		records, err := c.FetchWindow(context.Background(), 30)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			fmt.Fprint(w, `{"element_count": 0, "near_earth_objects": {}}`)
		}))
		defer srv.Close()

		c := NewClient("k", srv.URL, 5*time.Second, testLogger())
		_, err := c.FetchWindow(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := NewClient("k", srv.URL, 5*time.Second, testLogger())
		_, err := c.FetchWindow(context.Background(), 1)
		require.Error(t, err)
		assert.Equal(t, int32(3), calls.Load())

		var fetchErr *domain.FetchError
		assert.ErrorAs(t, err, &fetchErr)
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"error": "invalid api key"}`)
		}))
		defer srv.Close()

		c := NewClient("bad-key", srv.URL, 5*time.Second, testLogger())
		_, err := c.FetchWindow(context.Background(), 1)
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
		assert.Contains(t, err.Error(), "status 403")
	})

	t.Run("malformed body is a fetch error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `not json`)
		}))
		defer srv.Close()

		c := NewClient("k", srv.URL, 5*time.Second, testLogger())
		_, err := c.FetchWindow(context.Background(), 1)
		require.Error(t, err)

		var fetchErr *domain.FetchError
		assert.ErrorAs(t, err, &fetchErr)
	})

	t.Run("cancelled context stops retries", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := NewClient("k", srv.URL, 5*time.Second, testLogger())
		_, err := c.FetchWindow(ctx, 1)
		require.Error(t, err)
	})
}
