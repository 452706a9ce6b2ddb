package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/orbitwatch/neo-insights-etl/internal/adapter/http"
	"github.com/orbitwatch/neo-insights-etl/internal/adapter/postgres"
	"github.com/orbitwatch/neo-insights-etl/internal/domain"
	"github.com/orbitwatch/neo-insights-etl/internal/pipeline"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockRunner struct {
	mode   pipeline.Mode
	report pipeline.Report
	err    error
}

func (m *mockRunner) Run(_ context.Context, mode pipeline.Mode) (pipeline.Report, error) {
	m.mode = mode
	return m.report, m.err
}

type mockStats struct {
	stats postgres.Stats
	err   error
}

func (m *mockStats) Stats(_ context.Context) (postgres.Stats, error) { return m.stats, m.err }

func newTestServer(readyErr error, runner *mockRunner, stats *mockStats) *httpadapter.Server {
	if runner == nil {
		runner = &mockRunner{}
	}
	if stats == nil {
		stats = &mockStats{}
	}
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, runner, stats, slog.Default())
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil, nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil, nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(fmt.Errorf("not ready yet"), nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil, nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestStatsEndpoint(t *testing.T) {
	lastFetched := time.Date(2026, 8, 29, 6, 0, 0, 0, time.UTC)
	stats := &mockStats{stats: postgres.Stats{
		RawCount:       120,
		InsightCount:   118,
		HazardousCount: 4,
		HighRiskCount:  2,
		LastFetchedAt:  &lastFetched,
	}}

	srv := newTestServer(nil, nil, stats)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body postgres.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(120), body.RawCount)
	assert.Equal(t, int64(118), body.InsightCount)
	assert.Equal(t, int64(4), body.HazardousCount)
	assert.Equal(t, int64(2), body.HighRiskCount)
	require.NotNil(t, body.LastFetchedAt)
	assert.True(t, lastFetched.Equal(*body.LastFetchedAt))
}

func TestStatsEndpointFailure(t *testing.T) {
	stats := &mockStats{err: &domain.StorageError{Table: "raw_neo_facts", Err: errors.New("down")}}

	srv := newTestServer(nil, nil, stats)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestProcessEndpoint(t *testing.T) {
	t.Run("runs the requested mode", func(t *testing.T) {
		runner := &mockRunner{report: pipeline.Report{
			CycleID:   "cyc-1",
			Mode:      pipeline.ModeFull,
			Stage:     pipeline.StageDone,
			StageName: "done",
			Fetched:   5,
		}}

		srv := newTestServer(nil, runner, nil)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/process", strings.NewReader(`{"mode":"full"}`))

		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, pipeline.ModeFull, runner.mode)

		var body struct {
			Report pipeline.Report `json:"report"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "cyc-1", body.Report.CycleID)
		assert.Equal(t, 5, body.Report.Fetched)
	})

	t.Run("empty body defaults to auto", func(t *testing.T) {
		runner := &mockRunner{report: pipeline.Report{Stage: pipeline.StageDone}}

		srv := newTestServer(nil, runner, nil)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/process", nil)

		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, pipeline.ModeAuto, runner.mode)
	})

	t.Run("rejects unknown mode", func(t *testing.T) {
		srv := newTestServer(nil, &mockRunner{}, nil)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/process", strings.NewReader(`{"mode":"yolo"}`))

		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		srv := newTestServer(nil, &mockRunner{}, nil)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/process", strings.NewReader(`{mode`))

		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("failed cycle is 500", func(t *testing.T) {
		runner := &mockRunner{
			report: pipeline.Report{Stage: pipeline.StageFailed},
			err:    &domain.FetchError{Err: errors.New("upstream down")},
		}

		srv := newTestServer(nil, runner, nil)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/process", strings.NewReader(`{"mode":"auto"}`))

		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("archive warning still returns 200", func(t *testing.T) {
		runner := &mockRunner{
			report: pipeline.Report{Stage: pipeline.StageDone, ArchiveFailed: true},
			err:    &domain.ArchiveError{Object: "x.json", Err: errors.New("disk full")},
		}

		srv := newTestServer(nil, runner, nil)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/process", strings.NewReader(`{"mode":"auto"}`))

		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
