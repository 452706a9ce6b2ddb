package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/orbitwatch/neo-insights-etl/internal/domain"
	"github.com/orbitwatch/neo-insights-etl/internal/observability"
)

// Mode selects how wide a window of upcoming approaches a cycle covers,
// and whether results are persisted at all.
type Mode string

const (
	// ModeAuto is the scheduled default: a one-week lookahead.
	ModeAuto Mode = "auto"
	// ModeFull requests the widest supported lookahead.
	ModeFull Mode = "full"
	// ModeIncremental covers only today's approaches.
	ModeIncremental Mode = "incremental"
	// ModeValidation runs fetch, normalization, and insight derivation
	// without archiving or persisting anything.
	ModeValidation Mode = "validation"
)

// ParseMode resolves a mode string, accepting the manual- prefixed
// aliases used by operators triggering cycles by hand.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.TrimPrefix(s, "manual-")) {
	case ModeAuto, "":
		return ModeAuto, nil
	case ModeFull:
		return ModeFull, nil
	case ModeIncremental:
		return ModeIncremental, nil
	case ModeValidation:
		return ModeValidation, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// WindowDays is the lookahead each mode requests from the feed. The feed
// client clamps requests beyond what the upstream API allows.
func (m Mode) WindowDays() int {
	switch m {
	case ModeFull:
		return 30
	case ModeIncremental:
		return 1
	default:
		return 7
	}
}

// Stage identifies how far a cycle progressed.
type Stage int

const (
	StageFetching Stage = iota
	StageArchiving
	StageUpsertingRaw
	StageUpsertingInsights
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageFetching:
		return "fetching"
	case StageArchiving:
		return "archiving"
	case StageUpsertingRaw:
		return "upserting_raw"
	case StageUpsertingInsights:
		return "upserting_insights"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Feed produces the raw upstream documents for a lookahead window.
type Feed interface {
	FetchWindow(ctx context.Context, days int) ([]map[string]any, error)
}

// Archiver persists one raw batch document under an object name.
type Archiver interface {
	Archive(ctx context.Context, name string, data []byte) error
}

// Store upserts raw facts and derived insights.
type Store interface {
	UpsertRaw(ctx context.Context, records []domain.NEORecord) (int, error)
	UpsertInsights(ctx context.Context, enriched []domain.Enriched) (int, error)
}

// Notifier announces a completed cycle. Implementations are best effort.
type Notifier interface {
	Notify(ctx context.Context, message string, records []domain.NEORecord) error
}

// Report summarizes one processing cycle.
type Report struct {
	CycleID          string        `json:"cycle_id"`
	Mode             Mode          `json:"mode"`
	Stage            Stage         `json:"-"`
	StageName        string        `json:"stage"`
	Fetched          int           `json:"fetched"`
	Dropped          int           `json:"dropped"`
	RawUpserted      int           `json:"raw_upserted"`
	InsightsUpserted int           `json:"insights_upserted"`
	ArchiveObject    string        `json:"archive_object,omitempty"`
	ArchiveFailed    bool          `json:"archive_failed,omitempty"`
	Duration         time.Duration `json:"-"`
	DurationSeconds  float64       `json:"duration_seconds"`
}

// Cycle orchestrates one fetch-archive-upsert pass over the feed.
type Cycle struct {
	feed          Feed
	archiver      Archiver
	store         Store
	notifier      Notifier
	logger        *slog.Logger
	metrics       *observability.Metrics
	archivePrefix string
	ready         atomic.Bool
}

// New creates a Cycle with the given stages and observability.
func New(feed Feed, archiver Archiver, store Store, notifier Notifier,
	logger *slog.Logger, metrics *observability.Metrics, archivePrefix string) *Cycle {
	return &Cycle{
		feed:          feed,
		archiver:      archiver,
		store:         store,
		notifier:      notifier,
		logger:        logger,
		metrics:       metrics,
		archivePrefix: archivePrefix,
	}
}

// CheckReadiness returns nil once at least one cycle has completed, or an
// error describing why the service is not yet ready.
func (c *Cycle) CheckReadiness(_ context.Context) error {
	if !c.ready.Load() {
		return errors.New("no processing cycle has completed yet")
	}
	return nil
}

// Run executes one complete cycle. An archive failure is reported in the
// returned error but does not stop the upserts: the raw payload also
// lives in the facts table, so losing one archive object is recoverable.
// Any upsert failure rolls back its batch and fails the cycle.
func (c *Cycle) Run(ctx context.Context, mode Mode) (report Report, err error) {
	start := time.Now()
	report = Report{
		CycleID: uuid.NewString(),
		Mode:    mode,
		Stage:   StageFetching,
	}
	logger := c.logger.With("cycle_id", report.CycleID, "mode", mode)

	c.metrics.CycleRunning.Set(1)
	defer c.metrics.CycleRunning.Set(0)
	defer func() {
		report.StageName = report.Stage.String()
		report.Duration = time.Since(start)
		report.DurationSeconds = report.Duration.Seconds()
		c.metrics.CycleDuration.Observe(report.DurationSeconds)
	}()

	logger.Info("cycle started", "window_days", mode.WindowDays())

	raws, err := c.feed.FetchWindow(ctx, mode.WindowDays())
	if err != nil {
		report.Stage = StageFailed
		return report, err
	}
	report.Fetched = len(raws)
	c.metrics.RecordsFetched.Add(float64(len(raws)))
	c.metrics.BatchSize.Observe(float64(len(raws)))

	if len(raws) == 0 {
		report.Stage = StageDone
		logger.Info("cycle complete, nothing to process")
		return report, nil
	}

	fetchedAt := time.Now().UTC()
	records, enriched := c.normalizeAll(logger, raws, fetchedAt)
	report.Dropped = len(raws) - len(records)

	if mode == ModeValidation {
		report.Stage = StageDone
		c.ready.Store(true)
		logger.Info("validation cycle complete", "records", len(records), "dropped", report.Dropped)
		return report, nil
	}

	report.Stage = StageArchiving
	archiveErr := c.archive(ctx, logger, &report, raws, fetchedAt)

	report.Stage = StageUpsertingRaw
	n, err := c.store.UpsertRaw(ctx, records)
	if err != nil {
		report.Stage = StageFailed
		return report, err
	}
	report.RawUpserted = n
	c.metrics.RowsUpserted.WithLabelValues("raw_neo_facts").Add(float64(n))

	report.Stage = StageUpsertingInsights
	n, err = c.store.UpsertInsights(ctx, enriched)
	if err != nil {
		report.Stage = StageFailed
		return report, err
	}
	report.InsightsUpserted = n
	c.metrics.RowsUpserted.WithLabelValues("derived_insights").Add(float64(n))

	report.Stage = StageDone
	c.ready.Store(true)

	c.notify(ctx, logger, &report, records)

	logger.Info("cycle complete",
		"fetched", report.Fetched, "dropped", report.Dropped,
		"raw_upserted", report.RawUpserted, "insights_upserted", report.InsightsUpserted,
		"archive_object", report.ArchiveObject, "archive_failed", report.ArchiveFailed)

	return report, archiveErr
}

// normalizeAll converts raw documents, dropping those that fail
// validation. A bad record never aborts the batch.
func (c *Cycle) normalizeAll(logger *slog.Logger, raws []map[string]any, fetchedAt time.Time) ([]domain.NEORecord, []domain.Enriched) {
	records := make([]domain.NEORecord, 0, len(raws))
	enriched := make([]domain.Enriched, 0, len(raws))

	for _, raw := range raws {
		rec, err := domain.Normalize(raw, fetchedAt)
		if err != nil {
			logger.Warn("record dropped", "error", err)
			c.metrics.ValidationFailures.Inc()
			continue
		}
		records = append(records, rec)
		enriched = append(enriched, domain.Enriched{
			Record:   rec,
			Insights: domain.ComputeInsights(rec),
		})
	}

	return records, enriched
}

// archive writes the raw batch document. Failures are counted and
// surfaced but never block the cycle.
func (c *Cycle) archive(ctx context.Context, logger *slog.Logger, report *Report, raws []map[string]any, fetchedAt time.Time) error {
	name := fmt.Sprintf("%s_%s.json", c.archivePrefix, fetchedAt.Format("20060102_150405"))
	report.ArchiveObject = name

	data, err := json.Marshal(raws)
	if err != nil {
		err = &domain.ArchiveError{Object: name, Err: err}
		report.ArchiveFailed = true
		c.metrics.ArchiveFailures.Inc()
		logger.Error("archive failed", "object", name, "error", err)
		return err
	}

	if err := c.archiver.Archive(ctx, name, data); err != nil {
		report.ArchiveFailed = true
		c.metrics.ArchiveFailures.Inc()
		logger.Error("archive failed", "object", name, "error", err)
		return err
	}

	logger.Debug("raw batch archived", "object", name, "bytes", len(data))
	return nil
}

func (c *Cycle) notify(ctx context.Context, logger *slog.Logger, report *Report, records []domain.NEORecord) {
	if c.notifier == nil {
		return
	}

	msg := fmt.Sprintf("Processed %d records in %s mode (%d dropped)",
		report.RawUpserted, report.Mode, report.Dropped)
	if err := c.notifier.Notify(ctx, msg, records); err != nil {
		c.metrics.WebhookFailures.Inc()
		logger.Warn("notification failed", "error", err)
	}
}
