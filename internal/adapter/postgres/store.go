package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/orbitwatch/neo-insights-etl/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

const (
	rawTable      = "raw_neo_facts"
	insightsTable = "derived_insights"
)

// Store persists raw facts and derived insights in Postgres.
type Store struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	logger  *slog.Logger
}

// Connect opens a pooled connection and verifies it with a ping.
func Connect(dsn string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return NewStore(db, logger), nil
}

// NewStore wraps an existing database handle.
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger:  logger,
	}
}

// Migrate creates the tables and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.logger.Info("schema applied")
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

var rawColumns = []string{
	"id", "name", "nasa_jpl_url", "absolute_magnitude_h",
	"estimated_diameter_min_km", "estimated_diameter_max_km",
	"is_potentially_hazardous_asteroid", "is_sentry_object",
	"close_approach_date", "close_approach_full", "close_approach_epoch_unix",
	"relative_velocity_km_per_sec", "relative_velocity_km_per_hour",
	"relative_velocity_miles_per_hour", "miss_distance_astronomical",
	"miss_distance_lunar", "miss_distance_kilometers", "orbiting_body",
	"epoch_osculation", "eccentricity", "semi_major_axis", "inclination",
	"ascending_node_longitude", "orbital_period", "perihelion_distance",
	"perihelion_argument", "aphelion_distance", "perihelion_time",
	"mean_anomaly", "mean_motion", "equinox", "orbit_determination_date",
	"orbit_uncertainty", "minimum_orbit_intersection",
	"jupiter_tisserand_invariant", "earth_minimum_orbit_intersection_distance",
	"orbit_id", "object_designation", "nasa_data_json", "fetched_at",
}

var insightColumns = []string{
	"id", "name", "risk_score", "hazard_level", "size_category",
	"orbit_type", "inclination_type", "velocity_category", "distance_category",
	"days_to_approach", "is_high_priority", "threat_level", "recommended_action",
	"orbital_insights", "size_insights", "velocity_insights", "distance_insights",
	"processing_metadata", "processed_at",
}

// UpsertRaw writes normalized records into raw_neo_facts. The whole batch
// runs in one transaction; any row failure rolls the batch back. A record
// whose id already exists is overwritten, so replays converge on one row.
func (s *Store) UpsertRaw(ctx context.Context, records []domain.NEORecord) (int, error) {
	rows := make([][]any, 0, len(records))
	for i := range records {
		rows = append(rows, rawValues(&records[i]))
	}
	n, err := s.upsertRows(ctx, rawTable, rawColumns, rows)
	if err != nil {
		return n, &domain.StorageError{Table: rawTable, Err: err}
	}
	return n, nil
}

// UpsertInsights writes derived insights into derived_insights, keyed by
// the same object id as the raw row. Same transactional contract as
// UpsertRaw.
func (s *Store) UpsertInsights(ctx context.Context, enriched []domain.Enriched) (int, error) {
	rows := make([][]any, 0, len(enriched))
	for i := range enriched {
		vals, err := insightValues(&enriched[i])
		if err != nil {
			return 0, &domain.StorageError{Table: insightsTable, Err: err}
		}
		rows = append(rows, vals)
	}
	n, err := s.upsertRows(ctx, insightsTable, insightColumns, rows)
	if err != nil {
		return n, &domain.StorageError{Table: insightsTable, Err: err}
	}
	return n, nil
}

// upsertRows executes one prepared INSERT ... ON CONFLICT per row inside a
// single transaction. Per-row execution keeps duplicate ids within a batch
// well defined: the last occurrence wins.
func (s *Store) upsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query, err := s.upsertQuery(table, columns)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("upsert row id=%v: %w", row[0], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	s.logger.Debug("batch upserted", "table", table, "rows", len(rows))
	return len(rows), nil
}

// upsertQuery builds INSERT ... ON CONFLICT (id) DO UPDATE SET covering
// every non-key column. Placeholders are one row's worth; callers execute
// it per row.
func (s *Store) upsertQuery(table string, columns []string) (string, error) {
	placeholders := make([]any, len(columns))
	for i := range placeholders {
		placeholders[i] = sq.Expr("?")
	}

	updates := make([]string, 0, len(columns)-1)
	for _, col := range columns[1:] {
		updates = append(updates, col+" = EXCLUDED."+col)
	}

	query, _, err := s.builder.
		Insert(table).
		Columns(columns...).
		Values(placeholders...).
		Suffix("ON CONFLICT (id) DO UPDATE SET " + strings.Join(updates, ", ")).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build upsert: %w", err)
	}
	return query, nil
}

func rawValues(rec *domain.NEORecord) []any {
	approach := rec.Approach
	if approach == nil {
		approach = &domain.ApproachEvent{}
	}
	orbit := rec.Orbit
	if orbit == nil {
		orbit = &domain.OrbitalElements{}
	}

	var approachDate any
	if rec.Approach != nil && rec.Approach.Date != "" {
		approachDate = rec.Approach.Date
	}

	return []any{
		rec.ID, rec.Name, rec.JPLURL, rec.AbsoluteMagnitude,
		rec.DiameterMinKm, rec.DiameterMaxKm,
		rec.Hazardous, rec.SentryObject,
		approachDate, approach.DateFull, approach.EpochUnix,
		approach.VelocityKmS, approach.VelocityKmH,
		approach.VelocityMiH, approach.DistanceAU,
		approach.DistanceLunar, approach.DistanceKm, approach.OrbitingBody,
		orbit.EpochOsculation, orbit.Eccentricity, orbit.SemiMajorAxis, orbit.Inclination,
		orbit.AscendingNodeLongitude, orbit.OrbitalPeriod, orbit.PerihelionDistance,
		orbit.PerihelionArgument, orbit.AphelionDistance, orbit.PerihelionTime,
		orbit.MeanAnomaly, orbit.MeanMotion, orbit.Equinox, orbit.OrbitDeterminationDate,
		orbit.OrbitUncertainty, orbit.MinimumOrbitIntersection,
		orbit.JupiterTisserandInvariant, orbit.EarthMOID,
		orbit.OrbitID, orbit.ObjectDesignation, rawJSON(rec.RawPayload), rec.FetchedAt,
	}
}

// rawJSON adapts the retained payload for a JSONB parameter. lib/pq
// encodes []byte as bytea, so JSON documents go over as text.
func rawJSON(payload []byte) any {
	if len(payload) == 0 {
		return nil
	}
	return string(payload)
}

func insightValues(e *domain.Enriched) ([]any, error) {
	set := &e.Insights

	orbital, err := jsonOrNil(set.Orbital)
	if err != nil {
		return nil, err
	}
	size, err := jsonOrNil(&set.Size)
	if err != nil {
		return nil, err
	}
	velocity, err := jsonOrNil(set.Velocity)
	if err != nil {
		return nil, err
	}
	distance, err := jsonOrNil(set.Distance)
	if err != nil {
		return nil, err
	}
	metadata, err := jsonOrNil(&set.Metadata)
	if err != nil {
		return nil, err
	}

	return []any{
		e.Record.ID, e.Record.Name, set.RiskScore, set.HazardLevel, set.SizeCategory,
		set.OrbitType, set.InclinationType, set.VelocityCategory, set.DistanceCategory,
		set.DaysToApproach, set.IsHighPriority, set.ThreatLevel, set.RecommendedAction,
		orbital, size, velocity, distance,
		metadata, set.Metadata.ProcessedAt,
	}, nil
}

// jsonOrNil marshals a detail struct for a JSONB column, mapping absent
// sections to SQL NULL.
func jsonOrNil[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal insight detail: %w", err)
	}
	return string(b), nil
}

// Stats summarizes table contents for the operational endpoint.
type Stats struct {
	RawCount        int64      `json:"raw_count"`
	InsightCount    int64      `json:"insight_count"`
	HazardousCount  int64      `json:"hazardous_count"`
	HighRiskCount   int64      `json:"high_risk_count"`
	LastFetchedAt   *time.Time `json:"last_fetched_at,omitempty"`
	LastProcessedAt *time.Time `json:"last_processed_at,omitempty"`
}

// Stats returns row counts and high-water marks for both tables.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats

	row := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM raw_neo_facts),
		        (SELECT COUNT(*) FROM derived_insights),
		        (SELECT COUNT(*) FROM raw_neo_facts WHERE is_potentially_hazardous_asteroid),
		        (SELECT COUNT(*) FROM derived_insights WHERE risk_score > 0.7),
		        (SELECT MAX(fetched_at) FROM raw_neo_facts),
		        (SELECT MAX(processed_at) FROM derived_insights)`)
	if err := row.Scan(&st.RawCount, &st.InsightCount, &st.HazardousCount, &st.HighRiskCount,
		&st.LastFetchedAt, &st.LastProcessedAt); err != nil {
		return Stats{}, &domain.StorageError{Table: rawTable, Err: fmt.Errorf("stats: %w", err)}
	}

	return st, nil
}
