package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"

	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/models"
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// StoredRun is a persisted analysis run with its anomaly summary
type StoredRun struct {
	ID               int64
	GeneratedAt      time.Time
	Records          int
	Dropped          int
	Anomalies        int
	ZAnomalies       int
	RollingAnomalies int
	ClusterK         int
	Inertia          float64
	Converged        bool
	Iterations       int
	Centroids        []float64
	AnomalyCounts    []models.AnomalyCount
}

// New creates a new database connection, retrying the first ping with
// exponential backoff while the server comes up
func New(ctx context.Context, params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(backoffStrategy, ctx)); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	wrapped := &DB{db}
	if err := wrapped.CreateTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return wrapped, nil
}

// CreateTables creates the necessary tables if they don't exist
func (db *DB) CreateTables(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS analysis_runs (
			id BIGSERIAL PRIMARY KEY,
			generated_at TIMESTAMPTZ NOT NULL,
			records INTEGER NOT NULL,
			dropped INTEGER NOT NULL,
			anomalies INTEGER NOT NULL,
			z_anomalies INTEGER NOT NULL,
			rolling_anomalies INTEGER NOT NULL,
			cluster_k INTEGER NOT NULL,
			inertia DOUBLE PRECISION NOT NULL,
			converged BOOLEAN NOT NULL,
			iterations INTEGER NOT NULL,
			centroids DOUBLE PRECISION[] NOT NULL
		);
		CREATE TABLE IF NOT EXISTS daily_usage (
			run_id BIGINT NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
			day DATE NOT NULL,
			total DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, day)
		);
		CREATE TABLE IF NOT EXISTS anomaly_summary (
			run_id BIGINT NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
			day DATE NOT NULL,
			anomalies INTEGER NOT NULL,
			PRIMARY KEY (run_id, day)
		);
		CREATE TABLE IF NOT EXISTS cluster_summary (
			run_id BIGINT NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
			cluster INTEGER NOT NULL,
			mean DOUBLE PRECISION NOT NULL,
			size INTEGER NOT NULL,
			PRIMARY KEY (run_id, cluster)
		)
	`)
	if err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

// Write stores result; it lets DB act as a result sink
func (db *DB) Write(ctx context.Context, result *models.AnalysisResult) error {
	_, err := db.SaveRun(ctx, result)
	return err
}

// SaveRun stores a run and its summary tables in one transaction
func (db *DB) SaveRun(ctx context.Context, result *models.AnalysisResult) (int64, error) {
	if result.Anomalies == nil || result.Clusters == nil {
		return 0, errors.New("result is missing anomaly or cluster report")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	a := result.Anomalies
	c := result.Clusters.Assignment

	var runID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO analysis_runs (
			generated_at, records, dropped, anomalies, z_anomalies, rolling_anomalies,
			cluster_k, inertia, converged, iterations, centroids
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`,
		result.GeneratedAt, result.Records, len(result.Dropped), a.Anomalies, a.ZAnomalies, a.RollingAnomaly,
		c.K(), c.Inertia, c.Converged, c.Iterations, pq.Array(c.Centroids),
	).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}

	for _, d := range result.Summary.DailyUsage {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO daily_usage (run_id, day, total) VALUES ($1, $2, $3)`,
			runID, d.Day, d.Total); err != nil {
			return 0, fmt.Errorf("inserting daily usage: %w", err)
		}
	}
	for _, n := range result.Summary.AnomalyCounts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO anomaly_summary (run_id, day, anomalies) VALUES ($1, $2, $3)`,
			runID, n.Day, n.Count); err != nil {
			return 0, fmt.Errorf("inserting anomaly summary: %w", err)
		}
	}
	for _, m := range result.Summary.ClusterMeans {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cluster_summary (run_id, cluster, mean, size) VALUES ($1, $2, $3, $4)`,
			runID, m.ClusterID, m.Mean, m.Size); err != nil {
			return 0, fmt.Errorf("inserting cluster summary: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// LatestRun retrieves the most recent run, or nil when none is stored
func (db *DB) LatestRun(ctx context.Context) (*StoredRun, error) {
	var run StoredRun
	var centroids pq.Float64Array

	err := db.QueryRowContext(ctx, `
		SELECT
			id, generated_at, records, dropped, anomalies, z_anomalies, rolling_anomalies,
			cluster_k, inertia, converged, iterations, centroids
		FROM analysis_runs
		ORDER BY generated_at DESC, id DESC
		LIMIT 1
	`).Scan(
		&run.ID, &run.GeneratedAt, &run.Records, &run.Dropped, &run.Anomalies, &run.ZAnomalies,
		&run.RollingAnomalies, &run.ClusterK, &run.Inertia, &run.Converged, &run.Iterations, &centroids,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No run stored yet
		}
		return nil, err
	}
	run.Centroids = []float64(centroids)

	rows, err := db.QueryContext(ctx, `
		SELECT day, anomalies
		FROM anomaly_summary
		WHERE run_id = $1
		ORDER BY day
	`, run.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var n models.AnomalyCount
		if err := rows.Scan(&n.Day, &n.Count); err != nil {
			return nil, err
		}
		n.Day = n.Day.UTC()
		run.AnomalyCounts = append(run.AnomalyCounts, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &run, nil
}
