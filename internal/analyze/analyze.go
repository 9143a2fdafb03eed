package analyze

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/internal/anomaly"
	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/internal/cluster"
	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/internal/metrics"
	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/internal/summary"
	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/models"
)

// Options wires the analyzer's stages
type Options struct {
	Detector      *anomaly.Detector
	Engine        *cluster.Engine
	DropMalformed bool
	Metrics       *metrics.Recorder
}

// Analyzer runs anomaly detection and clustering over one record sequence
// and reduces both into the summary tables
type Analyzer struct {
	detector      *anomaly.Detector
	engine        *cluster.Engine
	dropMalformed bool
	metrics       *metrics.Recorder
	logger        zerolog.Logger
	now           func() time.Time
}

// New creates an analyzer; nil stages fall back to their defaults
func New(opts Options) *Analyzer {
	if opts.Detector == nil {
		opts.Detector = anomaly.NewDetector()
	}
	if opts.Engine == nil {
		opts.Engine = cluster.NewEngine()
	}
	return &Analyzer{
		detector:      opts.Detector,
		engine:        opts.Engine,
		dropMalformed: opts.DropMalformed,
		metrics:       opts.Metrics,
		logger:        log.With().Str("component", "analyzer").Logger(),
		now:           time.Now,
	}
}

// Run analyzes records. Malformed records abort the run with their joined
// MalformedRecordErrors unless DropMalformed is set, in which case they are
// removed and their positions reported in the result. A flow signal with
// zero variance fails the z-score test and aborts the whole run with a
// DegenerateInputError, even though clustering alone could fall back.
func (a *Analyzer) Run(ctx context.Context, records []models.Record) (*models.AnalysisResult, error) {
	start := a.now()

	kept, dropped, err := a.screen(records)
	if err != nil {
		return nil, err
	}

	var (
		anomalies *models.AnomalyReport
		clusters  *models.ClusterReport
	)

	// both passes only read kept
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		t := a.now()
		report, err := a.detector.DetectRecords(kept)
		if err != nil {
			return fmt.Errorf("anomaly detection: %w", err)
		}
		anomalies = report
		a.metrics.ObserveStage("anomaly_detection", a.now().Sub(t))
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		t := a.now()
		report, err := a.engine.Cluster(kept)
		if err != nil {
			return fmt.Errorf("clustering: %w", err)
		}
		clusters = report
		a.metrics.ObserveStage("clustering", a.now().Sub(t))
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if clusters.Degenerate {
		a.logger.Warn().Int("records", len(kept)).Msg("Flow has zero variance, all records placed in one cluster")
	}
	for _, e := range cluster.EmptyClusters(&clusters.Assignment) {
		a.logger.Warn().Err(e).Msg("Cluster left empty")
	}

	t := a.now()
	result := &models.AnalysisResult{
		GeneratedAt: a.now(),
		Records:     len(kept),
		Dropped:     dropped,
		Anomalies:   anomalies,
		Clusters:    clusters,
		Summary:     summary.Summarize(kept, anomalies, clusters),
	}
	a.metrics.ObserveStage("summary", a.now().Sub(t))
	a.metrics.ObserveStage("total", a.now().Sub(start))
	a.metrics.ObserveResult(result)

	a.logger.Info().
		Int("records", result.Records).
		Int("dropped", len(dropped)).
		Int("anomalies", anomalies.Anomalies).
		Int("z_anomalies", anomalies.ZAnomalies).
		Int("rolling_anomalies", anomalies.RollingAnomaly).
		Int("clusters", clusters.Assignment.K()).
		Float64("inertia", clusters.Assignment.Inertia).
		Bool("converged", clusters.Assignment.Converged).
		Int("iterations", clusters.Assignment.Iterations).
		Msg("Analysis completed")

	return result, nil
}

// screen validates every record and either fails or filters them
func (a *Analyzer) screen(records []models.Record) ([]models.Record, []int, error) {
	err := ValidateRecords(records)
	if err == nil {
		return records, nil, nil
	}
	if !a.dropMalformed {
		return nil, nil, err
	}

	bad := models.MalformedIndices(err)
	kept := make([]models.Record, 0, len(records)-len(bad))
	for i, r := range records {
		if _, found := slices.BinarySearch(bad, i); !found {
			kept = append(kept, r)
		}
	}
	a.logger.Warn().Int("dropped", len(bad)).Ints("positions", bad).Msg("Dropped malformed records")
	return kept, bad, nil
}

// ValidateRecords reports every record with a missing timestamp, a timestamp
// earlier than the previous valid record, or a non-finite flow
func ValidateRecords(records []models.Record) error {
	var errs []error
	var last time.Time
	for i, r := range records {
		switch {
		case r.Timestamp.IsZero():
			errs = append(errs, &models.MalformedRecordError{Index: i, Field: "utc_time", Reason: "missing timestamp"})
		case r.Timestamp.Before(last):
			errs = append(errs, &models.MalformedRecordError{Index: i, Field: "utc_time", Reason: "timestamp precedes previous record"})
		case math.IsNaN(r.FlowDelta) || math.IsInf(r.FlowDelta, 0):
			errs = append(errs, &models.MalformedRecordError{Index: i, Field: "flowQuantity_delta", Reason: "value is not finite"})
		default:
			last = r.Timestamp
		}
	}
	return errors.Join(errs...)
}
