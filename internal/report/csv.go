// Package report writes the result tables of a run as CSV files.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/models"
)

// File names written by CSVWriter
const (
	FileAnomalies      = "anomalies_detected.csv"
	FileClustered      = "clustered_data.csv"
	FileElbow          = "elbow_curve.csv"
	FileDailyUsage     = "daily_usage_report.csv"
	FileAssetUsage     = "asset_usage_report.csv"
	FileAnomalySummary = "anomaly_summary.csv"
	FileClusterSummary = "cluster_summary.csv"
)

const dayLayout = "2006-01-02"

// CSVWriter writes every table of a result into Dir
type CSVWriter struct {
	Dir    string
	logger zerolog.Logger
}

// NewCSVWriter creates a writer for dir. The directory is created on Write.
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{
		Dir:    dir,
		logger: log.With().Str("component", "csv_report").Logger(),
	}
}

type table struct {
	name   string
	header []string
	rows   [][]string
}

// Write renders all tables of result
func (w *CSVWriter) Write(ctx context.Context, result *models.AnalysisResult) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	for _, t := range tables(result) {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(w.Dir, t.name)
		if err := writeTable(path, t); err != nil {
			return err
		}
		w.logger.Debug().Str("path", path).Int("rows", len(t.rows)).Msg("Table written")
	}

	w.logger.Info().Str("dir", w.Dir).Msg("Reports written")
	return nil
}

// tables lays out the result as named tables
func tables(result *models.AnalysisResult) []table {
	var out []table

	if a := result.Anomalies; a != nil {
		t := table{
			name: FileAnomalies,
			header: []string{"utc_time", "flowQuantity_delta", "asset_type", "z_score", "z_anomaly",
				"rolling_mean", "rolling_std", "rolling_anomaly", "anomaly"},
		}
		for _, r := range a.Flagged() {
			t.rows = append(t.rows, []string{
				r.Timestamp.Format(time.RFC3339), formatFloat(r.FlowDelta), r.AssetType,
				formatFloat(r.ZScore), strconv.FormatBool(r.IsZAnomaly),
				formatFloat(r.RollingMean), formatFloat(r.RollingStd),
				strconv.FormatBool(r.IsRollingAnomaly), strconv.FormatBool(r.IsAnomaly),
			})
		}
		out = append(out, t)
	}

	if c := result.Clusters; c != nil {
		t := table{
			name:   FileClustered,
			header: []string{"utc_time", "flowQuantity_delta", "asset_type", "flowQuantity_scaled", "cluster"},
		}
		for _, r := range c.Rows {
			t.rows = append(t.rows, []string{
				r.Timestamp.Format(time.RFC3339), formatFloat(r.FlowDelta), r.AssetType,
				formatFloat(r.FlowScaled), strconv.Itoa(r.ClusterID),
			})
		}
		out = append(out, t)

		e := table{name: FileElbow, header: []string{"k", "inertia"}}
		for _, p := range c.Elbow {
			e.rows = append(e.rows, []string{strconv.Itoa(p.K), formatFloat(p.Inertia)})
		}
		out = append(out, e)
	}

	s := result.Summary

	daily := table{name: FileDailyUsage, header: []string{"day", "flowQuantity_delta"}}
	for _, d := range s.DailyUsage {
		daily.rows = append(daily.rows, []string{d.Day.Format(dayLayout), formatFloat(d.Total)})
	}

	assets := table{name: FileAssetUsage, header: []string{"asset_type", "flowQuantity_delta"}}
	for _, a := range s.AssetUsage {
		assets.rows = append(assets.rows, []string{a.AssetType, formatFloat(a.Total)})
	}

	anomalies := table{name: FileAnomalySummary, header: []string{"day", "anomalies"}}
	for _, a := range s.AnomalyCounts {
		anomalies.rows = append(anomalies.rows, []string{a.Day.Format(dayLayout), strconv.Itoa(a.Count)})
	}

	clusters := table{name: FileClusterSummary, header: []string{"cluster", "flowQuantity_delta", "size"}}
	for _, c := range s.ClusterMeans {
		clusters.rows = append(clusters.rows, []string{strconv.Itoa(c.ClusterID), formatFloat(c.Mean), strconv.Itoa(c.Size)})
	}

	return append(out, daily, assets, anomalies, clusters)
}

func writeTable(path string, t table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	cw := csv.NewWriter(f)
	if err := cw.Write(t.header); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := cw.WriteAll(t.rows); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
