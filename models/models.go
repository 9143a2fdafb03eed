package models

import (
	"time"
)

// Record is a single water-meter observation
type Record struct {
	Timestamp time.Time `json:"utc_time"`
	FlowDelta float64   `json:"flowQuantity_delta"`
	AssetType string    `json:"asset_type,omitempty"`
}

// FlowValues extracts the flow signal in record order
func FlowValues(records []Record) []float64 {
	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = r.FlowDelta
	}
	return values
}

// AnomalyFlags holds the per-record output of both anomaly tests
type AnomalyFlags struct {
	ZScore           float64 `json:"z_score"`
	IsZAnomaly       bool    `json:"z_anomaly"`
	RollingMean      float64 `json:"rolling_mean"`
	RollingStd       float64 `json:"rolling_std"`
	IsRollingAnomaly bool    `json:"rolling_anomaly"`
	IsAnomaly        bool    `json:"anomaly"`
}

// AnomalyRow is one record joined with its flags
type AnomalyRow struct {
	Record
	AnomalyFlags
}

// AnomalyReport is the result of one detection pass
type AnomalyReport struct {
	Rows           []AnomalyRow `json:"rows"`
	Window         int          `json:"window"`
	ZAnomalies     int          `json:"z_anomalies"`
	RollingAnomaly int          `json:"rolling_anomalies"`
	Anomalies      int          `json:"anomalies"`
}

// Flagged returns only the rows marked as anomalous
func (r *AnomalyReport) Flagged() []AnomalyRow {
	var out []AnomalyRow
	for _, row := range r.Rows {
		if row.IsAnomaly {
			out = append(out, row)
		}
	}
	return out
}

// ClusterAssignment is the outcome of a k-means fit
type ClusterAssignment struct {
	Labels     []int     `json:"labels"`
	Centroids  []float64 `json:"centroids"`
	Inertia    float64   `json:"inertia"`
	Iterations int       `json:"iterations"`
	Converged  bool      `json:"converged"`
	Reseeds    int       `json:"reseeds"` // empty clusters recovered by reseeding
}

// K returns the number of clusters
func (a *ClusterAssignment) K() int {
	return len(a.Centroids)
}

// ElbowPoint is one entry of the inertia curve
type ElbowPoint struct {
	K       int     `json:"k"`
	Inertia float64 `json:"inertia"`
}

// ClusterRow is one record joined with its cluster id
type ClusterRow struct {
	Record
	FlowScaled float64 `json:"flowQuantity_scaled"`
	ClusterID  int     `json:"cluster"`
}

// ClusterReport is the result of the clustering pass
type ClusterReport struct {
	Rows       []ClusterRow      `json:"rows"`
	Assignment ClusterAssignment `json:"assignment"`
	Elbow      []ElbowPoint      `json:"elbow"`
	Degenerate bool              `json:"degenerate"` // zero-variance signal, single-cluster fallback
}

// DailyTotal is the summed flow of one UTC calendar day
type DailyTotal struct {
	Day   time.Time `json:"day"`
	Total float64   `json:"total"`
}

// AssetTotal is the summed flow of one asset type
type AssetTotal struct {
	AssetType string  `json:"asset_type"`
	Total     float64 `json:"total"`
}

// AnomalyCount is the number of anomalous records on one UTC day
type AnomalyCount struct {
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}

// ClusterMean is the mean flow of one cluster
type ClusterMean struct {
	ClusterID int     `json:"cluster"`
	Mean      float64 `json:"mean"`
	Size      int     `json:"size"`
}

// Summary holds the aggregate tables
type Summary struct {
	DailyUsage    []DailyTotal   `json:"daily_usage"`
	AssetUsage    []AssetTotal   `json:"asset_usage"`
	AnomalyCounts []AnomalyCount `json:"anomaly_summary"`
	ClusterMeans  []ClusterMean  `json:"cluster_summary"`
}

// AnalysisResult is everything one pipeline run produces
type AnalysisResult struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Records     int            `json:"records"`
	Dropped     []int          `json:"dropped,omitempty"` // input positions removed as malformed
	Anomalies   *AnomalyReport `json:"anomalies"`
	Clusters    *ClusterReport `json:"clusters"`
	Summary     Summary        `json:"summary"`
}
