package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/models"
)

func sampleResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		GeneratedAt: time.Unix(1717243200, 0),
		Records:     12,
		Dropped:     []int{3, 7},
		Anomalies:   &models.AnomalyReport{ZAnomalies: 1, RollingAnomaly: 2, Anomalies: 3},
		Clusters: &models.ClusterReport{
			Assignment: models.ClusterAssignment{Iterations: 4, Inertia: 1.25, Centroids: []float64{-1, 1}},
		},
		Summary: models.Summary{
			ClusterMeans: []models.ClusterMean{{ClusterID: 0, Size: 5}, {ClusterID: 1, Size: 7}},
		},
	}
}

func TestObserveResult(t *testing.T) {
	r := NewRecorder()
	r.ObserveResult(sampleResult())

	assert.Equal(t, 12.0, testutil.ToFloat64(r.RecordsProcessed))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.RecordsDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Anomalies.WithLabelValues("zscore")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Anomalies.WithLabelValues("rolling")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.Anomalies.WithLabelValues("combined")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.ClusterSize.WithLabelValues("0")))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.ClusterSize.WithLabelValues("1")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.KMeansIterations))
	assert.Equal(t, 1.25, testutil.ToFloat64(r.KMeansInertia))
	assert.Equal(t, 1717243200.0, testutil.ToFloat64(r.LastRun))

	// counters accumulate across runs
	r.ObserveResult(sampleResult())
	assert.Equal(t, 24.0, testutil.ToFloat64(r.RecordsProcessed))
}

func TestObserveStage(t *testing.T) {
	r := NewRecorder()
	r.ObserveStage("clustering", 1500*time.Millisecond)
	assert.Equal(t, 1.5, testutil.ToFloat64(r.StageDuration.WithLabelValues("clustering")))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveStage("total", time.Second)
		r.ObserveResult(sampleResult())
	})
	assert.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "never.prom")))
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveResult(sampleResult())

	path := filepath.Join(t.TempDir(), "waterflow.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "waterflow_records_processed_total 12")
	assert.Contains(t, string(data), `waterflow_anomalies{test="combined"} 3`)
}
