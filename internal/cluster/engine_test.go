package cluster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/models"
)

func recordsOf(values ...float64) []models.Record {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Record, len(values))
	for i, v := range values {
		out[i] = models.Record{Timestamp: start.Add(time.Duration(i) * 15 * time.Minute), FlowDelta: v}
	}
	return out
}

func TestEngineClustersThreeGroups(t *testing.T) {
	records := recordsOf(0, 0.5, 1, 50, 51, 52, 100, 101, 99)
	report, err := NewEngine().Cluster(records)
	require.NoError(t, err)

	assert.False(t, report.Degenerate)
	require.Len(t, report.Rows, len(records))
	assert.Len(t, report.Elbow, DefaultElbowMaxK)
	assert.Equal(t, 3, report.Assignment.K())

	for g := 0; g < 3; g++ {
		base := report.Rows[3*g].ClusterID
		assert.Equal(t, base, report.Rows[3*g+1].ClusterID)
		assert.Equal(t, base, report.Rows[3*g+2].ClusterID)
	}
	assert.NotEqual(t, report.Rows[0].ClusterID, report.Rows[3].ClusterID)
	assert.NotEqual(t, report.Rows[3].ClusterID, report.Rows[6].ClusterID)
	assert.NotEqual(t, report.Rows[0].ClusterID, report.Rows[6].ClusterID)

	var sum float64
	for i, row := range report.Rows {
		assert.Equal(t, records[i], row.Record)
		sum += row.FlowScaled
	}
	assert.InDelta(t, 0.0, sum, 1e-9)
}

func TestEngineDegenerateSignal(t *testing.T) {
	report, err := NewEngine().Cluster(recordsOf(7, 7, 7, 7))
	require.NoError(t, err)

	assert.True(t, report.Degenerate)
	assert.Equal(t, []int{0, 0, 0, 0}, report.Assignment.Labels)
	assert.Equal(t, []float64{0}, report.Assignment.Centroids)
	assert.Equal(t, []models.ElbowPoint{{K: 1}}, report.Elbow)
	for _, row := range report.Rows {
		assert.Equal(t, 0, row.ClusterID)
	}
}

func TestEngineLimitsElbowToPointCount(t *testing.T) {
	report, err := NewEngine().Cluster(recordsOf(1, 2, 30, 31))
	require.NoError(t, err)
	assert.Len(t, report.Elbow, 4)
}

func TestEngineErrors(t *testing.T) {
	_, err := NewEngine().Cluster(recordsOf(1, 2))
	var insufficient *models.InsufficientDataError
	assert.ErrorAs(t, err, &insufficient)

	e := NewEngine()
	e.Options.K = -1
	_, err = e.Cluster(recordsOf(1, 2, 3))
	assert.Error(t, err)
}
