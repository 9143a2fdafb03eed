package summary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/models"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleRecords() []models.Record {
	return []models.Record{
		{Timestamp: at("2024-05-01T00:00:00Z"), FlowDelta: 1.5, AssetType: "meter"},
		{Timestamp: at("2024-05-01T23:59:59Z"), FlowDelta: 2.5, AssetType: "pump"},
		// 01:30 in UTC+2 is still May 1st in UTC
		{Timestamp: at("2024-05-02T01:30:00+02:00"), FlowDelta: 4, AssetType: "meter"},
		{Timestamp: at("2024-05-02T00:00:00Z"), FlowDelta: 3},
		{Timestamp: at("2024-05-04T12:00:00Z"), FlowDelta: -1, AssetType: "pump"},
	}
}

func TestDay(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"midnight", at("2024-05-01T00:00:00Z"), at("2024-05-01T00:00:00Z")},
		{"last second", at("2024-05-01T23:59:59Z"), at("2024-05-01T00:00:00Z")},
		{"offset before utc midnight", at("2024-05-02T01:30:00+02:00"), at("2024-05-01T00:00:00Z")},
		{"negative offset", at("2024-05-01T22:00:00-05:00"), at("2024-05-02T00:00:00Z")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Day(tt.in)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestDailyTotals(t *testing.T) {
	records := sampleRecords()
	totals := DailyTotals(records)

	require.Len(t, totals, 3)
	assert.Equal(t, at("2024-05-01T00:00:00Z"), totals[0].Day)
	assert.InDelta(t, 8.0, totals[0].Total, 1e-12)
	assert.Equal(t, at("2024-05-02T00:00:00Z"), totals[1].Day)
	assert.InDelta(t, 3.0, totals[1].Total, 1e-12)
	assert.Equal(t, at("2024-05-04T00:00:00Z"), totals[2].Day)
	assert.InDelta(t, -1.0, totals[2].Total, 1e-12)

	var global, parts float64
	for _, r := range records {
		global += r.FlowDelta
	}
	for i, d := range totals {
		parts += d.Total
		if i > 0 {
			assert.True(t, totals[i-1].Day.Before(d.Day), "days must be strictly increasing")
		}
	}
	assert.InDelta(t, global, parts, 1e-9)
}

func TestAssetTotalsOmitsMissingType(t *testing.T) {
	totals := AssetTotals(sampleRecords())
	assert.Equal(t, []models.AssetTotal{
		{AssetType: "meter", Total: 5.5},
		{AssetType: "pump", Total: 1.5},
	}, totals)

	assert.Empty(t, AssetTotals([]models.Record{{Timestamp: at("2024-05-01T00:00:00Z"), FlowDelta: 2}}))
}

func TestAnomalyCounts(t *testing.T) {
	records := sampleRecords()
	flagged := []bool{true, true, false, false, true}
	rows := make([]models.AnomalyRow, len(records))
	for i, r := range records {
		rows[i] = models.AnomalyRow{Record: r, AnomalyFlags: models.AnomalyFlags{IsAnomaly: flagged[i]}}
	}

	counts := AnomalyCounts(rows)
	// May 2nd has no anomalies and must not appear
	assert.Equal(t, []models.AnomalyCount{
		{Day: at("2024-05-01T00:00:00Z"), Count: 2},
		{Day: at("2024-05-04T00:00:00Z"), Count: 1},
	}, counts)

	assert.Empty(t, AnomalyCounts(rows[2:4]))
}

func TestClusterMeans(t *testing.T) {
	records := sampleRecords()
	labels := []int{2, 0, 2, 0, 2}
	rows := make([]models.ClusterRow, len(records))
	for i, r := range records {
		rows[i] = models.ClusterRow{Record: r, ClusterID: labels[i]}
	}

	means := ClusterMeans(rows)
	require.Len(t, means, 2)
	assert.Equal(t, 0, means[0].ClusterID)
	assert.InDelta(t, 2.75, means[0].Mean, 1e-12)
	assert.Equal(t, 2, means[0].Size)
	assert.Equal(t, 2, means[1].ClusterID)
	assert.InDelta(t, 1.5, means[1].Mean, 1e-12)
	assert.Equal(t, 3, means[1].Size)

	size := 0
	for _, m := range means {
		size += m.Size
	}
	assert.Equal(t, len(rows), size)
}

func TestSummarizeWithoutReports(t *testing.T) {
	s := Summarize(sampleRecords(), nil, nil)
	assert.Len(t, s.DailyUsage, 3)
	assert.Len(t, s.AssetUsage, 2)
	assert.Empty(t, s.AnomalyCounts)
	assert.Empty(t, s.ClusterMeans)

	empty := Summarize(nil, nil, nil)
	assert.Empty(t, empty.DailyUsage)
	assert.Empty(t, empty.AssetUsage)
}
