// Package summary reduces flagged and clustered records into report tables.
// Every table is sorted by its key, keys are unique and groups without
// members are never emitted.
package summary

import (
	"cmp"
	"slices"
	"time"

	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/models"
)

type group[K cmp.Ordered] struct {
	key   K
	sum   float64
	count int
}

func (g group[K]) mean() float64 {
	return g.sum / float64(g.count)
}

// groupBy buckets positions 0..n-1 by key, skipping positions for which key
// reports false, and accumulates value per bucket
func groupBy[K cmp.Ordered](n int, key func(int) (K, bool), value func(int) float64) []group[K] {
	index := make(map[K]int)
	var groups []group[K]
	for i := 0; i < n; i++ {
		k, ok := key(i)
		if !ok {
			continue
		}
		pos, seen := index[k]
		if !seen {
			pos = len(groups)
			index[k] = pos
			groups = append(groups, group[K]{key: k})
		}
		groups[pos].sum += value(i)
		groups[pos].count++
	}
	slices.SortFunc(groups, func(a, b group[K]) int {
		return cmp.Compare(a.key, b.key)
	})
	return groups
}

// Day truncates t to the start of its UTC calendar day
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func dayKey(t time.Time) int64 {
	return Day(t).Unix()
}

func fromDayKey(k int64) time.Time {
	return time.Unix(k, 0).UTC()
}

// DailyTotals sums flow per UTC day
func DailyTotals(records []models.Record) []models.DailyTotal {
	groups := groupBy(len(records),
		func(i int) (int64, bool) { return dayKey(records[i].Timestamp), true },
		func(i int) float64 { return records[i].FlowDelta },
	)
	out := make([]models.DailyTotal, len(groups))
	for i, g := range groups {
		out[i] = models.DailyTotal{Day: fromDayKey(g.key), Total: g.sum}
	}
	return out
}

// AssetTotals sums flow per asset type. Records without an asset type are left out.
func AssetTotals(records []models.Record) []models.AssetTotal {
	groups := groupBy(len(records),
		func(i int) (string, bool) { return records[i].AssetType, records[i].AssetType != "" },
		func(i int) float64 { return records[i].FlowDelta },
	)
	out := make([]models.AssetTotal, len(groups))
	for i, g := range groups {
		out[i] = models.AssetTotal{AssetType: g.key, Total: g.sum}
	}
	return out
}

// AnomalyCounts counts anomalous rows per UTC day
func AnomalyCounts(rows []models.AnomalyRow) []models.AnomalyCount {
	groups := groupBy(len(rows),
		func(i int) (int64, bool) { return dayKey(rows[i].Timestamp), rows[i].IsAnomaly },
		func(int) float64 { return 0 },
	)
	out := make([]models.AnomalyCount, len(groups))
	for i, g := range groups {
		out[i] = models.AnomalyCount{Day: fromDayKey(g.key), Count: g.count}
	}
	return out
}

// ClusterMeans averages flow per cluster id
func ClusterMeans(rows []models.ClusterRow) []models.ClusterMean {
	groups := groupBy(len(rows),
		func(i int) (int, bool) { return rows[i].ClusterID, true },
		func(i int) float64 { return rows[i].FlowDelta },
	)
	out := make([]models.ClusterMean, len(groups))
	for i, g := range groups {
		out[i] = models.ClusterMean{ClusterID: g.key, Mean: g.mean(), Size: g.count}
	}
	return out
}

// Summarize builds all four tables. Either report may be nil, in which case
// its table stays empty.
func Summarize(records []models.Record, anomalies *models.AnomalyReport, clusters *models.ClusterReport) models.Summary {
	s := models.Summary{
		DailyUsage: DailyTotals(records),
		AssetUsage: AssetTotals(records),
	}
	if anomalies != nil {
		s.AnomalyCounts = AnomalyCounts(anomalies.Rows)
	}
	if clusters != nil {
		s.ClusterMeans = ClusterMeans(clusters.Rows)
	}
	return s
}
