// Package metrics records per-run pipeline figures in a private Prometheus
// registry. A batch run has no scrape endpoint, so the registry is written in
// text format for a node-exporter textfile collector.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/models"
)

const namespace = "waterflow"

// Recorder holds the run metrics. A nil *Recorder ignores every call.
type Recorder struct {
	registry *prometheus.Registry

	RecordsProcessed prometheus.Counter
	RecordsDropped   prometheus.Counter
	Anomalies        *prometheus.GaugeVec
	ClusterSize      *prometheus.GaugeVec
	KMeansIterations prometheus.Gauge
	KMeansInertia    prometheus.Gauge
	StageDuration    *prometheus.GaugeVec
	LastRun          prometheus.Gauge
}

// NewRecorder registers all metrics on a fresh registry
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		RecordsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_processed_total",
			Help:      "Records that went through anomaly detection and clustering",
		}),
		RecordsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dropped_total",
			Help:      "Malformed records removed before analysis",
		}),
		Anomalies: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "anomalies",
			Help:      "Anomalous records in the last run by test",
		}, []string{"test"}),
		ClusterSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cluster_size",
			Help:      "Records per cluster in the last run",
		}, []string{"cluster"}),
		KMeansIterations: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "kmeans_iterations",
			Help:      "Lloyd iterations of the selected k-means restart",
		}),
		KMeansInertia: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "kmeans_inertia",
			Help:      "Inertia of the production k-means fit",
		}),
		StageDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage in the last run",
		}, []string{"stage"}),
		LastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStage records how long a stage took
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.StageDuration.WithLabelValues(stage).Set(d.Seconds())
}

// ObserveResult records the figures of a finished run
func (r *Recorder) ObserveResult(res *models.AnalysisResult) {
	if r == nil || res == nil {
		return
	}
	r.RecordsProcessed.Add(float64(res.Records))
	r.RecordsDropped.Add(float64(len(res.Dropped)))

	if a := res.Anomalies; a != nil {
		r.Anomalies.WithLabelValues("zscore").Set(float64(a.ZAnomalies))
		r.Anomalies.WithLabelValues("rolling").Set(float64(a.RollingAnomaly))
		r.Anomalies.WithLabelValues("combined").Set(float64(a.Anomalies))
	}
	if c := res.Clusters; c != nil {
		r.ClusterSize.Reset()
		for _, m := range res.Summary.ClusterMeans {
			r.ClusterSize.WithLabelValues(strconv.Itoa(m.ClusterID)).Set(float64(m.Size))
		}
		r.KMeansIterations.Set(float64(c.Assignment.Iterations))
		r.KMeansInertia.Set(c.Assignment.Inertia)
	}
	r.LastRun.Set(float64(res.GeneratedAt.Unix()))
}

// WriteTextfile writes the registry atomically in Prometheus text format
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
