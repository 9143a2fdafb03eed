package cluster

import (
	"errors"

	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/internal/calculate"
	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/models"
)

// Engine standardizes the flow signal, surfaces the elbow curve and runs the
// production k-means with a fixed K
type Engine struct {
	Options   Options
	ElbowMaxK int
}

// NewEngine creates an engine with the default options
func NewEngine() *Engine {
	return &Engine{
		Options:   DefaultOptions(),
		ElbowMaxK: DefaultElbowMaxK,
	}
}

// Cluster assigns every record to a cluster of its scaled flow. A signal with
// zero variance carries no grouping information; it is reported as a single
// cluster with Degenerate set instead of failing.
func (e *Engine) Cluster(records []models.Record) (*models.ClusterReport, error) {
	values := models.FlowValues(records)
	if err := e.Options.validate(); err != nil {
		return nil, err
	}
	if len(values) < e.Options.K {
		return nil, &models.InsufficientDataError{Points: len(values), Required: e.Options.K}
	}

	var scaler calculate.Scaler
	scaled, err := scaler.FitTransform(values)
	if err != nil {
		var degenerate *models.DegenerateInputError
		if errors.As(err, &degenerate) {
			return singleCluster(records), nil
		}
		return nil, err
	}

	// K beyond the number of points cannot be fitted
	curve, err := ElbowCurve(scaled, min(e.ElbowMaxK, len(scaled)), e.Options)
	if err != nil {
		return nil, err
	}

	assignment, err := KMeans(scaled, e.Options)
	if err != nil {
		return nil, err
	}

	report := &models.ClusterReport{
		Rows:       make([]models.ClusterRow, len(records)),
		Assignment: *assignment,
		Elbow:      curve,
	}
	for i, r := range records {
		report.Rows[i] = models.ClusterRow{
			Record:     r,
			FlowScaled: scaled[i],
			ClusterID:  assignment.Labels[i],
		}
	}
	return report, nil
}

func singleCluster(records []models.Record) *models.ClusterReport {
	report := &models.ClusterReport{
		Rows: make([]models.ClusterRow, len(records)),
		Assignment: models.ClusterAssignment{
			Labels:    make([]int, len(records)),
			Centroids: []float64{0},
			Converged: true,
		},
		Elbow:      []models.ElbowPoint{{K: 1, Inertia: 0}},
		Degenerate: true,
	}
	for i, r := range records {
		report.Rows[i] = models.ClusterRow{Record: r}
	}
	return report
}

// EmptyClusters returns an EmptyClusterError for every centroid of a that
// ended up without members, which happens when the signal has fewer distinct
// values than K
func EmptyClusters(a *models.ClusterAssignment) []error {
	sizes := make([]int, a.K())
	for _, l := range a.Labels {
		sizes[l]++
	}
	var errs []error
	for c, n := range sizes {
		if n == 0 {
			errs = append(errs, &models.EmptyClusterError{Cluster: c, Iteration: a.Iterations})
		}
	}
	return errs
}
