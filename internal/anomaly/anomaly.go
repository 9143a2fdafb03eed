package anomaly

import (
	"errors"
	"fmt"
	"math"

	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/internal/calculate"
	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/models"
)

const (
	DefaultWindow            = 10
	DefaultZThreshold        = 3.0
	DefaultRollingMultiplier = 1.5
)

// Detector flags abnormal flow with a global z-score test and a
// trend-relative rolling test, unioned into one flag
type Detector struct {
	Window            int
	ZThreshold        float64
	RollingMultiplier float64
}

// NewDetector returns a detector with the default window and thresholds
func NewDetector() *Detector {
	return &Detector{
		Window:            DefaultWindow,
		ZThreshold:        DefaultZThreshold,
		RollingMultiplier: DefaultRollingMultiplier,
	}
}

func (d *Detector) validate() error {
	if d.Window < 1 {
		return fmt.Errorf("rolling window must be at least 1, got %d", d.Window)
	}
	if d.ZThreshold <= 0 || math.IsNaN(d.ZThreshold) {
		return fmt.Errorf("z-score threshold must be positive, got %v", d.ZThreshold)
	}
	if d.RollingMultiplier < 0 || math.IsNaN(d.RollingMultiplier) {
		return fmt.Errorf("rolling multiplier must not be negative, got %v", d.RollingMultiplier)
	}
	return nil
}

// ZScores standardizes values against their own population mean and stddev
func ZScores(values []float64) ([]float64, error) {
	var s calculate.Scaler
	if err := s.Fit(values); err != nil {
		var degenerate *models.DegenerateInputError
		if errors.As(err, &degenerate) {
			return nil, &models.DegenerateInputError{Operation: "z-score", Count: degenerate.Count}
		}
		return nil, err
	}
	return s.Transform(values)
}

// Detect computes the anomaly flags of every value. The order of values is
// significant for the rolling test and is never changed.
func (d *Detector) Detect(values []float64) ([]models.AnomalyFlags, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, &models.InsufficientDataError{Points: 0, Required: 1}
	}
	if err := calculate.Validate(values, "flowQuantity_delta"); err != nil {
		return nil, err
	}

	z, err := ZScores(values)
	if err != nil {
		return nil, err
	}
	means, stds := calculate.Rolling(values, d.Window)

	flags := make([]models.AnomalyFlags, len(values))
	for i, x := range values {
		f := &flags[i]
		f.ZScore = z[i]
		f.IsZAnomaly = math.Abs(z[i]) > d.ZThreshold

		f.RollingMean = means[i]
		f.RollingStd = stds[i]
		// only abnormally high flow is flagged
		f.IsRollingAnomaly = x > means[i]+d.RollingMultiplier*stds[i]

		f.IsAnomaly = f.IsZAnomaly || f.IsRollingAnomaly
	}
	return flags, nil
}

// DetectRecords runs Detect over the flow signal and joins flags to records
func (d *Detector) DetectRecords(records []models.Record) (*models.AnomalyReport, error) {
	flags, err := d.Detect(models.FlowValues(records))
	if err != nil {
		return nil, err
	}

	report := &models.AnomalyReport{
		Rows:   make([]models.AnomalyRow, len(records)),
		Window: d.Window,
	}
	for i, r := range records {
		report.Rows[i] = models.AnomalyRow{Record: r, AnomalyFlags: flags[i]}
		if flags[i].IsZAnomaly {
			report.ZAnomalies++
		}
		if flags[i].IsRollingAnomaly {
			report.RollingAnomaly++
		}
		if flags[i].IsAnomaly {
			report.Anomalies++
		}
	}
	return report, nil
}
