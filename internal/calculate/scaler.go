package calculate

import (
	"errors"

	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/models"
)

// ErrNotFitted is returned when Transform is called before Fit
var ErrNotFitted = errors.New("scaler has not been fitted")

// Scaler standardizes a signal to zero mean and unit variance.
// Mean and StdDev are population statistics of the fitting sequence.
type Scaler struct {
	Mean   float64
	StdDev float64
	fitted bool
}

// Fit computes mean and standard deviation once over values
func (s *Scaler) Fit(values []float64) error {
	if len(values) == 0 {
		return &models.InsufficientDataError{Points: 0, Required: 1}
	}
	if err := Validate(values, "flowQuantity_delta"); err != nil {
		return err
	}

	mean, std := MeanStdDev(values)
	if std == 0 || allEqual(values) {
		return &models.DegenerateInputError{Operation: "scaler fit", Count: len(values)}
	}

	s.Mean, s.StdDev, s.fitted = mean, std, true
	return nil
}

// Transform maps each value to (x - mean) / stddev into a new slice
func (s *Scaler) Transform(values []float64) ([]float64, error) {
	if !s.fitted {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - s.Mean) / s.StdDev
	}
	return out, nil
}

// InverseTransform maps scaled values back with x*stddev + mean
func (s *Scaler) InverseTransform(scaled []float64) ([]float64, error) {
	if !s.fitted {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(scaled))
	for i, v := range scaled {
		out[i] = v*s.StdDev + s.Mean
	}
	return out, nil
}

// FitTransform fits the scaler and transforms the same values
func (s *Scaler) FitTransform(values []float64) ([]float64, error) {
	if err := s.Fit(values); err != nil {
		return nil, err
	}
	return s.Transform(values)
}
