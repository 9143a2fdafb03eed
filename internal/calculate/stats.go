package calculate

import (
	"errors"
	"math"

	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/models"
)

// Validate reports every NaN or infinite value as a MalformedRecordError.
// All offending positions are returned together via errors.Join.
func Validate(values []float64, field string) error {
	var errs []error
	for i, v := range values {
		switch {
		case math.IsNaN(v):
			errs = append(errs, &models.MalformedRecordError{Index: i, Field: field, Reason: "value is NaN"})
		case math.IsInf(v, 0):
			errs = append(errs, &models.MalformedRecordError{Index: i, Field: field, Reason: "value is infinite"})
		}
	}
	return errors.Join(errs...)
}

// MeanStdDev returns the arithmetic mean and the population standard deviation.
// Returns (0, 0) for an empty slice.
func MeanStdDev(values []float64) (mean, stddev float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return mean, math.Sqrt(sumSq / float64(n))
}

// allEqual reports whether every value equals the first one
func allEqual(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
