package cluster

import (
	"iter"

	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/models"
)

// Elbow yields the (K, inertia) curve for K = 1..maxK. The sequence is lazy:
// each K is only fitted when the consumer asks for it, and ranging over it
// again refits from scratch with the same seed. It stops after the first error.
func Elbow(points []float64, maxK int, opts Options) iter.Seq2[models.ElbowPoint, error] {
	return func(yield func(models.ElbowPoint, error) bool) {
		for k := 1; k <= maxK; k++ {
			o := opts
			o.K = k
			res, err := KMeans(points, o)
			if err != nil {
				yield(models.ElbowPoint{K: k}, err)
				return
			}
			if !yield(models.ElbowPoint{K: k, Inertia: res.Inertia}, nil) {
				return
			}
		}
	}
}

// ElbowCurve collects the whole Elbow sequence
func ElbowCurve(points []float64, maxK int, opts Options) ([]models.ElbowPoint, error) {
	curve := make([]models.ElbowPoint, 0, max(maxK, 0))
	for p, err := range Elbow(points, maxK, opts) {
		if err != nil {
			return nil, err
		}
		curve = append(curve, p)
	}
	return curve, nil
}
