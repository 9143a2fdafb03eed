// Package cluster groups a one-dimensional signal with k-means and exposes
// the elbow curve used to pick the number of clusters.
package cluster

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/internal/calculate"
	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/models"
)

const (
	DefaultK         = 3
	DefaultSeed      = 42
	DefaultNInit     = 10
	DefaultMaxIter   = 300
	DefaultTol       = 1e-4
	DefaultElbowMaxK = 5
)

// Options controls a k-means fit
type Options struct {
	K       int
	Seed    int64
	NInit   int     // independent restarts, best inertia wins
	MaxIter int     // Lloyd iterations per restart
	Tol     float64 // total squared centroid shift treated as converged
}

// DefaultOptions returns K=3, seed 42, 10 restarts, 300 iterations
func DefaultOptions() Options {
	return Options{
		K:       DefaultK,
		Seed:    DefaultSeed,
		NInit:   DefaultNInit,
		MaxIter: DefaultMaxIter,
		Tol:     DefaultTol,
	}
}

func (o Options) validate() error {
	if o.K < 1 {
		return fmt.Errorf("k must be at least 1, got %d", o.K)
	}
	if o.NInit < 1 {
		return fmt.Errorf("n_init must be at least 1, got %d", o.NInit)
	}
	if o.MaxIter < 1 {
		return fmt.Errorf("max_iter must be at least 1, got %d", o.MaxIter)
	}
	if o.Tol < 0 || math.IsNaN(o.Tol) {
		return fmt.Errorf("tolerance must not be negative, got %v", o.Tol)
	}
	return nil
}

// KMeans partitions points into opts.K groups. Restarts run concurrently and
// the lowest-inertia restart is returned; on equal inertia the earliest
// restart wins, so the result only depends on points and opts.
func KMeans(points []float64, opts Options) (*models.ClusterAssignment, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if len(points) < opts.K {
		return nil, &models.InsufficientDataError{Points: len(points), Required: opts.K}
	}
	if err := calculate.Validate(points, "flowQuantity_scaled"); err != nil {
		return nil, err
	}

	// seeds are drawn up front so restart i is the same whatever NInit is
	master := rand.New(rand.NewSource(opts.Seed))
	seeds := make([]int64, opts.NInit)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	results := make([]*models.ClusterAssignment, opts.NInit)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range seeds {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seeds[i]))
			results[i] = lloyd(points, initPlusPlus(points, opts.K, rng), opts.MaxIter, opts.Tol)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.Inertia < best.Inertia {
			best = r
		}
	}
	return best, nil
}

// initPlusPlus picks k starting centroids: the first uniformly, each next one
// with probability proportional to its squared distance from the closest
// centroid chosen so far.
func initPlusPlus(points []float64, k int, rng *rand.Rand) []float64 {
	centroids := make([]float64, 0, k)
	centroids = append(centroids, points[rng.Intn(len(points))])

	d2 := make([]float64, len(points))
	for i, p := range points {
		d2[i] = sq(p - centroids[0])
	}

	for len(centroids) < k {
		var total float64
		next := -1
		for i, d := range d2 {
			total += d
			if d > 0 {
				next = i
			}
		}

		if total == 0 {
			// every point sits on a centroid already
			next = rng.Intn(len(points))
		} else {
			target := rng.Float64() * total
			var acc float64
			for i, d := range d2 {
				acc += d
				if acc > target {
					next = i
					break
				}
			}
		}

		c := points[next]
		centroids = append(centroids, c)
		for i, p := range points {
			if d := sq(p - c); d < d2[i] {
				d2[i] = d
			}
		}
	}
	return centroids
}

// lloyd refines centroids until membership is stable, the total squared
// centroid shift is within tol, or maxIter is reached.
func lloyd(points, centroids []float64, maxIter int, tol float64) *models.ClusterAssignment {
	k := len(centroids)
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}

	result := &models.ClusterAssignment{}
	sums := make([]float64, k)
	counts := make([]int, k)

	for iter := 1; iter <= maxIter; iter++ {
		result.Iterations = iter
		changed := assign(points, centroids, labels)

		clear(sums)
		clear(counts)
		for i, p := range points {
			sums[labels[i]] += p
			counts[labels[i]]++
		}

		for c := 0; c < k; c++ {
			if counts[c] > 0 {
				continue
			}
			if reseed(points, centroids, labels, sums, counts, c) {
				result.Reseeds++
				changed = true
			}
		}

		var shift float64
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// no point can be moved here; keep the old centroid
				continue
			}
			next := sums[c] / float64(counts[c])
			shift += sq(next - centroids[c])
			centroids[c] = next
		}

		if !changed || shift <= tol {
			result.Converged = true
			break
		}
	}

	// final assignment so labels agree with the returned centroids
	assign(points, centroids, labels)

	var inertia float64
	for i, p := range points {
		inertia += sq(p - centroids[labels[i]])
	}

	result.Labels = labels
	result.Centroids = centroids
	result.Inertia = inertia
	return result
}

// assign moves every point to its nearest centroid, exact ties going to the
// lowest centroid index. It reports whether any label changed.
func assign(points, centroids []float64, labels []int) bool {
	changed := false
	for i, p := range points {
		best, bestDist := 0, sq(p-centroids[0])
		for c := 1; c < len(centroids); c++ {
			if d := sq(p - centroids[c]); d < bestDist {
				best, bestDist = c, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// reseed hands the empty cluster c the point farthest from its own centroid,
// taken only from clusters that keep at least one member. Ties go to the
// lowest point index. It returns false when every candidate already sits on
// its centroid.
func reseed(points, centroids []float64, labels []int, sums []float64, counts []int, c int) bool {
	far, farDist := -1, 0.0
	for i, p := range points {
		if counts[labels[i]] < 2 {
			continue
		}
		if d := sq(p - centroids[labels[i]]); d > farDist {
			far, farDist = i, d
		}
	}
	if far < 0 {
		return false
	}

	donor := labels[far]
	sums[donor] -= points[far]
	counts[donor]--
	labels[far] = c
	sums[c] = points[far]
	counts[c] = 1
	return true
}

func sq(x float64) float64 {
	return x * x
}
