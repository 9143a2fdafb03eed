package calculate

import "math"

// cancelRatio bounds sumSq relative to the centered second moment. Past it
// the subtraction in StdDev has lost too many digits and the sums are rebuilt.
const cancelRatio = 1e6

// RollingWindow keeps the last size values and provides their mean and
// sample standard deviation using running sums.
type RollingWindow struct {
	size   int
	values []float64
	idx    int
	count  int
	pushes int
	// sums are kept relative to shift, the window mean at the last resync,
	// which keeps the sum-of-squares cancellation small for large offsets
	shift float64
	sum   float64
	sumSq float64

	// length of the trailing run of identical values, so a constant
	// window reports its exact value and a zero deviation
	run  int
	last float64
}

// NewRollingWindow creates a window holding at most size values
func NewRollingWindow(size int) *RollingWindow {
	if size <= 0 {
		size = 1
	}
	return &RollingWindow{
		size:   size,
		values: make([]float64, size),
	}
}

// Push adds v, evicting the oldest value once the window is full
func (r *RollingWindow) Push(v float64) {
	if r.count > 0 && v == r.last {
		r.run++
	} else {
		r.run = 1
	}
	r.last = v
	if r.pushes == 0 {
		r.shift = v
	}

	var evicted float64
	if r.count == r.size {
		evicted = r.values[r.idx] - r.shift
		r.sum -= evicted
		r.sumSq -= evicted * evicted
	} else {
		r.count++
	}

	r.values[r.idx] = v
	d := v - r.shift
	r.sum += d
	r.sumSq += d * d
	r.idx = (r.idx + 1) % r.size
	r.pushes++

	switch {
	case evicted*evicted > r.sumSq:
		// the evicted term dominated the sums; what is left of the
		// smaller terms is rounding noise
		r.resum()
	case r.drifted():
		r.resum()
	case r.pushes%r.size == 0:
		r.resum()
	}
}

// drifted reports whether the values moved so far from shift that the
// variance is mostly cancellation error
func (r *RollingWindow) drifted() bool {
	if r.count < 2 {
		return false
	}
	m2 := r.sumSq - r.sum*r.sum/float64(r.count)
	return r.sumSq > cancelRatio*m2
}

// resum rebuilds the sums around the current window mean
func (r *RollingWindow) resum() {
	var total float64
	for i := 0; i < r.count; i++ {
		total += r.values[i]
	}
	r.shift = total / float64(r.count)

	r.sum, r.sumSq = 0, 0
	for i := 0; i < r.count; i++ {
		d := r.values[i] - r.shift
		r.sum += d
		r.sumSq += d * d
	}
}

// Count returns the number of values currently in the window
func (r *RollingWindow) Count() int {
	return r.count
}

func (r *RollingWindow) constant() bool {
	return r.run >= r.count
}

// Mean returns the window mean, 0 when empty
func (r *RollingWindow) Mean() float64 {
	if r.count == 0 {
		return 0
	}
	if r.constant() {
		return r.last
	}
	return r.shift + r.sum/float64(r.count)
}

// StdDev returns the sample standard deviation (n-1), 0 with fewer than two values
func (r *RollingWindow) StdDev() float64 {
	if r.count < 2 || r.constant() {
		return 0
	}
	n := float64(r.count)
	variance := (r.sumSq - r.sum*r.sum/n) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// Rolling computes the trailing mean and sample standard deviation at every
// position with min_periods = 1: the first window-1 positions use the
// shorter window available.
func Rolling(values []float64, window int) (means, stds []float64) {
	means = make([]float64, len(values))
	stds = make([]float64, len(values))

	w := NewRollingWindow(window)
	for i, v := range values {
		w.Push(v)
		means[i] = w.Mean()
		stds[i] = w.StdDev()
	}
	return means, stds
}
