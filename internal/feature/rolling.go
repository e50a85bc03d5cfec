package feature

import "math"

// rolling maintains mean and standard deviation over the most recent N
// observations using a fixed ring buffer.
type rolling struct {
	buf  []float64
	next int
	n    int
}

// newRolling creates a rolling window of the given capacity.
func newRolling(capacity int) *rolling {
	return &rolling{buf: make([]float64, capacity)}
}

// push records one observation, evicting the oldest when full.
func (r *rolling) push(v float64) {
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
	if r.n < len(r.buf) {
		r.n++
	}
}

// mean returns the window mean, or 0 for an empty window.
func (r *rolling) mean() float64 {
	if r.n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < r.n; i++ {
		sum += r.buf[i]
	}
	return sum / float64(r.n)
}

// stddev returns the population standard deviation of the window.
func (r *rolling) stddev() float64 {
	if r.n == 0 {
		return 0
	}
	m := r.mean()
	var sum float64
	for i := 0; i < r.n; i++ {
		d := r.buf[i] - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(r.n))
}

// reset clears the window.
func (r *rolling) reset() {
	r.next = 0
	r.n = 0
}
