package detect

import "gonum.org/v1/gonum/stat"

// Ring is a fixed-capacity buffer of the most recent float samples.
type Ring struct {
	buf  []float64
	next int
	full bool
}

// NewRing creates a ring holding at most size samples.
func NewRing(size int) *Ring {
	if size < 1 {
		size = 1
	}
	return &Ring{buf: make([]float64, size)}
}

// Push appends v, overwriting the oldest sample once full.
func (r *Ring) Push(v float64) {
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

// Len returns the number of samples held.
func (r *Ring) Len() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

// Values returns the samples oldest first.
func (r *Ring) Values() []float64 {
	if !r.full {
		return append([]float64(nil), r.buf[:r.next]...)
	}
	out := make([]float64, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}

// Mean returns the sample mean, 0 when empty.
func (r *Ring) Mean() float64 {
	if r.Len() == 0 {
		return 0
	}
	return stat.Mean(r.Values(), nil)
}

// Variance returns the population variance, 0 with fewer than two samples.
func (r *Ring) Variance() float64 {
	if r.Len() < 2 {
		return 0
	}
	return stat.PopVariance(r.Values(), nil)
}

// Reset drops all samples.
func (r *Ring) Reset() {
	r.next = 0
	r.full = false
}
