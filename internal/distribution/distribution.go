// Package distribution provides an equal-width bucketed distribution of
// float samples.
package distribution

import (
	"errors"
	"math"
)

var (
	ErrNoSamples  = errors.New("distribution: no samples")
	ErrBucketSize = errors.New("distribution: bucket count must be positive")
)

// Bucketed sorts samples into equal-width buckets spanning the smallest
// to the largest sample, both inclusive.
type Bucketed struct {
	start  float64
	width  float64
	counts []int
	total  int
}

// New builds a distribution with n buckets from samples. When every
// sample has the same value v, the buckets span [0, 2v] so v sits in
// the middle; for v == 0 they span [-0.5, 0.5].
func New(samples []float64, n int) (*Bucketed, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	if n <= 0 {
		return nil, ErrBucketSize
	}

	lo, hi := samples[0], samples[0]
	for _, s := range samples[1:] {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	if lo == hi {
		lo, hi = spanAround(lo)
	}

	d := &Bucketed{
		start:  lo,
		width:  (hi - lo) / float64(n),
		counts: make([]int, n),
	}
	for _, s := range samples {
		d.counts[d.index(s)]++
		d.total++
	}
	return d, nil
}

func spanAround(v float64) (float64, float64) {
	switch {
	case v > 0:
		return 0, 2 * v
	case v < 0:
		return 2 * v, 0
	default:
		return -0.5, 0.5
	}
}

// index returns the bucket holding v, which must lie within the range.
func (d *Bucketed) index(v float64) int {
	i := int((v - d.start) / d.width)
	if i >= len(d.counts) {
		i = len(d.counts) - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// lookup returns the bucket for v, or false when v is out of range.
func (d *Bucketed) lookup(v float64) (int, bool) {
	end := d.start + d.width*float64(len(d.counts))
	if v < d.start || v > end {
		return 0, false
	}
	return d.index(v), true
}

// NumBuckets returns the bucket count.
func (d *Bucketed) NumBuckets() int { return len(d.counts) }

// Total returns the number of samples.
func (d *Bucketed) Total() int { return d.total }

// Width returns the width of one bucket.
func (d *Bucketed) Width() float64 { return d.width }

// Buckets returns the lower bound of every bucket in ascending order.
func (d *Bucketed) Buckets() []float64 {
	out := make([]float64, len(d.counts))
	for i := range out {
		out[i] = d.start + float64(i)*d.width
	}
	return out
}

// Count returns the number of samples in bucket i.
func (d *Bucketed) Count(i int) int {
	if i < 0 || i >= len(d.counts) {
		return 0
	}
	return d.counts[i]
}

// Probability returns the share of samples in the bucket containing v,
// or 0 outside the distribution's range.
func (d *Bucketed) Probability(v float64) float64 {
	i, ok := d.lookup(v)
	if !ok {
		return 0
	}
	return float64(d.counts[i]) / float64(d.total)
}

// SmoothedProbability is Probability with add-one smoothing.
func (d *Bucketed) SmoothedProbability(v float64) float64 {
	i, ok := d.lookup(v)
	if !ok {
		return 0
	}
	return d.smoothed(i)
}

// BucketProbability returns the probability of the i-th bucket, or NaN
// for an index out of range. Use it instead of Probability when float
// rounding makes bucket bounds unreliable.
func (d *Bucketed) BucketProbability(i int) float64 {
	if i < 0 || i >= len(d.counts) {
		return math.NaN()
	}
	return float64(d.counts[i]) / float64(d.total)
}

// SmoothedBucketProbability is BucketProbability with add-one smoothing.
func (d *Bucketed) SmoothedBucketProbability(i int) float64 {
	if i < 0 || i >= len(d.counts) {
		return math.NaN()
	}
	return d.smoothed(i)
}

func (d *Bucketed) smoothed(i int) float64 {
	return float64(d.counts[i]+1) / float64(d.total+len(d.counts))
}

// Scaled returns an independent copy whose range is mapped linearly onto
// [lower, upper]. Bucket counts are unchanged.
func (d *Bucketed) Scaled(lower, upper float64) *Bucketed {
	span := d.width * float64(len(d.counts))
	scale := (upper - lower) / span

	counts := make([]int, len(d.counts))
	copy(counts, d.counts)
	return &Bucketed{
		start:  lower,
		width:  d.width * scale,
		counts: counts,
		total:  d.total,
	}
}
