/*
Copyright (c) Timetools, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package quantile implements an online estimator of rank quantiles over a
// stream of values. It keeps no sample history: each tracked quantile is
// estimated with the P-squared marker algorithm (Jain & Chlamtac), which
// maintains five marker heights per quantile in constant memory. To make
// the estimates robust against bursts of outliers, every quantile is
// tracked by several independent estimates updated round-robin, and
// queries return their median.
package quantile

import (
	"sort"
)

// Estimator tracks the k/q quantiles for k in [minK, maxK].
type Estimator struct {
	minK, maxK int
	q          int
	repeat     int
	minStep    float64

	// trackers grouped per k, repeat entries each
	quants   []tracker
	next     int
	nSamples int
}

// tracker is a single P-squared estimator of one quantile.
type tracker struct {
	heights [5]float64
	pos     [5]float64
	want    [5]float64
	incr    [5]float64
	n       int
}

func (t *tracker) init(p float64) {
	t.incr = [5]float64{0, p / 2, p, (1 + p) / 2, 1}
	t.want = [5]float64{1, 1 + 2*p, 1 + 4*p, 3 + 2*p, 5}
	t.pos = [5]float64{1, 2, 3, 4, 5}
	t.n = 0
}

// New creates an estimator of the k/q quantiles for k in [minK, maxK].
// Each quantile is tracked by repeat independent estimates. minStep is the
// minimum separation kept between adjacent markers when the parabolic
// adjustment is applied, which keeps the markers strictly ordered for
// streams quantized to a coarse resolution.
func New(minK, maxK, q, repeat int, minStep float64) *Estimator {
	if q < 2 {
		q = 2
	}
	if minK < 1 {
		minK = 1
	}
	if maxK > q-1 {
		maxK = q - 1
	}
	if maxK < minK {
		maxK = minK
	}
	if repeat < 1 {
		repeat = 1
	}
	e := &Estimator{
		minK:    minK,
		maxK:    maxK,
		q:       q,
		repeat:  repeat,
		minStep: minStep,
		quants:  make([]tracker, (maxK-minK+1)*repeat),
	}
	e.Reset()
	return e
}

// Accumulate updates the estimates with a new value from the stream.
// Each call advances the round-robin index, so each of the repeat
// estimates sees every repeat-th value.
func (e *Estimator) Accumulate(value float64) {
	rr := e.next
	e.next = (e.next + 1) % e.repeat
	e.nSamples++

	for k := e.minK; k <= e.maxK; k++ {
		t := &e.quants[(k-e.minK)*e.repeat+rr]
		e.observe(t, float64(k)/float64(e.q), value)
	}
}

func (e *Estimator) observe(t *tracker, p, x float64) {
	if t.n < 5 {
		t.heights[t.n] = x
		t.n++
		if t.n == 5 {
			sort.Float64s(t.heights[:])
		}
		return
	}

	// locate the marker cell containing x, extending the extremes
	var cell int
	switch {
	case x < t.heights[0]:
		t.heights[0] = x
		cell = 0
	case x >= t.heights[4]:
		t.heights[4] = x
		cell = 3
	default:
		for cell = 0; cell < 3; cell++ {
			if x < t.heights[cell+1] {
				break
			}
		}
	}

	t.n++
	for i := cell + 1; i < 5; i++ {
		t.pos[i]++
	}
	for i := 0; i < 5; i++ {
		t.want[i] += t.incr[i]
	}

	// move the interior markers toward their desired positions
	for i := 1; i <= 3; i++ {
		d := t.want[i] - t.pos[i]
		if (d >= 1 && t.pos[i+1]-t.pos[i] > 1) || (d <= -1 && t.pos[i-1]-t.pos[i] < -1) {
			s := 1.0
			if d < 0 {
				s = -1.0
			}
			h := t.parabolic(i, s)
			if t.heights[i-1]+e.minStep < h && h < t.heights[i+1]-e.minStep {
				t.heights[i] = h
			} else {
				t.heights[i] = t.linear(i, s)
			}
			t.pos[i] += s
		}
	}
}

// parabolic is the P-squared interpolation of marker i moved by s.
func (t *tracker) parabolic(i int, s float64) float64 {
	return t.heights[i] + s/(t.pos[i+1]-t.pos[i-1])*
		((t.pos[i]-t.pos[i-1]+s)*(t.heights[i+1]-t.heights[i])/(t.pos[i+1]-t.pos[i])+
			(t.pos[i+1]-t.pos[i]-s)*(t.heights[i]-t.heights[i-1])/(t.pos[i]-t.pos[i-1]))
}

// linear is the fallback interpolation when the parabolic formula would
// push the marker out of order.
func (t *tracker) linear(i int, s float64) float64 {
	j := i + int(s)
	return t.heights[i] + s*(t.heights[j]-t.heights[i])/(t.pos[j]-t.pos[i])
}

// estimate returns the tracker's current quantile estimate and whether the
// tracker has seen any values at all.
func (t *tracker) estimate(p float64) (float64, bool) {
	if t.n == 0 {
		return 0.0, false
	}
	if t.n < 5 {
		sorted := make([]float64, t.n)
		copy(sorted, t.heights[:t.n])
		sort.Float64s(sorted)
		i := int(p * float64(t.n))
		if i > t.n-1 {
			i = t.n - 1
		}
		return sorted[i], true
	}
	return t.heights[2], true
}

// Quantile returns the current estimate of the k/q quantile as the median
// of the independent estimates. Returns 0 before any value was accumulated.
// k is clamped into the tracked range.
func (e *Estimator) Quantile(k int) float64 {
	if k < e.minK {
		k = e.minK
	}
	if k > e.maxK {
		k = e.maxK
	}
	p := float64(k) / float64(e.q)
	ests := make([]float64, 0, e.repeat)
	for i := 0; i < e.repeat; i++ {
		if est, ok := e.quants[(k-e.minK)*e.repeat+i].estimate(p); ok {
			ests = append(ests, est)
		}
	}
	if len(ests) == 0 {
		return 0.0
	}
	sort.Float64s(ests)
	return ests[len(ests)/2]
}

// Samples returns how many values were accumulated since creation or reset.
func (e *Estimator) Samples() int {
	return e.nSamples
}

// Reset discards all accumulated state.
func (e *Estimator) Reset() {
	for k := e.minK; k <= e.maxK; k++ {
		for i := 0; i < e.repeat; i++ {
			e.quants[(k-e.minK)*e.repeat+i].init(float64(k) / float64(e.q))
		}
	}
	e.next = 0
	e.nSamples = 0
}
