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

// Package regression provides a robust straight-line fit for clock sample
// windows. The slope is found by minimizing the sum of absolute residuals
// (L1 regression), which tolerates a minority of arbitrarily bad outliers,
// and a runs test on the residuals decides how much of the older history is
// still consistent with the line.
package regression

import (
	"math"
	"sort"
)

// minRobustPoints is the smallest window the L1 fit operates on.
// Two points are handled as an exact line.
const minRobustPoints = 3

// maxBracketExpansions bounds the search for a slope interval containing
// the L1 optimum.
const maxBracketExpansions = 200

// Fit is the result of a successful regression.
type Fit struct {
	// Offset is the fitted line evaluated at x = 0.
	Offset float64
	// Slope is the fitted rate of y against x.
	Slope float64
	// Runs is the number of runs of same-sign residuals in the fitted window.
	Runs int
	// BestStart is the earliest sample index judged consistent with the fit.
	BestStart int
}

// FindBestRobustRegression fits a line to the tail of the (x, y) samples.
// It starts from the newest few samples and extends the window into older
// history while the residuals still look random (runs test); the returned
// fit covers the longest such window and BestStart is its first index.
// tol is the absolute tolerance of the slope search.
// Returns false when the samples cannot support a fit.
func FindBestRobustRegression(x, y []float64, tol float64) (Fit, bool) {
	n := len(x)
	if n != len(y) || n < 2 {
		return Fit{}, false
	}

	if n == 2 {
		dx := x[1] - x[0]
		if dx == 0.0 {
			return Fit{}, false
		}
		slope := (y[1] - y[0]) / dx
		return Fit{Offset: y[1] - slope*x[1], Slope: slope, Runs: 1}, true
	}

	var best Fit
	found := false
	for start := n - minRobustPoints; start >= 0; start-- {
		offset, slope, runs, ok := robustFit(x[start:], y[start:], tol)
		if !ok {
			break
		}
		if runs < criticalRuns(n-start) {
			break
		}
		best = Fit{Offset: offset, Slope: slope, Runs: runs, BestStart: start}
		found = true
	}
	return best, found
}

// robustFit performs the L1 regression on one window. The aggregate
// sum(sign(resid) * x) is the negated subgradient of the L1 objective with
// respect to the slope, so it is non-increasing in the slope and its zero
// crossing is found by bracketing and bisection.
func robustFit(x, y []float64, tol float64) (offset, slope float64, runs int, ok bool) {
	n := len(x)
	if x[n-1]-x[0] <= 0.0 {
		return 0, 0, 0, false
	}
	if tol <= 0.0 {
		tol = 1.0e-12
	}

	resid := make([]float64, n)
	s0 := (y[n-1] - y[0]) / (x[n-1] - x[0])

	offset, f0 := evalResidual(x, y, s0, resid)
	if f0 == 0.0 {
		return offset, s0, countRuns(resid, offset), true
	}

	// expand a bracket around the zero crossing of the aggregate
	lo, hi := s0, s0
	step := tol
	for i := 0; ; i++ {
		if i >= maxBracketExpansions {
			return 0, 0, 0, false
		}
		if f0 > 0.0 {
			hi = s0 + step
			if _, f := evalResidual(x, y, hi, resid); f <= 0.0 {
				break
			}
		} else {
			lo = s0 - step
			if _, f := evalResidual(x, y, lo, resid); f >= 0.0 {
				break
			}
		}
		step *= 2.0
	}

	for hi-lo > tol {
		mid := lo + (hi-lo)/2
		if _, f := evalResidual(x, y, mid, resid); f > 0.0 {
			lo = mid
		} else {
			hi = mid
		}
	}

	slope = lo + (hi-lo)/2
	offset, _ = evalResidual(x, y, slope, resid)
	return offset, slope, countRuns(resid, offset), true
}

// evalResidual computes the residuals for the given slope, the median
// residual (the L1 offset for that slope) and the sign aggregate driving
// the slope search.
func evalResidual(x, y []float64, slope float64, resid []float64) (offset, aggregate float64) {
	for i := range x {
		resid[i] = y[i] - slope*x[i]
	}
	offset = median(resid)
	for i := range x {
		switch r := resid[i] - offset; {
		case r > 0.0:
			aggregate += x[i]
		case r < 0.0:
			aggregate -= x[i]
		}
	}
	return offset, aggregate
}

func median(data []float64) float64 {
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// countRuns counts runs of same-sign residuals around the offset.
// Zero residuals count as positive.
func countRuns(resid []float64, offset float64) int {
	runs := 1
	prev := resid[0]-offset >= 0.0
	for _, r := range resid[1:] {
		cur := r-offset >= 0.0
		if cur != prev {
			runs++
			prev = cur
		}
	}
	return runs
}

// criticalRuns is the smallest number of runs still consistent with random
// residuals, from the one-sided normal approximation of the runs test at
// the 5% level with balanced signs.
func criticalRuns(n int) int {
	if n < 8 {
		return 0
	}
	mu := float64(n)/2 + 1
	sigma := math.Sqrt((mu - 1) * (mu - 2) / float64(n-1))
	c := int(mu - 1.645*sigma)
	if c < 0 {
		c = 0
	}
	return c
}
