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

// Package hwclock tracks a hardware clock (e.g. an RTC or PHC) against the
// system clock. It filters noisy round-trip readings by their delay,
// maintains a window of accepted samples and fits a linear model
// (offset + frequency) with a robust regression, so that raw hardware
// timestamps can be converted to estimated system time. The model detects
// hardware clock resets and rebuilds itself automatically, and it follows
// corrections applied to the system clock via change notifications.
//
// All methods must be called from a single event-processing context;
// there is no internal locking.
package hwclock

import (
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/timetools/hwtrack/quantile"
	"github.com/timetools/hwtrack/regression"
	"github.com/timetools/hwtrack/sysclock"
	"github.com/timetools/hwtrack/timestamp"
)

// Bounds for the configured number of samples per clock.
const (
	minSamplesLimit = 2
	maxSamplesLimit = 64
)

// maxFreqOffset is the maximum acceptable frequency offset of the
// hardware clock relative to the system clock.
const maxFreqOffset = 2.0 / 3.0

// Quantiles of reading delay used to build the acceptance window.
const (
	delayQuantMinK    = 1
	delayQuantMaxK    = 2
	delayQuantQ       = 10
	delayQuantRepeat  = 7
	delayQuantMinStep = 1.0e-9
)

// regressTolerance is the slope tolerance passed to the regression.
const regressTolerance = 1.0e-10

// Reading is one round-trip measurement of the hardware clock: the request
// and reply timestamps T0 and T2 are raw local time, T1 is raw hardware
// time read in between.
type Reading struct {
	T0 time.Time
	T1 time.Time
	T2 time.Time
}

// DelayEstimator is the quantile estimator tracking the distribution of
// reading delays across the process lifetime.
type DelayEstimator interface {
	Accumulate(v float64)
	Quantile(k int) float64
}

// Fitter finds a robust line fit over a sample window.
type Fitter func(x, y []float64, tol float64) (regression.Fit, bool)

// Config holds the tracking parameters of one hardware clock.
type Config struct {
	// MinSamples and MaxSamples bound the sample window; both are clamped
	// into [2, 64] and ordered.
	MinSamples int
	MaxSamples int
	// MinSeparation is the minimum spacing between accepted samples in
	// seconds.
	MinSeparation float64
	// Precision is the expected precision of readings in seconds, a floor
	// on every reported error bound.
	Precision float64
}

// HWClock tracks one hardware clock against the system clock.
type HWClock struct {
	clock sysclock.Clock

	// reference timestamp pair forming the origin of the sample window
	hwRef    time.Time
	localRef time.Time

	// samples stored as intervals (uncorrected for frequency error)
	// relative to localRef and hwRef, right-aligned in the arrays
	xData []float64
	yData []float64

	minSamples int
	maxSamples int
	nSamples   int

	lastErr       float64
	minSeparation float64
	precision     float64

	validCoefs bool
	offset     float64
	frequency  float64

	delayQuants DelayEstimator
	fit         Fitter

	removeHandler func()
}

// New creates a tracker for one hardware clock and subscribes it to the
// system clock's correction notifications. Close must be called to drop
// the subscription.
func New(clock sysclock.Clock, cfg Config) *HWClock {
	minSamples := clamp(cfg.MinSamples, minSamplesLimit, maxSamplesLimit)
	maxSamples := clamp(cfg.MaxSamples, minSamplesLimit, maxSamplesLimit)
	if maxSamples < minSamples {
		maxSamples = minSamples
	}

	c := &HWClock{
		clock:         clock,
		xData:         make([]float64, maxSamples),
		yData:         make([]float64, maxSamples),
		minSamples:    minSamples,
		maxSamples:    maxSamples,
		minSeparation: cfg.MinSeparation,
		precision:     cfg.Precision,
		delayQuants: quantile.New(delayQuantMinK, delayQuantMaxK, delayQuantQ,
			delayQuantRepeat, delayQuantMinStep),
		fit: regression.FindBestRobustRegression,
	}
	c.removeHandler = clock.AddChangeHandler(c.handleCorrection)
	return c
}

// Close removes the correction subscription. The tracker must not be used
// afterwards.
func (c *HWClock) Close() {
	if c.removeHandler != nil {
		c.removeHandler()
		c.removeHandler = nil
	}
}

// NeedsNewSample reports whether a new reading of the hardware clock
// should be taken at the given time.
func (c *HWClock) NeedsNewSample(now time.Time) bool {
	return c.nSamples == 0 ||
		math.Abs(timestamp.Diff(now, c.localRef)) >= c.minSeparation
}

// ProcessReadings combines one or more round-trip readings into a single
// (hardware time, local time, error bound) sample, filtering the readings
// by delay against the tracked delay distribution. Returns ok=false when
// the batch is unusable or carries no new information.
func (c *HWClock) ProcessReadings(readings []Reading) (hwTS, localTS time.Time, errBound float64, ok bool) {
	n := len(readings)
	if n < 1 {
		return time.Time{}, time.Time{}, 0, false
	}

	// short-term correction multiplier turning raw delays into cooked ones
	first, last := readings[0], readings[n-1]
	freq := 1.0
	if timestamp.Compare(first.T0, last.T2) < 0 {
		freq = timestamp.Diff(c.clock.CookTime(first.T0), c.clock.CookTime(last.T2)) /
			timestamp.Diff(first.T0, last.T2)
	}

	var minDelay float64
	minReading := 0
	for i, r := range readings {
		delay := freq * timestamp.Diff(r.T2, r.T0)
		if delay < 0.0 {
			// step in the middle of a reading?
			log.Debugf("bad reading delay=%e", delay)
			return time.Time{}, time.Time{}, 0, false
		}
		if i == 0 || delay < minDelay {
			minDelay = delay
			minReading = i
		}
		c.delayQuants.Accumulate(delay)
	}

	localPrec := c.clock.PrecisionQuantum()
	lowDelay := c.delayQuants.Quantile(delayQuantMinK)
	highDelay := c.delayQuants.Quantile(delayQuantMaxK)
	lowDelay = math.Min(lowDelay, highDelay)
	highDelay = math.Max(highDelay, lowDelay+localPrec)

	// combine readings with delay in the expected interval
	var delaySum, hwSum, localSum float64
	combined := 0
	for _, r := range readings {
		rawDelay := timestamp.Diff(r.T2, r.T0)
		delay := freq * rawDelay
		if delay < lowDelay || delay > highDelay {
			continue
		}
		delaySum += delay
		hwSum += timestamp.Diff(r.T1, first.T1)
		localSum += timestamp.Diff(r.T0, first.T0) + rawDelay/2.0
		combined++
	}

	log.Debugf("combined %d readings lo=%e hi=%e", combined, lowDelay, highDelay)

	if combined > 0 {
		hwTS = timestamp.Add(first.T1, hwSum/float64(combined))
		localTS = timestamp.Add(first.T0, localSum/float64(combined))
		errBound = math.Max(delaySum/float64(combined)/2.0, c.precision)
		return hwTS, localTS, errBound, true
	}

	// Accept the reading with the minimum delay if its error interval does
	// not contain the offset predicted from previous samples.
	r := readings[minReading]
	hwTS = r.T1
	localTS = timestamp.Add(r.T0, minDelay/freq/2.0)
	errBound = math.Max(minDelay/2.0, c.precision)

	predicted, _, modelOK := c.CookTime(hwTS)
	if !modelOK {
		log.Debugf("accepted reading err=%e", errBound)
		return hwTS, localTS, errBound, true
	}
	predErr := timestamp.Diff(c.clock.CookTime(localTS), predicted)
	if predErr > errBound {
		log.Debugf("accepted reading err=%e prederr=%e", errBound, predErr)
		return hwTS, localTS, errBound, true
	}

	return time.Time{}, time.Time{}, 0, false
}

// AccumulateSample admits an accepted sample into the window and refits the
// linear model. A non-monotonic hardware timestamp or a sample following
// the previous one too closely resets the window first; a fit that cannot
// explain the newest sample within its own error bound, or implies an
// implausible hardware clock rate, discards everything.
func (c *HWClock) AccumulateSample(hwTS, localTS time.Time, errBound float64) {
	localFreq := 1.0 - c.clock.AbsoluteFrequencyPPM()/1.0e6

	// shift old samples so deltas stay relative to the newest sample
	if c.nSamples > 0 {
		if c.nSamples >= c.maxSamples {
			c.nSamples--
		}

		hwDelta := timestamp.Diff(hwTS, c.hwRef)
		localDelta := timestamp.Diff(localTS, c.localRef) / localFreq

		if hwDelta <= 0.0 || localDelta < c.minSeparation/2.0 {
			c.nSamples = 0
			log.Debugf("hw clock reset interval=%f", localDelta)
		}

		for i := c.maxSamples - c.nSamples; i < c.maxSamples; i++ {
			c.yData[i-1] = c.yData[i] - hwDelta
			c.xData[i-1] = c.xData[i] - localDelta
		}
	}

	c.nSamples++
	c.hwRef = hwTS
	c.localRef = localTS
	c.lastErr = errBound
	// the newest sample is the origin of the window
	c.xData[c.maxSamples-1] = 0.0
	c.yData[c.maxSamples-1] = 0.0

	start := c.maxSamples - c.nSamples
	fit, ok := c.fit(c.xData[start:], c.yData[start:], regressTolerance)
	c.validCoefs = ok
	if !ok {
		log.Debugf("hw clock needs more samples")
		return
	}

	c.offset = fit.Offset
	c.frequency = fit.Slope / localFreq

	// drop samples the fit no longer needs, but keep at least minSamples
	if c.nSamples > c.minSamples {
		trim := fit.BestStart
		if limit := c.nSamples - c.minSamples; trim > limit {
			trim = limit
		}
		c.nSamples -= trim
	}

	// If the fit doesn't cross the error interval of the last sample, or
	// the frequency is not sane, drop all samples and start again.
	if math.Abs(c.offset) > errBound || math.Abs(c.frequency-1.0) > maxFreqOffset {
		log.Debugf("hw clock reset")
		c.nSamples = 0
		c.validCoefs = false
	}

	log.Debugf("hw clock samples=%d offset=%e freq=%e rawfreq=%e err=%e refdiff=%e",
		c.nSamples, c.offset, c.frequency-1.0, fit.Slope-1.0, errBound,
		timestamp.Diff(c.hwRef, c.localRef))
}

// CookTime converts a raw hardware timestamp to estimated system time
// using the current model. Returns ok=false while no usable model exists.
// The returned error bound is that of the last accepted sample; it does
// not grow with the distance from the reference point.
func (c *HWClock) CookTime(raw time.Time) (cooked time.Time, errBound float64, ok bool) {
	if !c.validCoefs {
		return time.Time{}, 0, false
	}

	elapsed := timestamp.Diff(raw, c.hwRef)
	offset := elapsed/c.frequency - c.offset
	return timestamp.Add(c.localRef, offset), c.lastErr, true
}

// handleCorrection keeps the stored reference and frequency consistent
// with a correction applied to the system clock. Runs synchronously from
// the sysclock notification.
func (c *HWClock) handleCorrection(when time.Time, dfreq, doffset float64) {
	if c.nSamples > 0 {
		c.localRef, _ = timestamp.AdjustForSlew(c.localRef, when, dfreq, doffset)
	}
	if c.validCoefs {
		c.frequency /= 1.0 - dfreq
	}
}

// Valid reports whether the model currently holds usable coefficients.
func (c *HWClock) Valid() bool {
	return c.validCoefs
}

// Offset returns the modelled offset in seconds at the reference point.
func (c *HWClock) Offset() float64 {
	return c.offset
}

// Frequency returns the modelled frequency of the hardware clock relative
// to the system clock (1.0 means identical rate).
func (c *HWClock) Frequency() float64 {
	return c.frequency
}

// LastError returns the error bound of the most recently accepted sample
// in seconds.
func (c *HWClock) LastError() float64 {
	return c.lastErr
}

// SampleCount returns the number of samples currently in the window.
func (c *HWClock) SampleCount() int {
	return c.nSamples
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
