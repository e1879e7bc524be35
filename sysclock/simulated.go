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

package sysclock

import (
	"time"

	"github.com/timetools/hwtrack/timestamp"
)

// Simulated is a deterministic Clock for tests and simulations. Raw time is
// cooked by adding the accumulated offset correction; frequency and
// precision are plain settable fields.
type Simulated struct {
	notifier

	// FrequencyPPM is returned by AbsoluteFrequencyPPM.
	FrequencyPPM float64
	// Precision is returned by PrecisionQuantum.
	Precision float64

	correction float64
}

// NewSimulated creates a simulated clock with nanosecond precision and no
// corrections applied.
func NewSimulated() *Simulated {
	return &Simulated{Precision: 1.0e-9}
}

// CookTime applies the accumulated offset correction to a raw reading.
func (c *Simulated) CookTime(raw time.Time) time.Time {
	return timestamp.Add(raw, c.correction)
}

// AbsoluteFrequencyPPM returns the configured frequency correction.
func (c *Simulated) AbsoluteFrequencyPPM() float64 {
	return c.FrequencyPPM
}

// PrecisionQuantum returns the configured reading granularity.
func (c *Simulated) PrecisionQuantum() float64 {
	return c.Precision
}

// ApplyCorrection simulates a slew or step of the system clock at corrected
// time when and fires the registered change handlers synchronously, the way
// the daemon's clock layer does after adjusting the real clock.
func (c *Simulated) ApplyCorrection(when time.Time, dfreq, doffset float64) {
	c.correction -= doffset
	c.notify(when, dfreq, doffset)
}
