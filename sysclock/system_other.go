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

//go:build !linux

package sysclock

import (
	"time"
)

// System is a reduced Clock for platforms without adjtimex; readings come
// from the Go runtime clock and no frequency information is available.
type System struct {
	notifier
}

// NewSystem creates the system clock abstraction.
func NewSystem() *System {
	return &System{}
}

// CookTime returns the reading unchanged.
func (c *System) CookTime(raw time.Time) time.Time {
	return raw
}

// Now reads the current system time.
func (c *System) Now() time.Time {
	return time.Now()
}

// AbsoluteFrequencyPPM always reports no correction.
func (c *System) AbsoluteFrequencyPPM() float64 {
	return 0.0
}

// PrecisionQuantum assumes nanosecond readings.
func (c *System) PrecisionQuantum() float64 {
	return 1.0e-9
}

// NotifyCorrection announces a correction this process applied to the
// system clock, firing the registered change handlers synchronously.
func (c *System) NotifyCorrection(when time.Time, dfreq, doffset float64) {
	c.notify(when, dfreq, doffset)
}
