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

// Package timestamp provides arithmetic on timestamps expressed as
// real-valued seconds, the form used throughout the clock tracking code.
package timestamp

import (
	"math"
	"time"
)

// Diff returns a-b in seconds.
func Diff(a, b time.Time) float64 {
	return a.Sub(b).Seconds()
}

// Add returns t shifted by the given number of seconds,
// rounded to nanosecond resolution.
func Add(t time.Time, seconds float64) time.Time {
	return t.Add(time.Duration(math.Round(seconds * float64(time.Second))))
}

// Compare returns -1 if a is before b, 0 if equal, 1 if a is after b.
func Compare(a, b time.Time) int {
	return a.Compare(b)
}

// AdjustForSlew moves a stored timestamp into the post-correction time frame.
// The correction changed the clock rate by dfreq (fraction) and stepped it
// back by doffset seconds at time when. Returns the adjusted timestamp and
// the applied delta in seconds.
func AdjustForSlew(old, when time.Time, dfreq, doffset float64) (time.Time, float64) {
	elapsed := Diff(when, old)
	delta := elapsed*dfreq - doffset
	return Add(old, delta), delta
}
