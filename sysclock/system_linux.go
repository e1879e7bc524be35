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

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// timexPPMFrac converts the adjtimex freq field (PPM with a 16-bit
// fractional part) to plain PPM. See clock_adjtime(2).
const timexPPMFrac = 65536.0

// System is the Clock backed by CLOCK_REALTIME. The kernel applies NTP
// corrections before readings are returned, so raw readings are already in
// the corrected timeline and cooking is the identity. Corrections applied
// by this process must be announced via NotifyCorrection so that dependent
// state is adjusted.
type System struct {
	notifier
}

// NewSystem creates the system clock abstraction.
func NewSystem() *System {
	return &System{}
}

// CookTime returns the reading unchanged; CLOCK_REALTIME readings are
// corrected by the kernel.
func (c *System) CookTime(raw time.Time) time.Time {
	return raw
}

// Now reads the current corrected system time.
func (c *System) Now() time.Time {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_REALTIME, &ts); err != nil {
		log.Errorf("clock_gettime(CLOCK_REALTIME): %v", err)
		return time.Now()
	}
	return time.Unix(ts.Unix())
}

// AbsoluteFrequencyPPM reads the frequency correction currently applied to
// the system clock via adjtimex.
func (c *System) AbsoluteFrequencyPPM() float64 {
	tx := &unix.Timex{}
	if _, err := unix.Adjtimex(tx); err != nil {
		log.Errorf("adjtimex: %v", err)
		return 0.0
	}
	return float64(tx.Freq) / timexPPMFrac
}

// PrecisionQuantum reports the resolution of CLOCK_REALTIME in seconds.
func (c *System) PrecisionQuantum() float64 {
	var ts unix.Timespec
	if err := unix.ClockGetres(unix.CLOCK_REALTIME, &ts); err != nil {
		log.Errorf("clock_getres(CLOCK_REALTIME): %v", err)
		return 1.0e-9
	}
	res := float64(ts.Sec) + float64(ts.Nsec)/1.0e9
	if res <= 0.0 {
		res = 1.0e-9
	}
	return res
}

// NotifyCorrection announces a correction this process applied to the
// system clock, firing the registered change handlers synchronously.
func (c *System) NotifyCorrection(when time.Time, dfreq, doffset float64) {
	c.notify(when, dfreq, doffset)
}
