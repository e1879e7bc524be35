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

// Package phc reads PTP hardware clocks (/dev/ptpN) and produces round-trip
// readings suitable for hwclock tracking.
package phc

import (
	"time"
	"unsafe"

	"github.com/timetools/hwtrack/hwclock"
)

// Missing from sys/unix package, defined in Linux include/uapi/linux/ptp_clock.h
const (
	ptpMaxSamples = 25
	ptpClkMagic   = '='
)

// PTPClockTime as defined in linux/ptp_clock.h
type PTPClockTime struct {
	Sec      int64  /* seconds */
	NSec     uint32 /* nanoseconds */
	Reserved uint32
}

// Time returns PTPClockTime as time.Time
func (t PTPClockTime) Time() time.Time {
	return time.Unix(t.Sec, int64(t.NSec))
}

// PTPSysOffsetExtended as defined in linux/ptp_clock.h
type PTPSysOffsetExtended struct {
	NSamples uint32    /* Desired number of measurements. */
	Reserved [3]uint32 /* Reserved for future use. */
	/*
	 * Array of [system, phc, system] time stamps. The kernel will provide
	 * 3*n_samples time stamps.
	 * - system time right before reading the lowest bits of the PHC timestamp
	 * - PHC time
	 * - system time immediately after reading the lowest bits of the PHC timestamp
	 */
	TS [ptpMaxSamples][3]PTPClockTime
}

// Readings converts the kernel's [system, phc, system] triples into
// round-trip readings.
func (e *PTPSysOffsetExtended) Readings() []hwclock.Reading {
	n := int(e.NSamples)
	if n > ptpMaxSamples {
		n = ptpMaxSamples
	}
	readings := make([]hwclock.Reading, 0, n)
	for i := 0; i < n; i++ {
		readings = append(readings, hwclock.Reading{
			T0: e.TS[i][0].Time(),
			T1: e.TS[i][1].Time(),
			T2: e.TS[i][2].Time(),
		})
	}
	return readings
}

// ioctl request encoding from asm-generic/ioctl.h
const (
	iocWrite = 1
	iocRead  = 2

	iocNrShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30
)

func iowr(typ, nr, size uintptr) uintptr {
	return (iocRead|iocWrite)<<iocDirShift |
		size<<iocSizeShift | typ<<iocTypeShift | nr<<iocNrShift
}

// ioctlPTPSysOffsetExtended corresponds to PTP_SYS_OFFSET_EXTENDED in
// linux/ptp_clock.h
var ioctlPTPSysOffsetExtended = iowr(ptpClkMagic, 9, unsafe.Sizeof(PTPSysOffsetExtended{}))

// file descriptor number to clockID
func fdToClockID(fd uintptr) int32 {
	return int32((int(^fd) << 3) | 3)
}
