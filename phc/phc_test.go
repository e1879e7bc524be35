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

package phc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIoctlValues(t *testing.T) {
	// PTP_SYS_OFFSET_EXTENDED as the kernel defines it
	require.Equal(t, uintptr(0xc4c03d09), ioctlPTPSysOffsetExtended)
}

func TestFdToClockID(t *testing.T) {
	require.Equal(t, int32(-29), fdToClockID(3))
	require.Equal(t, int32(-61), fdToClockID(7))
}

func TestPTPClockTime(t *testing.T) {
	ts := PTPClockTime{Sec: 1674148530, NSec: 500000000}
	require.Equal(t, time.Unix(1674148530, 500000000), ts.Time())
}

func TestExtendedReadings(t *testing.T) {
	e := &PTPSysOffsetExtended{NSamples: 2}
	e.TS[0] = [3]PTPClockTime{
		{Sec: 100, NSec: 0},
		{Sec: 200, NSec: 500},
		{Sec: 100, NSec: 1000},
	}
	e.TS[1] = [3]PTPClockTime{
		{Sec: 101, NSec: 0},
		{Sec: 201, NSec: 500},
		{Sec: 101, NSec: 1000},
	}

	readings := e.Readings()
	require.Len(t, readings, 2)
	require.Equal(t, time.Unix(100, 0), readings[0].T0)
	require.Equal(t, time.Unix(200, 500), readings[0].T1)
	require.Equal(t, time.Unix(100, 1000), readings[0].T2)
	require.Equal(t, time.Unix(101, 0), readings[1].T0)

	// sample count from the kernel is never trusted beyond the array
	e.NSamples = 1000
	require.Len(t, e.Readings(), ptpMaxSamples)
}
