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

package daemon

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/timetools/hwtrack/hwclock"
	"github.com/timetools/hwtrack/sysclock"
)

// testClock is a Simulated sysclock with a settable wall time.
type testClock struct {
	*sysclock.Simulated
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

// testDevice serves scripted reading batches.
type testDevice struct {
	batches [][]hwclock.Reading
	err     error
	calls   int
}

func (d *testDevice) ReadReadings(nsamples int) ([]hwclock.Reading, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.calls >= len(d.batches) {
		return nil, errors.New("out of readings")
	}
	b := d.batches[d.calls]
	d.calls++
	return b, nil
}

func (d *testDevice) Path() string {
	return "/dev/ptp7"
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.MinSamples = 2
	cfg.MaxSamples = 4
	cfg.MonitoringPort = 0
	return cfg
}

func perfectBatch(ts time.Time) []hwclock.Reading {
	return []hwclock.Reading{{T0: ts, T1: ts, T2: ts}}
}

func TestDaemonConverges(t *testing.T) {
	base := time.Unix(1674148530, 0)
	clock := &testClock{Simulated: sysclock.NewSimulated(), now: base}
	dev := &testDevice{batches: [][]hwclock.Reading{
		perfectBatch(base),
		perfectBatch(base.Add(time.Second)),
	}}

	d := New(testConfig(), clock, dev)
	defer d.HW().Close()

	d.poll()
	require.False(t, d.HW().Valid())

	clock.now = base.Add(time.Second)
	d.poll()
	require.True(t, d.HW().Valid())

	s := d.Tracker().Snapshot()
	require.Equal(t, uint64(2), s.Accepted)
	require.Equal(t, "/dev/ptp7", s.Device)
	require.True(t, s.Valid)
}

func TestDaemonSkipsEarlyPolls(t *testing.T) {
	base := time.Unix(1674148530, 0)
	clock := &testClock{Simulated: sysclock.NewSimulated(), now: base}
	dev := &testDevice{batches: [][]hwclock.Reading{perfectBatch(base)}}

	d := New(testConfig(), clock, dev)
	defer d.HW().Close()

	d.poll()
	require.Equal(t, 1, dev.calls)

	// well within min_separation, the device must not be touched
	clock.now = base.Add(100 * time.Millisecond)
	d.poll()
	d.poll()
	require.Equal(t, 1, dev.calls)
}

func TestDaemonCountsReadErrors(t *testing.T) {
	clock := &testClock{Simulated: sysclock.NewSimulated(), now: time.Unix(1674148530, 0)}
	dev := &testDevice{err: errors.New("ioctl failed")}

	d := New(testConfig(), clock, dev)
	defer d.HW().Close()

	d.poll()
	require.Equal(t, uint64(1), d.Tracker().Snapshot().BatchesFailed)
	require.Equal(t, uint64(0), d.Tracker().Snapshot().Accepted)
}

func TestDaemonCountsRejectedBatches(t *testing.T) {
	base := time.Unix(1674148530, 0)
	clock := &testClock{Simulated: sysclock.NewSimulated(), now: base}
	// local clock stepped mid-reading: T2 before T0
	dev := &testDevice{batches: [][]hwclock.Reading{{
		{T0: base.Add(time.Second), T1: base, T2: base},
	}}}

	d := New(testConfig(), clock, dev)
	defer d.HW().Close()

	d.poll()
	require.Equal(t, uint64(1), d.Tracker().Snapshot().Rejected)
	require.Equal(t, uint64(0), d.Tracker().Snapshot().Accepted)
}
