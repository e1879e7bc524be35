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

package stats

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrackerSnapshot(t *testing.T) {
	tr := NewTracker("/dev/ptp0")

	tr.UpdateModel(true, 1.5e-6, 1.000012, 2.0e-6, 5)
	tr.UpdateModel(true, 2.5e-6, 1.000013, 2.0e-6, 6)
	tr.ObserveDelay(10e-6)
	tr.ObserveDelay(20e-6)
	tr.IncRejected()
	tr.IncReadError()

	s := tr.Snapshot()
	require.Equal(t, "/dev/ptp0", s.Device)
	require.True(t, s.Valid)
	require.Equal(t, 2.5e-6, s.Offset)
	require.Equal(t, 1.000013, s.Frequency)
	require.Equal(t, 6, s.Samples)
	require.Equal(t, uint64(2), s.Accepted)
	require.Equal(t, uint64(1), s.Rejected)
	require.Equal(t, uint64(1), s.BatchesFailed)
	require.InDelta(t, 2.0e-6, s.OffsetMean, 1e-12)
	require.InDelta(t, 15e-6, s.DelayMean, 1e-12)
}

func TestTrackerCountsResets(t *testing.T) {
	tr := NewTracker("/dev/ptp0")

	tr.UpdateModel(true, 0, 1.0, 1e-6, 2)
	tr.UpdateModel(false, 0, 1.0, 1e-6, 0)
	tr.UpdateModel(false, 0, 1.0, 1e-6, 1)
	require.Equal(t, uint64(1), tr.Snapshot().Resets)

	tr.UpdateModel(true, 0, 1.0, 1e-6, 2)
	tr.UpdateModel(false, 0, 1.0, 1e-6, 0)
	require.Equal(t, uint64(2), tr.Snapshot().Resets)
}

func TestTrackerHistoryBounded(t *testing.T) {
	tr := NewTracker("/dev/ptp0")
	for i := 0; i < historySize*2; i++ {
		tr.ObserveDelay(float64(i))
	}
	require.Len(t, tr.delays, historySize)
	// oldest entries were evicted
	require.Equal(t, float64(historySize), tr.delays[0])
}

func TestMetricsEndpoint(t *testing.T) {
	tr := NewTracker("/dev/ptp0")
	tr.UpdateModel(true, 1.5e-6, 1.000012, 2.0e-6, 5)

	srv := httptest.NewServer(tr.Mux())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "hwtrack_samples")
	require.Contains(t, string(body), `device="/dev/ptp0"`)
}

func TestStatusEndpoint(t *testing.T) {
	tr := NewTracker("/dev/ptp0")
	tr.UpdateModel(true, 1.5e-6, 1.000012, 2.0e-6, 5)

	srv := httptest.NewServer(tr.Mux())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var s Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	require.Equal(t, "/dev/ptp0", s.Device)
	require.Equal(t, 5, s.Samples)
	require.True(t, s.Valid)
}
