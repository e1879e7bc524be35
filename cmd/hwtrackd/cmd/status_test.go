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

package cmd

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timetools/hwtrack/stats"
)

func TestFetchSnapshot(t *testing.T) {
	tr := stats.NewTracker("/dev/ptp0")
	tr.UpdateModel(true, 1.5e-6, 1.000012, 2.0e-6, 5)

	srv := httptest.NewServer(tr.Mux())
	defer srv.Close()

	s, err := fetchSnapshot(srv.URL)
	require.NoError(t, err)
	require.Equal(t, "/dev/ptp0", s.Device)
	require.True(t, s.Valid)
	require.Equal(t, 5, s.Samples)
}

func TestFetchSnapshotUnreachable(t *testing.T) {
	_, err := fetchSnapshot("http://localhost:1")
	require.Error(t, err)
}

func TestRenderSnapshot(t *testing.T) {
	s := &stats.Snapshot{
		Device:     "/dev/ptp0",
		Valid:      true,
		Offset:     1.5e-6,
		Frequency:  1.000012,
		ErrorBound: 2.0e-6,
		Samples:    42,
		Accepted:   100,
		Rejected:   3,
	}

	var buf bytes.Buffer
	renderSnapshot(&buf, s)

	body := buf.String()
	require.Contains(t, body, "/dev/ptp0")
	require.Contains(t, body, "tracking")
	require.Contains(t, body, "1.500000e-06")
	require.Contains(t, body, "1.000012000")
	require.Contains(t, body, "42")

	s.Valid = false
	buf.Reset()
	renderSnapshot(&buf, s)
	require.Contains(t, buf.String(), "no model")
}
