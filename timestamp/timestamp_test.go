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

package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	base := time.Unix(1674148530, 0)
	require.InDelta(t, 1.5, Diff(base.Add(1500*time.Millisecond), base), 1e-12)
	require.InDelta(t, -0.25, Diff(base, base.Add(250*time.Millisecond)), 1e-12)
	require.InDelta(t, 0.0, Diff(base, base), 1e-12)
}

func TestAdd(t *testing.T) {
	base := time.Unix(1674148530, 0)
	require.Equal(t, base.Add(time.Second), Add(base, 1.0))
	require.Equal(t, base.Add(-42*time.Nanosecond), Add(base, -42e-9))
	// sub-nanosecond amounts round to the nearest nanosecond
	require.Equal(t, base.Add(time.Nanosecond), Add(base, 0.6e-9))
	require.Equal(t, base, Add(base, 0.4e-9))
}

func TestCompare(t *testing.T) {
	base := time.Unix(1674148530, 0)
	require.Equal(t, -1, Compare(base, base.Add(time.Nanosecond)))
	require.Equal(t, 0, Compare(base, base))
	require.Equal(t, 1, Compare(base.Add(time.Nanosecond), base))
}

func TestAdjustForSlew(t *testing.T) {
	ref := time.Unix(1674148530, 0)
	when := ref.Add(10 * time.Second)

	// pure step: the reference moves by -doffset regardless of elapsed time
	adjusted, delta := AdjustForSlew(ref, when, 0.0, 0.5)
	require.InDelta(t, -0.5, delta, 1e-12)
	require.Equal(t, Add(ref, -0.5), adjusted)

	// pure frequency change: delta scales with elapsed time
	adjusted, delta = AdjustForSlew(ref, when, 100e-6, 0.0)
	require.InDelta(t, 10*100e-6, delta, 1e-12)
	require.Equal(t, Add(ref, 1e-3), adjusted)
}
