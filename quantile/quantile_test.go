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

package quantile

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmpty(t *testing.T) {
	e := New(1, 2, 10, 7, 1.0e-9)
	require.Equal(t, 0, e.Samples())
	require.Equal(t, 0.0, e.Quantile(1))
	require.Equal(t, 0.0, e.Quantile(2))
}

func TestWarmup(t *testing.T) {
	e := New(1, 2, 10, 7, 1.0e-9)
	e.Accumulate(42.0)
	require.Equal(t, 1, e.Samples())
	// the single set estimate is the sample itself
	require.Equal(t, 42.0, e.Quantile(1))
	require.Equal(t, 42.0, e.Quantile(2))
}

func TestConstantStream(t *testing.T) {
	e := New(1, 2, 10, 7, 1.0e-9)
	for i := 0; i < 100; i++ {
		e.Accumulate(0.001)
	}
	require.Equal(t, 0.001, e.Quantile(1))
	require.Equal(t, 0.001, e.Quantile(2))
}

func TestUniformStream(t *testing.T) {
	e := New(1, 2, 10, 7, 1.0e-9)
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 10000; i++ {
		e.Accumulate(r.Float64())
	}
	q1 := e.Quantile(1)
	q2 := e.Quantile(2)
	// 10% and 20% quantiles of uniform [0, 1)
	require.InDelta(t, 0.1, q1, 0.08)
	require.InDelta(t, 0.2, q2, 0.08)
	require.LessOrEqual(t, q1, q2)
}

func TestOutlierResistance(t *testing.T) {
	e := New(1, 2, 10, 7, 1.0e-9)
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 5000; i++ {
		// 95% of the values near 1ms, 5% large outliers
		v := 0.001 + 0.0001*r.Float64()
		if r.Float64() < 0.05 {
			v = 1.0
		}
		e.Accumulate(v)
	}
	// low quantiles must stay near the bulk of the distribution
	require.Less(t, e.Quantile(1), 0.01)
	require.Less(t, e.Quantile(2), 0.01)
}

func TestClampedRank(t *testing.T) {
	e := New(1, 2, 10, 7, 1.0e-9)
	for i := 0; i < 100; i++ {
		e.Accumulate(float64(i))
	}
	require.Equal(t, e.Quantile(1), e.Quantile(0))
	require.Equal(t, e.Quantile(2), e.Quantile(5))
}

func TestReset(t *testing.T) {
	e := New(1, 2, 10, 7, 1.0e-9)
	for i := 0; i < 10; i++ {
		e.Accumulate(1.0)
	}
	e.Reset()
	require.Equal(t, 0, e.Samples())
	require.Equal(t, 0.0, e.Quantile(1))
}
