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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderReadings(t *testing.T) {
	out := []readingOut{
		{HWTime: "12:00:00.000000100", SysTime: "12:00:00.000000050", DelayNS: 12345, OffsetNS: 50},
		{HWTime: "12:00:01.000000100", SysTime: "12:00:01.000000050", DelayNS: 23456, OffsetNS: -50},
	}

	var buf bytes.Buffer
	renderReadings(&buf, out)

	body := buf.String()
	require.Contains(t, body, "12:00:00.000000100")
	require.Contains(t, body, "12345")
	require.Contains(t, body, "23456")
	require.Contains(t, body, "-50")
}
