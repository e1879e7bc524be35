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
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/timetools/hwtrack/phc"
	"github.com/timetools/hwtrack/timestamp"
)

var (
	readingsDeviceFlag string
	readingsCountFlag  int
	readingsIsJSON     bool
)

func init() {
	RootCmd.AddCommand(readingsCmd)
	readingsCmd.Flags().StringVarP(&readingsDeviceFlag, "device", "d", "/dev/ptp0", "PHC device or interface")
	readingsCmd.Flags().IntVarP(&readingsCountFlag, "count", "n", 5, "number of readings to take")
	readingsCmd.Flags().BoolVarP(&readingsIsJSON, "json", "j", false, "produce json output")
}

type readingOut struct {
	HWTime   string `json:"hw_time"`
	SysTime  string `json:"sys_time"`
	DelayNS  int64  `json:"delay_ns"`
	OffsetNS int64  `json:"offset_ns"`
}

func readingsRun(device string, count int, isJSON bool) error {
	dev, err := phc.Open(device)
	if err != nil {
		return err
	}
	defer dev.Close()

	readings, err := dev.ReadReadings(count)
	if err != nil {
		return err
	}

	out := make([]readingOut, 0, len(readings))
	for _, r := range readings {
		mid := timestamp.Add(r.T0, timestamp.Diff(r.T2, r.T0)/2.0)
		out = append(out, readingOut{
			HWTime:   r.T1.Format("15:04:05.000000000"),
			SysTime:  mid.Format("15:04:05.000000000"),
			DelayNS:  r.T2.Sub(r.T0).Nanoseconds(),
			OffsetNS: r.T1.Sub(mid).Nanoseconds(),
		})
	}

	if isJSON {
		str, err := json.Marshal(out)
		if err != nil {
			return fmt.Errorf("marshaling json: %w", err)
		}
		fmt.Println(string(str))
		return nil
	}

	renderReadings(os.Stdout, out)
	return nil
}

func renderReadings(w io.Writer, out []readingOut) {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"#", "hw time", "sys time", "delay(ns)", "offset(ns)"})
	for i, r := range out {
		table.Append([]string{
			fmt.Sprintf("%d", i),
			r.HWTime,
			r.SysTime,
			fmt.Sprintf("%d", r.DelayNS),
			fmt.Sprintf("%d", r.OffsetNS),
		})
	}
	table.Render()
}

var readingsCmd = &cobra.Command{
	Use:   "readings",
	Short: "Take one batch of readings from a PHC and print it",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		if err := readingsRun(readingsDeviceFlag, readingsCountFlag, readingsIsJSON); err != nil {
			log.Fatal(err)
		}
	},
}
