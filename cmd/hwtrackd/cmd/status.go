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
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/timetools/hwtrack/stats"
)

var statusAddrFlag string

func init() {
	RootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&statusAddrFlag, "addr", "a", "http://localhost:4040", "address of a running hwtrackd monitoring endpoint")
}

func fetchSnapshot(addr string) (*stats.Snapshot, error) {
	c := http.Client{
		Timeout: time.Second * 2,
	}
	resp, err := c.Get(addr + "/status")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching status: %s", resp.Status)
	}
	s := &stats.Snapshot{}
	if err := json.NewDecoder(resp.Body).Decode(s); err != nil {
		return nil, err
	}
	return s, nil
}

func statusRun(addr string) error {
	s, err := fetchSnapshot(addr)
	if err != nil {
		return err
	}
	renderSnapshot(os.Stdout, s)
	return nil
}

func renderSnapshot(w io.Writer, s *stats.Snapshot) {
	state := color.RedString("no model")
	if s.Valid {
		state = color.GreenString("tracking")
	}
	fmt.Fprintf(w, "%s: %s\n", s.Device, state)

	table := tablewriter.NewWriter(w)
	table.Header([]string{"metric", "value"})
	table.Append([]string{"offset(s)", fmt.Sprintf("%e", s.Offset)})
	table.Append([]string{"frequency", fmt.Sprintf("%.9f", s.Frequency)})
	table.Append([]string{"error bound(s)", fmt.Sprintf("%e", s.ErrorBound)})
	table.Append([]string{"samples", fmt.Sprintf("%d", s.Samples)})
	table.Append([]string{"offset mean(s)", fmt.Sprintf("%e", s.OffsetMean)})
	table.Append([]string{"offset stddev(s)", fmt.Sprintf("%e", s.OffsetStddev)})
	table.Append([]string{"delay mean(s)", fmt.Sprintf("%e", s.DelayMean)})
	table.Append([]string{"delay stddev(s)", fmt.Sprintf("%e", s.DelayStddev)})
	table.Append([]string{"accepted", fmt.Sprintf("%d", s.Accepted)})
	table.Append([]string{"rejected", fmt.Sprintf("%d", s.Rejected)})
	table.Append([]string{"resets", fmt.Sprintf("%d", s.Resets)})
	table.Append([]string{"read errors", fmt.Sprintf("%d", s.BatchesFailed)})
	table.Render()
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print tracking status of a running hwtrackd",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		if err := statusRun(statusAddrFlag); err != nil {
			log.Fatal(err)
		}
	},
}
