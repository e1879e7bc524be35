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
	"context"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/timetools/hwtrack/daemon"
	"github.com/timetools/hwtrack/phc"
	"github.com/timetools/hwtrack/sysclock"
)

var (
	runConfigFlag         string
	runDeviceFlag         string
	runIntervalFlag       time.Duration
	runMonitoringPortFlag int
)

func init() {
	RootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runConfigFlag, "config", "c", "", "path to the config")
	runCmd.Flags().StringVarP(&runDeviceFlag, "device", "d", "", "PHC device or interface, overrides config")
	runCmd.Flags().DurationVarP(&runIntervalFlag, "interval", "i", 0, "polling interval, overrides config")
	runCmd.Flags().IntVarP(&runMonitoringPortFlag, "monitoringport", "m", 0, "monitoring port, overrides config")
}

// prepareConfig builds the final config from defaults, the on-disk config
// and CLI flag overrides.
func prepareConfig() (*daemon.Config, error) {
	cfg := daemon.DefaultConfig()
	if runConfigFlag != "" {
		var err error
		cfg, err = daemon.ReadConfig(runConfigFlag)
		if err != nil {
			return nil, err
		}
	}
	if runDeviceFlag != "" {
		cfg.Device = runDeviceFlag
	}
	if runIntervalFlag != 0 {
		cfg.Interval = runIntervalFlag
	}
	if runMonitoringPortFlag != 0 {
		cfg.MonitoringPort = runMonitoringPortFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runRun() error {
	cfg, err := prepareConfig()
	if err != nil {
		return err
	}

	dev, err := phc.Open(cfg.Device)
	if err != nil {
		return err
	}
	defer dev.Close()
	log.Infof("tracking %s every %s", dev.Path(), cfg.Interval)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return daemon.New(cfg, sysclock.NewSystem(), dev).Run(ctx)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tracking daemon",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		if err := runRun(); err != nil {
			log.Fatal(err)
		}
	},
}
