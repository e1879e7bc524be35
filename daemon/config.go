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
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/timetools/hwtrack/hwclock"
)

// Config controls the tracking daemon.
type Config struct {
	Device         string        `yaml:"device"`          // PHC device or network interface with PHC support
	Readings       int           `yaml:"readings"`        // readings taken per poll, up to the kernel limit of 25
	Interval       time.Duration `yaml:"interval"`        // polling interval
	MinSamples     int           `yaml:"min_samples"`     // minimum samples to keep in the tracking window
	MaxSamples     int           `yaml:"max_samples"`     // maximum samples to keep in the tracking window
	MinSeparation  time.Duration `yaml:"min_separation"`  // minimum spacing between accepted samples
	Precision      time.Duration `yaml:"precision"`       // expected precision of readings
	MonitoringPort int           `yaml:"monitoring_port"` // port for /metrics and /status, 0 disables monitoring
}

// DefaultConfig returns Config initialized with default values
func DefaultConfig() *Config {
	return &Config{
		Device:         "/dev/ptp0",
		Readings:       5,
		Interval:       time.Second,
		MinSamples:     2,
		MaxSamples:     16,
		MinSeparation:  time.Second,
		Precision:      100 * time.Nanosecond,
		MonitoringPort: 4040,
	}
}

// Validate Config is sane
func (c *Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("device must be set")
	}
	if c.Readings < 1 {
		return fmt.Errorf("readings must be positive")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.MinSeparation <= 0 {
		return fmt.Errorf("min_separation must be positive")
	}
	if c.Precision <= 0 {
		return fmt.Errorf("precision must be positive")
	}
	if c.MonitoringPort < 0 {
		return fmt.Errorf("monitoring_port must not be negative")
	}
	return nil
}

// Tracking returns the hwclock configuration derived from the daemon config.
func (c *Config) Tracking() hwclock.Config {
	return hwclock.Config{
		MinSamples:    c.MinSamples,
		MaxSamples:    c.MaxSamples,
		MinSeparation: c.MinSeparation.Seconds(),
		Precision:     c.Precision.Seconds(),
	}
}

// ReadConfig reads config from the file
func ReadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	cData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(cData, &c)
	if err != nil {
		return nil, err
	}

	return c, nil
}
