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

// Package daemon polls a PTP hardware clock, feeds the readings into the
// hwclock tracker and exposes the tracking state over HTTP.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/timetools/hwtrack/hwclock"
	"github.com/timetools/hwtrack/stats"
	"github.com/timetools/hwtrack/sysclock"
	"github.com/timetools/hwtrack/timestamp"
)

// Device produces round-trip readings of a hardware clock.
type Device interface {
	ReadReadings(nsamples int) ([]hwclock.Reading, error)
	Path() string
}

// Clock is the system clock the hardware clock is tracked against.
type Clock interface {
	sysclock.Clock
	Now() time.Time
}

// Daemon ties a PHC device, the system clock and the tracker together.
type Daemon struct {
	cfg     *Config
	clock   Clock
	dev     Device
	hw      *hwclock.HWClock
	tracker *stats.Tracker
}

// New creates a Daemon from a validated config.
func New(cfg *Config, clock Clock, dev Device) *Daemon {
	return &Daemon{
		cfg:     cfg,
		clock:   clock,
		dev:     dev,
		hw:      hwclock.New(clock, cfg.Tracking()),
		tracker: stats.NewTracker(dev.Path()),
	}
}

// HW returns the hardware clock tracker.
func (d *Daemon) HW() *hwclock.HWClock {
	return d.hw
}

// Tracker returns the stats tracker.
func (d *Daemon) Tracker() *stats.Tracker {
	return d.tracker
}

// poll takes one batch of readings if the tracker wants a new sample.
func (d *Daemon) poll() {
	if !d.hw.NeedsNewSample(d.clock.Now()) {
		return
	}

	readings, err := d.dev.ReadReadings(d.cfg.Readings)
	if err != nil {
		log.Errorf("reading %s: %v", d.dev.Path(), err)
		d.tracker.IncReadError()
		return
	}
	for _, r := range readings {
		d.tracker.ObserveDelay(timestamp.Diff(r.T2, r.T0))
	}

	hwTS, localTS, errBound, ok := d.hw.ProcessReadings(readings)
	if !ok {
		d.tracker.IncRejected()
		return
	}
	d.hw.AccumulateSample(hwTS, localTS, errBound)
	d.tracker.UpdateModel(d.hw.Valid(), d.hw.Offset(), d.hw.Frequency(),
		errBound, d.hw.SampleCount())
}

// Run polls the device until the context is cancelled. When monitoring is
// enabled the HTTP endpoints are served for the same lifetime.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.hw.Close()

	g, ctx := errgroup.WithContext(ctx)

	if d.cfg.MonitoringPort > 0 {
		server := &http.Server{
			Addr:    fmt.Sprintf(":%d", d.cfg.MonitoringPort),
			Handler: d.tracker.Mux(),
		}
		g.Go(func() error {
			log.Infof("monitoring on %s", server.Addr)
			err := server.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			<-ctx.Done()
			return server.Shutdown(context.Background())
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(d.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				d.poll()
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
