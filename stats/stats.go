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

// Package stats aggregates tracking quality of a hardware clock and serves
// it over HTTP, as Prometheus metrics and as a JSON status document.
package stats

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/eclesh/welford"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// historySize is the number of recent samples kept for mean/stddev.
const historySize = 64

// Snapshot is the current state of a tracked clock for the JSON endpoint.
type Snapshot struct {
	Device        string  `json:"device"`
	Valid         bool    `json:"valid"`
	Offset        float64 `json:"offset"`
	Frequency     float64 `json:"frequency"`
	ErrorBound    float64 `json:"error_bound"`
	Samples       int     `json:"samples"`
	OffsetMean    float64 `json:"offset_mean"`
	OffsetStddev  float64 `json:"offset_stddev"`
	DelayMean     float64 `json:"delay_mean"`
	DelayStddev   float64 `json:"delay_stddev"`
	Accepted      uint64  `json:"accepted"`
	Rejected      uint64  `json:"rejected"`
	Resets        uint64  `json:"resets"`
	BatchesFailed uint64  `json:"batches_failed"`
}

// Tracker collects tracking quality of one hardware clock. All methods are
// safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	snapshot Snapshot
	offsets  []float64
	delays   []float64

	registry *prometheus.Registry

	offsetGauge  prometheus.Gauge
	freqGauge    prometheus.Gauge
	errGauge     prometheus.Gauge
	samplesGauge prometheus.Gauge
	validGauge   prometheus.Gauge

	acceptedCounter prometheus.Counter
	rejectedCounter prometheus.Counter
	resetsCounter   prometheus.Counter
	failedCounter   prometheus.Counter
}

// NewTracker creates a Tracker for the named device with its own metric
// registry.
func NewTracker(device string) *Tracker {
	labels := prometheus.Labels{"device": device}
	t := &Tracker{
		snapshot: Snapshot{Device: device},
		registry: prometheus.NewRegistry(),
		offsetGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "hwtrack_offset_seconds",
			Help:        "Modelled offset of the hardware clock at the reference point",
			ConstLabels: labels,
		}),
		freqGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "hwtrack_frequency_ratio",
			Help:        "Modelled frequency of the hardware clock relative to the system clock",
			ConstLabels: labels,
		}),
		errGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "hwtrack_error_bound_seconds",
			Help:        "Error bound of the last accepted sample",
			ConstLabels: labels,
		}),
		samplesGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "hwtrack_samples",
			Help:        "Number of samples in the tracking window",
			ConstLabels: labels,
		}),
		validGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "hwtrack_valid",
			Help:        "Whether the tracking model currently holds usable coefficients",
			ConstLabels: labels,
		}),
		acceptedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "hwtrack_samples_accepted_total",
			Help:        "Samples accepted into the tracking window",
			ConstLabels: labels,
		}),
		rejectedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "hwtrack_readings_rejected_total",
			Help:        "Reading batches that carried no usable sample",
			ConstLabels: labels,
		}),
		resetsCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "hwtrack_resets_total",
			Help:        "Times the tracking model was discarded",
			ConstLabels: labels,
		}),
		failedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "hwtrack_read_errors_total",
			Help:        "Failed attempts to read the hardware clock",
			ConstLabels: labels,
		}),
	}
	t.registry.MustRegister(t.offsetGauge, t.freqGauge, t.errGauge,
		t.samplesGauge, t.validGauge, t.acceptedCounter, t.rejectedCounter,
		t.resetsCounter, t.failedCounter)
	return t
}

// UpdateModel records the model state after a sample was accumulated.
func (t *Tracker) UpdateModel(valid bool, offset, frequency, errBound float64, samples int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasValid := t.snapshot.Valid
	t.snapshot.Valid = valid
	t.snapshot.Offset = offset
	t.snapshot.Frequency = frequency
	t.snapshot.ErrorBound = errBound
	t.snapshot.Samples = samples
	t.snapshot.Accepted++
	t.offsets = appendBounded(t.offsets, offset)
	if wasValid && !valid {
		t.snapshot.Resets++
		t.resetsCounter.Inc()
	}

	t.offsetGauge.Set(offset)
	t.freqGauge.Set(frequency)
	t.errGauge.Set(errBound)
	t.samplesGauge.Set(float64(samples))
	if valid {
		t.validGauge.Set(1)
	} else {
		t.validGauge.Set(0)
	}
	t.acceptedCounter.Inc()
}

// ObserveDelay records the delay of one reading.
func (t *Tracker) ObserveDelay(delay float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.delays = appendBounded(t.delays, delay)
}

// IncRejected counts a reading batch that produced no sample.
func (t *Tracker) IncRejected() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snapshot.Rejected++
	t.rejectedCounter.Inc()
}

// IncReadError counts a failed attempt to read the hardware clock.
func (t *Tracker) IncReadError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snapshot.BatchesFailed++
	t.failedCounter.Inc()
}

// Snapshot returns the current state with mean/stddev aggregates of the
// recent history.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.snapshot
	s.OffsetMean = mean(t.offsets)
	s.OffsetStddev = stddev(t.offsets)
	s.DelayMean = mean(t.delays)
	s.DelayStddev = stddev(t.delays)
	return s
}

// Handler serves the metric registry in Prometheus exposition format.
func (t *Tracker) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Mux returns the monitoring endpoints: /metrics for Prometheus and /status
// for the JSON snapshot.
func (t *Tracker) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", t.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(t.Snapshot()); err != nil {
			log.Errorf("writing status: %v", err)
		}
	})
	return mux
}

func appendBounded(history []float64, v float64) []float64 {
	if len(history) >= historySize {
		history = history[1:]
	}
	return append(history, v)
}

func mean(input []float64) float64 {
	s := welford.New()
	for _, v := range input {
		s.Add(v)
	}
	return s.Mean()
}

func stddev(input []float64) float64 {
	s := welford.New()
	for _, v := range input {
		s.Add(v)
	}
	return s.Stddev()
}
