// Copyright 2024 Nokia
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package flood

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics publishes flood activity to a prometheus registry, labeled by unit
// name. A nil *Metrics is valid and records nothing, which keeps units
// metrics-free unless WithMetrics is used.
type Metrics struct {
	invocations *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	active      *prometheus.GaugeVec
}

// NewMetrics builds the flood metric set and registers it with reg. A nil
// registerer skips registration, useful in tests that only inspect values.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood",
			Name:      "invocations_total",
			Help:      "Number of operation invocations, successful or not.",
		}, []string{"unit"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood",
			Name:      "invocation_failures_total",
			Help:      "Number of operation invocations that returned an error or panicked.",
		}, []string{"unit"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flood",
			Name:      "invocation_duration_seconds",
			Help:      "Latency of individual operation invocations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"unit"}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "flood",
			Name:      "active_workers",
			Help:      "Workers currently running flood iterations.",
		}, []string{"unit"}),
	}
	if reg != nil {
		reg.MustRegister(m.invocations, m.failures, m.duration, m.active)
	}
	return m
}

func (m *Metrics) observe(unit string, d time.Duration) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(unit).Inc()
	m.duration.WithLabelValues(unit).Observe(d.Seconds())
}

func (m *Metrics) failed(unit string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(unit).Inc()
}

func (m *Metrics) workerUp(unit string) {
	if m == nil {
		return
	}
	m.active.WithLabelValues(unit).Inc()
}

func (m *Metrics) workerDown(unit string) {
	if m == nil {
		return
	}
	m.active.WithLabelValues(unit).Dec()
}
