// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// MetricsSubsystem is the subsystem shared by all stream metrics
const MetricsSubsystem = "stream"

// Metrics contains the metrics exposed by the stream layers. Every metric
// carries a "layer" label
type Metrics struct {
	// Events delivered to subscribers
	Events metrics.Counter
	// Streams ended by an error
	Errors metrics.Counter
	// Streams currently running
	ActiveStreams metrics.Gauge
	// Seconds spent on each node query
	QueryDurationSeconds metrics.Histogram
}

// PrometheusMetrics returns Metrics built using the Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	labels = append(labels, "layer")
	return &Metrics{
		Events: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "events_total",
			Help:      "Number of events delivered to subscribers.",
		}, labels).With(labelsAndValues...),
		Errors: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "errors_total",
			Help:      "Number of streams ended by an error.",
		}, labels).With(labelsAndValues...),
		ActiveStreams: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "active",
			Help:      "Number of running streams.",
		}, labels).With(labelsAndValues...),
		QueryDurationSeconds: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "query_duration_seconds",
			Help:      "Time spent on node queries.",
			Buckets:   stdprometheus.ExponentialBuckets(0.005, 2, 12),
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics
func NopMetrics() *Metrics {
	return &Metrics{
		Events:               discard.NewCounter(),
		Errors:               discard.NewCounter(),
		ActiveStreams:        discard.NewGauge(),
		QueryDurationSeconds: discard.NewHistogram(),
	}
}

// LayerStats contains statistics about one stream layer
type LayerStats struct {
	// Subscriptions is the total number of streams started
	Subscriptions uint64
	// ActiveStreams is the number of streams not yet cancelled
	ActiveStreams int64
	// Events is the total number of events delivered
	Events uint64
	// Errors is the total number of streams ended by an error
	Errors uint64
	// Queries is the total number of node queries issued
	Queries uint64
	// LastEventTime is the time the last event was delivered
	LastEventTime time.Time
}

// layerMetrics tracks the statistics of one layer with atomic counters and
// mirrors them into the shared go-kit metrics
type layerMetrics struct {
	name          string
	subscriptions atomic.Uint64
	active        atomic.Int64
	events        atomic.Uint64
	errors        atomic.Uint64
	queries       atomic.Uint64

	mu            sync.RWMutex
	lastEventTime time.Time

	eventsCounter metrics.Counter
	errorsCounter metrics.Counter
	activeGauge   metrics.Gauge
	queryDuration metrics.Histogram
}

func newLayerMetrics(name string, m *Metrics) *layerMetrics {
	return &layerMetrics{
		name:          name,
		eventsCounter: m.Events.With("layer", name),
		errorsCounter: m.Errors.With("layer", name),
		activeGauge:   m.ActiveStreams.With("layer", name),
		queryDuration: m.QueryDurationSeconds.With("layer", name),
	}
}

func (m *layerMetrics) recordStart() {
	m.subscriptions.Add(1)
	m.activeGauge.Set(float64(m.active.Add(1)))
}

func (m *layerMetrics) recordStop() {
	m.activeGauge.Set(float64(m.active.Add(-1)))
}

func (m *layerMetrics) recordEvent() {
	m.events.Add(1)
	m.eventsCounter.Add(1)
	m.mu.Lock()
	m.lastEventTime = time.Now()
	m.mu.Unlock()
}

func (m *layerMetrics) recordError() {
	m.errors.Add(1)
	m.errorsCounter.Add(1)
}

func (m *layerMetrics) recordQuery(duration time.Duration) {
	m.queries.Add(1)
	m.queryDuration.Observe(duration.Seconds())
}

// Stats returns a snapshot of the layer statistics
func (m *layerMetrics) Stats() LayerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return LayerStats{
		Subscriptions: m.subscriptions.Load(),
		ActiveStreams: m.active.Load(),
		Events:        m.events.Load(),
		Errors:        m.errors.Load(),
		Queries:       m.queries.Load(),
		LastEventTime: m.lastEventTime,
	}
}
