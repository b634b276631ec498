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

package protocol

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// MetricsSubsystem is the subsystem shared by all dispatcher metrics
const MetricsSubsystem = "dispatcher"

// Metrics contains the metrics exposed by the dispatcher
type Metrics struct {
	// Requests written to the connection, by method
	RequestsSent metrics.Counter
	// Responses matched to their request, by method
	ResponsesMatched metrics.Counter
	// Server-reported errors, by method
	ProtocolErrors metrics.Counter
	// Requests failed because the connection went away
	TransportErrors metrics.Counter
	// Inbound messages older than every pending request
	StaleResponses metrics.Counter
	// Inbound messages no pending request claimed
	MismatchedResponses metrics.Counter
	// Inbound messages that could not be decoded
	InvalidResponses metrics.Counter
	// Requests that hit the request timeout
	Timeouts metrics.Counter
	// Requests currently awaiting a response
	InFlight metrics.Gauge
	// Seconds spent waiting for admission
	AdmissionWaitSeconds metrics.Histogram
	// Seconds from transmission to response
	RequestDurationSeconds metrics.Histogram
}

// PrometheusMetrics returns Metrics built using the Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	methodLabels := append(append([]string{}, labels...), "method")
	return &Metrics{
		RequestsSent: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "requests_sent_total",
			Help:      "Number of requests written to the connection.",
		}, methodLabels).With(labelsAndValues...),
		ResponsesMatched: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "responses_matched_total",
			Help:      "Number of responses matched to their request.",
		}, methodLabels).With(labelsAndValues...),
		ProtocolErrors: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "protocol_errors_total",
			Help:      "Number of server-reported errors.",
		}, methodLabels).With(labelsAndValues...),
		TransportErrors: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "transport_errors_total",
			Help:      "Number of requests failed by a connection error.",
		}, labels).With(labelsAndValues...),
		StaleResponses: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "stale_responses_total",
			Help:      "Number of dropped responses older than every pending request.",
		}, labels).With(labelsAndValues...),
		MismatchedResponses: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "mismatched_responses_total",
			Help:      "Number of dropped responses no pending request claimed.",
		}, labels).With(labelsAndValues...),
		InvalidResponses: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "invalid_responses_total",
			Help:      "Number of inbound messages that failed to decode.",
		}, labels).With(labelsAndValues...),
		Timeouts: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "timeouts_total",
			Help:      "Number of requests that hit the request timeout.",
		}, labels).With(labelsAndValues...),
		InFlight: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "in_flight",
			Help:      "Number of requests awaiting a response.",
		}, labels).With(labelsAndValues...),
		AdmissionWaitSeconds: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "admission_wait_seconds",
			Help:      "Time requests spent waiting for a free in-flight slot.",
			Buckets:   stdprometheus.ExponentialBuckets(0.001, 4, 8),
		}, labels).With(labelsAndValues...),
		RequestDurationSeconds: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "request_duration_seconds",
			Help:      "Time between transmitting a request and matching its response.",
			Buckets:   stdprometheus.ExponentialBuckets(0.005, 2, 12),
		}, methodLabels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics
func NopMetrics() *Metrics {
	return &Metrics{
		RequestsSent:           discard.NewCounter(),
		ResponsesMatched:       discard.NewCounter(),
		ProtocolErrors:         discard.NewCounter(),
		TransportErrors:        discard.NewCounter(),
		StaleResponses:         discard.NewCounter(),
		MismatchedResponses:    discard.NewCounter(),
		InvalidResponses:       discard.NewCounter(),
		Timeouts:               discard.NewCounter(),
		InFlight:               discard.NewGauge(),
		AdmissionWaitSeconds:   discard.NewHistogram(),
		RequestDurationSeconds: discard.NewHistogram(),
	}
}
