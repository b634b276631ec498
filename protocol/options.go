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
	"time"

	"github.com/blinklabs-io/gosteem/log"
)

// UnmatchedResponseFunc observes inbound messages that resolved nothing. The
// error is a *StaleResponseError or *MismatchedResponseError
type UnmatchedResponseFunc func(error)

// DispatcherConfig is used to configure a Dispatcher
type DispatcherConfig struct {
	// MaxInFlight is the number of requests that may await a response at once
	MaxInFlight int
	// SendQueueSize is the number of requests that may wait for the write loop
	SendQueueSize int
	// InitialRequestId is the first id handed out to requests without one
	InitialRequestId uint64
	// RequestTimeout bounds how long a caller waits for its response. Zero
	// waits until the response arrives, the connection fails or the context ends
	RequestTimeout time.Duration
	// APIIds seeds the API name registry
	APIIds map[string]int
	// Logger receives dispatcher debug and error logs
	Logger log.Logger
	// Metrics receives dispatcher metrics
	Metrics *Metrics
	// UnmatchedResponseFunc is called for every stale or mismatched response
	UnmatchedResponseFunc UnmatchedResponseFunc
}

// DispatcherOptionFunc modifies a DispatcherConfig
type DispatcherOptionFunc func(*DispatcherConfig)

// NewDispatcherConfig returns a DispatcherConfig with defaults and the provided options applied
func NewDispatcherConfig(options ...DispatcherOptionFunc) DispatcherConfig {
	c := DispatcherConfig{
		MaxInFlight:      DefaultMaxInFlight,
		SendQueueSize:    DefaultSendQueueSize,
		InitialRequestId: DefaultInitialRequestId,
		APIIds:           DefaultAPIIds(),
	}
	for _, option := range options {
		option(&c)
	}
	return c
}

// WithMaxInFlight specifies the in-flight request cap
func WithMaxInFlight(maxInFlight int) DispatcherOptionFunc {
	return func(c *DispatcherConfig) {
		if maxInFlight > 0 {
			c.MaxInFlight = maxInFlight
		}
	}
}

// WithSendQueueSize specifies how many requests may queue for the write loop
func WithSendQueueSize(size int) DispatcherOptionFunc {
	return func(c *DispatcherConfig) {
		if size > 0 {
			c.SendQueueSize = size
		}
	}
}

// WithInitialRequestId specifies the first automatically assigned request id
func WithInitialRequestId(id uint64) DispatcherOptionFunc {
	return func(c *DispatcherConfig) {
		if id > 0 {
			c.InitialRequestId = id
		}
	}
}

// WithRequestTimeout specifies how long callers wait for a response
func WithRequestTimeout(timeout time.Duration) DispatcherOptionFunc {
	return func(c *DispatcherConfig) {
		c.RequestTimeout = timeout
	}
}

// WithAPIIds specifies the initial API name to id mapping. It replaces the defaults
func WithAPIIds(ids map[string]int) DispatcherOptionFunc {
	return func(c *DispatcherConfig) {
		c.APIIds = ids
	}
}

// WithLogger specifies the logger to use
func WithLogger(logger log.Logger) DispatcherOptionFunc {
	return func(c *DispatcherConfig) {
		c.Logger = logger
	}
}

// WithMetrics specifies the metrics to record into
func WithMetrics(metrics *Metrics) DispatcherOptionFunc {
	return func(c *DispatcherConfig) {
		c.Metrics = metrics
	}
}

// WithUnmatchedResponseFunc specifies an observer for dropped responses
func WithUnmatchedResponseFunc(fn UnmatchedResponseFunc) DispatcherOptionFunc {
	return func(c *DispatcherConfig) {
		c.UnmatchedResponseFunc = fn
	}
}
