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
	"time"

	"github.com/blinklabs-io/gosteem/log"
)

// DefaultInterval is the default chain head polling interval
const DefaultInterval = 200 * time.Millisecond

// HeadMode selects which block number the HeadWatcher follows
type HeadMode int

const (
	// HeadModeHead follows head_block_number
	HeadModeHead HeadMode = iota
	// HeadModeIrreversible follows last_irreversible_block_num
	HeadModeIrreversible
)

func (m HeadMode) String() string {
	switch m {
	case HeadModeIrreversible:
		return "irreversible"
	default:
		return "head"
	}
}

// StreamConfig holds configuration for the stream layers
type StreamConfig struct {
	// Interval is the time between chain head queries
	Interval time.Duration
	// HeadMode selects the block number to follow
	HeadMode HeadMode
	// EmitInitialHead also emits the first observed head. By default the first
	// observation only sets the baseline
	EmitInitialHead bool
	// FillGaps emits every block number skipped between two observations
	FillGaps bool
	// CopyEvents makes the splitters emit deep copies that consumers may keep
	// and modify
	CopyEvents bool
	Logger     log.Logger
	Metrics    *Metrics
}

// DefaultStreamConfig returns a StreamConfig with defaults
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Interval: DefaultInterval,
		HeadMode: HeadModeHead,
	}
}

// StreamOption is a functional option for configuring the stream layers
type StreamOption func(*StreamConfig)

// NewStreamConfig returns a StreamConfig with defaults and the provided options applied
func NewStreamConfig(opts ...StreamOption) StreamConfig {
	config := DefaultStreamConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Logger == nil {
		config.Logger = log.NewNopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = NopMetrics()
	}
	return config
}

// WithConfig applies a complete StreamConfig, replacing all default values.
// A zero Interval falls back to DefaultInterval. Options applied after
// WithConfig still override its values
func WithConfig(config StreamConfig) StreamOption {
	return func(c *StreamConfig) {
		*c = config
	}
}

// WithInterval sets the chain head polling interval
func WithInterval(interval time.Duration) StreamOption {
	return func(c *StreamConfig) {
		if interval > 0 {
			c.Interval = interval
		}
	}
}

// WithHeadMode sets the block number the HeadWatcher follows
func WithHeadMode(mode HeadMode) StreamOption {
	return func(c *StreamConfig) {
		c.HeadMode = mode
	}
}

// WithEmitInitialHead sets whether the first observed head is emitted
func WithEmitInitialHead(emit bool) StreamOption {
	return func(c *StreamConfig) {
		c.EmitInitialHead = emit
	}
}

// WithFillGaps sets whether skipped block numbers are emitted
func WithFillGaps(fill bool) StreamOption {
	return func(c *StreamConfig) {
		c.FillGaps = fill
	}
}

// WithCopyEvents sets whether the splitters emit deep copies
func WithCopyEvents(copyEvents bool) StreamOption {
	return func(c *StreamConfig) {
		c.CopyEvents = copyEvents
	}
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) StreamOption {
	return func(c *StreamConfig) {
		c.Logger = logger
	}
}

// WithMetrics sets the metrics to record into
func WithMetrics(metrics *Metrics) StreamOption {
	return func(c *StreamConfig) {
		c.Metrics = metrics
	}
}
