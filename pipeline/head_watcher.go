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
	"context"
	"fmt"
	"time"

	"github.com/blinklabs-io/gosteem/log"
	"github.com/blinklabs-io/gosteem/protocol"
	"github.com/blinklabs-io/gosteem/protocol/common"
	"github.com/blinklabs-io/gosteem/stream"
	"github.com/goccy/go-json"
)

// HeadWatcher polls the chain head and emits each new block number
type HeadWatcher struct {
	querier Querier
	config  StreamConfig
	logger  log.Logger
	metrics *layerMetrics
}

// NewHeadWatcher returns a HeadWatcher querying through querier
func NewHeadWatcher(querier Querier, opts ...StreamOption) *HeadWatcher {
	config := NewStreamConfig(opts...)
	return &HeadWatcher{
		querier: querier,
		config:  config,
		logger:  config.Logger.With("component", "pipeline", "layer", LayerHeadWatcher),
		metrics: newLayerMetrics(LayerHeadWatcher, config.Metrics),
	}
}

// Stats returns the layer statistics
func (w *HeadWatcher) Stats() LayerStats {
	return w.metrics.Stats()
}

// Subscribe starts polling. The first observation sets the baseline and is
// only emitted with WithEmitInitialHead. Afterwards every observation that
// differs from the last one is emitted. A failed query ends the stream with a
// *StreamError; there is no retry
func (w *HeadWatcher) Subscribe(handler Handler[uint64]) *stream.Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	sub := stream.NewSubscription(cancel)
	w.metrics.recordStart()
	sub.OnCancel(w.metrics.recordStop)
	go w.run(ctx, sub, handler)
	return sub
}

func (w *HeadWatcher) run(ctx context.Context, sub *stream.Subscription, handler Handler[uint64]) {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()
	var lastSeen uint64
	seen := false
	for {
		blockNum, err := w.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.metrics.recordError()
			w.logger.Error("failed to query chain head", "error", err)
			sub.Unsubscribe()
			handler.fail(&StreamError{Layer: LayerHeadWatcher, Err: err})
			return
		}
		switch {
		case !seen:
			seen = true
			lastSeen = blockNum
			w.logger.Debug("observed initial chain head", "block_num", blockNum, "mode", w.config.HeadMode.String())
			if w.config.EmitInitialHead && !w.emit(sub, handler, blockNum) {
				return
			}
		case blockNum != lastSeen:
			if w.config.FillGaps && blockNum > lastSeen+1 {
				for gapNum := lastSeen + 1; gapNum < blockNum; gapNum++ {
					if !w.emit(sub, handler, gapNum) {
						return
					}
				}
			}
			lastSeen = blockNum
			if !w.emit(sub, handler, blockNum) {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// emit delivers one block number and reports whether the stream is still live
func (w *HeadWatcher) emit(sub *stream.Subscription, handler Handler[uint64], blockNum uint64) bool {
	if sub.Cancelled() {
		return false
	}
	w.metrics.recordEvent()
	handler.emit(blockNum)
	return !sub.Cancelled()
}

func (w *HeadWatcher) poll(ctx context.Context) (uint64, error) {
	start := time.Now()
	result, err := w.querier.Send(ctx, protocol.APIDatabase, "get_dynamic_global_properties")
	w.metrics.recordQuery(time.Since(start))
	if err != nil {
		return 0, err
	}
	var props common.DynamicGlobalProperties
	if err := json.Unmarshal(result, &props); err != nil {
		return 0, fmt.Errorf("decode dynamic global properties: %w", err)
	}
	if w.config.HeadMode == HeadModeIrreversible {
		return props.LastIrreversibleBlockNum, nil
	}
	return props.HeadBlockNumber, nil
}
