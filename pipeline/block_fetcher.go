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
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/blinklabs-io/gosteem/log"
	"github.com/blinklabs-io/gosteem/protocol"
	"github.com/blinklabs-io/gosteem/protocol/common"
	"github.com/blinklabs-io/gosteem/stream"
	"github.com/goccy/go-json"
)

// BlockFetcher fetches the block body for every block number its source emits
type BlockFetcher struct {
	querier Querier
	source  Source[uint64]
	config  StreamConfig
	logger  log.Logger
	metrics *layerMetrics
}

// NewBlockFetcher returns a BlockFetcher consuming source
func NewBlockFetcher(querier Querier, source Source[uint64], opts ...StreamOption) *BlockFetcher {
	config := NewStreamConfig(opts...)
	return &BlockFetcher{
		querier: querier,
		source:  source,
		config:  config,
		logger:  config.Logger.With("component", "pipeline", "layer", LayerBlockFetcher),
		metrics: newLayerMetrics(LayerBlockFetcher, config.Metrics),
	}
}

// Stats returns the layer statistics
func (f *BlockFetcher) Stats() LayerStats {
	return f.metrics.Stats()
}

// Subscribe starts a new stream of blocks. A block number equal to the one
// fetched last is not fetched again
func (f *BlockFetcher) Subscribe(handler Handler[*BlockEvent]) *stream.Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	sub := stream.NewSubscription(cancel)
	f.metrics.recordStart()
	sub.OnCancel(f.metrics.recordStop)
	// Only touched from the source stream's goroutine
	var lastFetched uint64
	fetched := false
	chain(sub, f.source, handler, func(blockNum uint64) {
		if fetched && blockNum == lastFetched {
			f.logger.Debug("skipping duplicate block number", "block_num", blockNum)
			return
		}
		block, err := f.fetch(ctx, blockNum)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.metrics.recordError()
			f.logger.Error("failed to fetch block", "block_num", blockNum, "error", err)
			sub.Unsubscribe()
			handler.fail(&StreamError{Layer: LayerBlockFetcher, BlockNum: blockNum, Err: err})
			return
		}
		lastFetched = blockNum
		fetched = true
		if sub.Cancelled() {
			return
		}
		f.metrics.recordEvent()
		handler.emit(&BlockEvent{BlockNum: blockNum, Block: block})
	})
	return sub
}

func (f *BlockFetcher) fetch(ctx context.Context, blockNum uint64) (*common.Block, error) {
	start := time.Now()
	result, err := f.querier.Send(ctx, protocol.APIDatabase, "get_block", blockNum)
	f.metrics.recordQuery(time.Since(start))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(result)) == 0 || bytes.Equal(bytes.TrimSpace(result), []byte("null")) {
		return nil, ErrBlockNotFound
	}
	var block common.Block
	if err := json.Unmarshal(result, &block); err != nil {
		return nil, fmt.Errorf("decode block: %w", err)
	}
	return &block, nil
}
