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
	"github.com/blinklabs-io/gosteem/log"
	"github.com/blinklabs-io/gosteem/stream"
)

// TransactionSplitter emits every transaction of every block its source emits
type TransactionSplitter struct {
	source  Source[*BlockEvent]
	config  StreamConfig
	logger  log.Logger
	metrics *layerMetrics
}

// NewTransactionSplitter returns a TransactionSplitter consuming source
func NewTransactionSplitter(source Source[*BlockEvent], opts ...StreamOption) *TransactionSplitter {
	config := NewStreamConfig(opts...)
	return &TransactionSplitter{
		source:  source,
		config:  config,
		logger:  config.Logger.With("component", "pipeline", "layer", LayerTransactionSplitter),
		metrics: newLayerMetrics(LayerTransactionSplitter, config.Metrics),
	}
}

// Stats returns the layer statistics
func (s *TransactionSplitter) Stats() LayerStats {
	return s.metrics.Stats()
}

// Subscribe starts a new stream of transactions
func (s *TransactionSplitter) Subscribe(handler Handler[*TransactionEvent]) *stream.Subscription {
	sub := stream.NewSubscription()
	s.metrics.recordStart()
	sub.OnCancel(s.metrics.recordStop)
	chain(sub, s.source, handler, func(evt *BlockEvent) {
		for idx := range evt.Block.Transactions {
			if sub.Cancelled() {
				return
			}
			tx := &evt.Block.Transactions[idx]
			if s.config.CopyEvents {
				var err error
				if tx, err = deepCopy(tx); err != nil {
					s.metrics.recordError()
					sub.Unsubscribe()
					handler.fail(&StreamError{Layer: LayerTransactionSplitter, BlockNum: evt.BlockNum, Err: err})
					return
				}
			}
			s.metrics.recordEvent()
			handler.emit(
				&TransactionEvent{
					BlockNum:      evt.BlockNum,
					Index:         idx,
					TransactionId: evt.Block.TransactionId(idx),
					Transaction:   tx,
				},
			)
		}
	})
	return sub
}

// OperationSplitter emits every operation of every transaction its source emits
type OperationSplitter struct {
	source  Source[*TransactionEvent]
	config  StreamConfig
	logger  log.Logger
	metrics *layerMetrics
}

// NewOperationSplitter returns an OperationSplitter consuming source
func NewOperationSplitter(source Source[*TransactionEvent], opts ...StreamOption) *OperationSplitter {
	config := NewStreamConfig(opts...)
	return &OperationSplitter{
		source:  source,
		config:  config,
		logger:  config.Logger.With("component", "pipeline", "layer", LayerOperationSplitter),
		metrics: newLayerMetrics(LayerOperationSplitter, config.Metrics),
	}
}

// Stats returns the layer statistics
func (s *OperationSplitter) Stats() LayerStats {
	return s.metrics.Stats()
}

// Subscribe starts a new stream of operations
func (s *OperationSplitter) Subscribe(handler Handler[*OperationEvent]) *stream.Subscription {
	sub := stream.NewSubscription()
	s.metrics.recordStart()
	sub.OnCancel(s.metrics.recordStop)
	chain(sub, s.source, handler, func(evt *TransactionEvent) {
		for idx := range evt.Transaction.Operations {
			if sub.Cancelled() {
				return
			}
			op := &evt.Transaction.Operations[idx]
			if s.config.CopyEvents {
				var err error
				if op, err = deepCopy(op); err != nil {
					s.metrics.recordError()
					sub.Unsubscribe()
					handler.fail(&StreamError{Layer: LayerOperationSplitter, BlockNum: evt.BlockNum, Err: err})
					return
				}
			}
			s.metrics.recordEvent()
			handler.emit(
				&OperationEvent{
					BlockNum:      evt.BlockNum,
					TxIndex:       evt.Index,
					OpIndex:       idx,
					TransactionId: evt.TransactionId,
					Operation:     op,
				},
			)
		}
	})
	return sub
}
