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

// Package pipeline derives streams of new blocks, transactions and operations
// from repeated chain state queries.
//
// Each layer consumes the layer beneath it:
//
//	HeadWatcher -> BlockFetcher -> TransactionSplitter -> OperationSplitter
//
// Every call to Subscribe starts a fresh, independent stream. Events of one
// stream are delivered sequentially from that stream's polling goroutine.
// Cancelling a subscription also cancels the subscriptions it created on the
// layers beneath it, never the ones above it.
package pipeline

import (
	"context"

	"github.com/blinklabs-io/gosteem/stream"
	"github.com/goccy/go-json"
)

// Layer names used in errors, logs and metrics
const (
	LayerHeadWatcher         = "head_watcher"
	LayerBlockFetcher        = "block_fetcher"
	LayerTransactionSplitter = "transaction_splitter"
	LayerOperationSplitter   = "operation_splitter"
)

// Querier issues one API call and waits for its result. *protocol.Dispatcher
// and *steem.Client satisfy it
type Querier interface {
	Send(ctx context.Context, api string, method string, params ...any) (json.RawMessage, error)
}

// Handler receives the events and the terminal error of one stream
type Handler[T any] struct {
	OnEvent func(T)
	// OnError is called at most once, after which the stream delivers nothing
	OnError func(error)
}

func (h Handler[T]) emit(evt T) {
	if h.OnEvent != nil {
		h.OnEvent(evt)
	}
}

func (h Handler[T]) fail(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

// Source is a stream layer
type Source[T any] interface {
	// Subscribe starts a new stream delivering to handler
	Subscribe(handler Handler[T]) *stream.Subscription
}

// SourceFunc adapts a function to the Source interface
type SourceFunc[T any] func(handler Handler[T]) *stream.Subscription

func (f SourceFunc[T]) Subscribe(handler Handler[T]) *stream.Subscription {
	return f(handler)
}

// chain subscribes to a lower layer on behalf of sub. Errors from below end
// sub, which in turn cancels the lower stream, and are passed up unchanged
func chain[L any, T any](
	sub *stream.Subscription,
	lower Source[L],
	handler Handler[T],
	onEvent func(L),
) {
	lowerSub := lower.Subscribe(
		Handler[L]{
			OnEvent: func(evt L) {
				if sub.Cancelled() {
					return
				}
				onEvent(evt)
			},
			OnError: func(err error) {
				if sub.Cancelled() {
					return
				}
				sub.Unsubscribe()
				handler.fail(err)
			},
		},
	)
	sub.Attach(lowerSub)
}
