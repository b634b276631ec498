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

package steem

import (
	"github.com/blinklabs-io/gosteem/pipeline"
)

func (c *Client) streamOpts(opts []pipeline.StreamOption) []pipeline.StreamOption {
	ret := []pipeline.StreamOption{pipeline.WithLogger(c.logger)}
	ret = append(ret, c.streamOptions...)
	return append(ret, opts...)
}

// HeadWatcher returns a stream of new block numbers
func (c *Client) HeadWatcher(opts ...pipeline.StreamOption) *pipeline.HeadWatcher {
	return pipeline.NewHeadWatcher(c, c.streamOpts(opts)...)
}

// BlockStream returns a stream of new blocks
func (c *Client) BlockStream(opts ...pipeline.StreamOption) *pipeline.BlockFetcher {
	return c.blockStream(c.streamOpts(opts))
}

// TransactionStream returns a stream of the transactions of new blocks
func (c *Client) TransactionStream(opts ...pipeline.StreamOption) *pipeline.TransactionSplitter {
	return c.transactionStream(c.streamOpts(opts))
}

// OperationStream returns a stream of the operations of new blocks
func (c *Client) OperationStream(opts ...pipeline.StreamOption) *pipeline.OperationSplitter {
	opts = c.streamOpts(opts)
	return pipeline.NewOperationSplitter(c.transactionStream(opts), opts...)
}

func (c *Client) blockStream(opts []pipeline.StreamOption) *pipeline.BlockFetcher {
	return pipeline.NewBlockFetcher(c, pipeline.NewHeadWatcher(c, opts...), opts...)
}

func (c *Client) transactionStream(opts []pipeline.StreamOption) *pipeline.TransactionSplitter {
	return pipeline.NewTransactionSplitter(c.blockStream(opts), opts...)
}
