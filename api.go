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
	"bytes"
	"context"
	"fmt"

	"github.com/blinklabs-io/gosteem/pipeline"
	"github.com/blinklabs-io/gosteem/protocol"
	"github.com/blinklabs-io/gosteem/protocol/common"
	"github.com/goccy/go-json"
)

// Call invokes a known method by name with positional params
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	desc, ok := MethodByName(method)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	if len(params) != len(desc.Params) {
		return nil, fmt.Errorf(
			"%s expects %d params, got %d",
			desc,
			len(desc.Params),
			len(params),
		)
	}
	return c.Send(ctx, desc.API, desc.Name, params...)
}

// CallNamed invokes a known method by name with params given by name
func (c *Client) CallNamed(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	desc, ok := MethodByName(method)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	positional, err := desc.NamedParams(params)
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, desc.API, desc.Name, positional...)
}

// CallInto calls api.method and decodes the result into dest
func (c *Client) CallInto(ctx context.Context, dest any, api string, method string, params ...any) error {
	result, err := c.Send(ctx, api, method, params...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(result, dest); err != nil {
		return fmt.Errorf("decode %s.%s result: %w", api, method, err)
	}
	return nil
}

// GetDynamicGlobalProperties returns the current chain state
func (c *Client) GetDynamicGlobalProperties(ctx context.Context) (*common.DynamicGlobalProperties, error) {
	var ret common.DynamicGlobalProperties
	if err := c.CallInto(ctx, &ret, protocol.APIDatabase, "get_dynamic_global_properties"); err != nil {
		return nil, err
	}
	return &ret, nil
}

// GetConfig returns the node's compile-time configuration
func (c *Client) GetConfig(ctx context.Context) (common.Config, error) {
	var ret common.Config
	if err := c.CallInto(ctx, &ret, protocol.APIDatabase, "get_config"); err != nil {
		return nil, err
	}
	return ret, nil
}

// GetBlock returns the block with the given number. A block the node does not
// have yields pipeline.ErrBlockNotFound
func (c *Client) GetBlock(ctx context.Context, blockNum uint64) (*common.Block, error) {
	result, err := c.Send(ctx, protocol.APIDatabase, "get_block", blockNum)
	if err != nil {
		return nil, err
	}
	if isNull(result) {
		return nil, fmt.Errorf("block %d: %w", blockNum, pipeline.ErrBlockNotFound)
	}
	var ret common.Block
	if err := json.Unmarshal(result, &ret); err != nil {
		return nil, fmt.Errorf("decode block %d: %w", blockNum, err)
	}
	return &ret, nil
}

// GetBlockHeader returns the header of the block with the given number
func (c *Client) GetBlockHeader(ctx context.Context, blockNum uint64) (*common.BlockHeader, error) {
	result, err := c.Send(ctx, protocol.APIDatabase, "get_block_header", blockNum)
	if err != nil {
		return nil, err
	}
	if isNull(result) {
		return nil, fmt.Errorf("block %d: %w", blockNum, pipeline.ErrBlockNotFound)
	}
	var ret common.BlockHeader
	if err := json.Unmarshal(result, &ret); err != nil {
		return nil, fmt.Errorf("decode block header %d: %w", blockNum, err)
	}
	return &ret, nil
}

// GetAccounts returns the accounts with the given names. Unknown names are omitted
func (c *Client) GetAccounts(ctx context.Context, names ...string) ([]common.Account, error) {
	var ret []common.Account
	if err := c.CallInto(ctx, &ret, protocol.APIDatabase, "get_accounts", names); err != nil {
		return nil, err
	}
	return ret, nil
}

// GetHardforkVersion returns the current hardfork version, such as "0.19.0"
func (c *Client) GetHardforkVersion(ctx context.Context) (string, error) {
	var ret string
	if err := c.CallInto(ctx, &ret, protocol.APIDatabase, "get_hardfork_version"); err != nil {
		return "", err
	}
	return ret, nil
}

// BroadcastTransaction submits a signed transaction
func (c *Client) BroadcastTransaction(ctx context.Context, tx *common.Transaction) error {
	_, err := c.Send(ctx, protocol.APINetworkBroadcast, "broadcast_transaction", tx)
	return err
}

func isNull(data json.RawMessage) bool {
	data = bytes.TrimSpace(data)
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}
