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
	"context"
	"fmt"

	"github.com/blinklabs-io/gosteem/protocol"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

// DefaultBootstrapAPIs returns the API names resolved by Bootstrap by default
func DefaultBootstrapAPIs() []string {
	return []string{
		protocol.APINetworkBroadcast,
		protocol.APIFollow,
		protocol.APIMarketHistory,
	}
}

// Bootstrap resolves the id of every configured API name with
// login_api.get_api_by_name. A name the node does not serve is left
// unresolved and calls under it fail with protocol.ErrUnresolvedAPI
func (c *Client) Bootstrap(ctx context.Context) error {
	d, err := c.currentDispatcher()
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range c.bootstrapAPIs {
		g.Go(func() error {
			id, err := c.GetApiByName(gctx, name)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", name, err)
			}
			if id == nil {
				d.APIs().Unset(name)
				c.logger.Info("api is not available on node", "api", name)
				return nil
			}
			d.APIs().Set(name, *id)
			c.logger.Debug("resolved api id", "api", name, "id", *id)
			return nil
		})
	}
	return g.Wait()
}

// GetApiByName returns the id the node assigned to an API, or nil if the node
// does not serve it
func (c *Client) GetApiByName(ctx context.Context, name string) (*int, error) {
	result, err := c.Send(ctx, protocol.APILogin, "get_api_by_name", name)
	if err != nil {
		return nil, err
	}
	var id *int
	if err := json.Unmarshal(result, &id); err != nil {
		return nil, fmt.Errorf("decode api id: %w", err)
	}
	return id, nil
}
