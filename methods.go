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
	"errors"
	"fmt"

	"github.com/blinklabs-io/gosteem/protocol"
)

// ErrUnknownMethod is returned when calling a method without a descriptor
var ErrUnknownMethod = errors.New("unknown method")

// Method describes one node API method
type Method struct {
	API    string
	Name   string
	Params []string
}

func (m Method) String() string {
	return m.API + "." + m.Name
}

// Methods lists the API methods known to the client
var Methods = []Method{
	// database_api
	{API: protocol.APIDatabase, Name: "get_trending_tags", Params: []string{"after_tag", "limit"}},
	{API: protocol.APIDatabase, Name: "get_block_header", Params: []string{"block_num"}},
	{API: protocol.APIDatabase, Name: "get_block", Params: []string{"block_num"}},
	{API: protocol.APIDatabase, Name: "get_ops_in_block", Params: []string{"block_num", "only_virtual"}},
	{API: protocol.APIDatabase, Name: "get_state", Params: []string{"path"}},
	{API: protocol.APIDatabase, Name: "get_config"},
	{API: protocol.APIDatabase, Name: "get_dynamic_global_properties"},
	{API: protocol.APIDatabase, Name: "get_chain_properties"},
	{API: protocol.APIDatabase, Name: "get_feed_history"},
	{API: protocol.APIDatabase, Name: "get_current_median_history_price"},
	{API: protocol.APIDatabase, Name: "get_hardfork_version"},
	{API: protocol.APIDatabase, Name: "get_next_scheduled_hardfork"},
	{API: protocol.APIDatabase, Name: "get_accounts", Params: []string{"names"}},
	{API: protocol.APIDatabase, Name: "get_account_count"},
	{API: protocol.APIDatabase, Name: "get_account_history", Params: []string{"account", "from", "limit"}},
	{API: protocol.APIDatabase, Name: "get_transaction_hex", Params: []string{"trx"}},
	{API: protocol.APIDatabase, Name: "get_transaction", Params: []string{"trx_id"}},
	{API: protocol.APIDatabase, Name: "get_witnesses", Params: []string{"witness_ids"}},
	{API: protocol.APIDatabase, Name: "get_witness_by_account", Params: []string{"account_name"}},
	{API: protocol.APIDatabase, Name: "get_witness_count"},
	{API: protocol.APIDatabase, Name: "get_active_witnesses"},
	{API: protocol.APIDatabase, Name: "get_content", Params: []string{"author", "permlink"}},
	{API: protocol.APIDatabase, Name: "get_content_replies", Params: []string{"author", "permlink"}},
	{API: protocol.APIDatabase, Name: "lookup_accounts", Params: []string{"lower_bound_name", "limit"}},
	// login_api
	{API: protocol.APILogin, Name: "login", Params: []string{"username", "password"}},
	{API: protocol.APILogin, Name: "get_api_by_name", Params: []string{"api_name"}},
	{API: protocol.APILogin, Name: "get_version"},
	// follow_api
	{API: protocol.APIFollow, Name: "get_followers", Params: []string{"following", "start_follower", "follow_type", "limit"}},
	{API: protocol.APIFollow, Name: "get_following", Params: []string{"follower", "start_following", "follow_type", "limit"}},
	{API: protocol.APIFollow, Name: "get_follow_count", Params: []string{"account"}},
	// network_broadcast_api
	{API: protocol.APINetworkBroadcast, Name: "broadcast_transaction", Params: []string{"trx"}},
	{API: protocol.APINetworkBroadcast, Name: "broadcast_transaction_synchronous", Params: []string{"trx"}},
	{API: protocol.APINetworkBroadcast, Name: "broadcast_block", Params: []string{"b"}},
	// market_history_api
	{API: protocol.APIMarketHistory, Name: "get_ticker"},
	{API: protocol.APIMarketHistory, Name: "get_volume"},
	{API: protocol.APIMarketHistory, Name: "get_order_book", Params: []string{"limit"}},
	{API: protocol.APIMarketHistory, Name: "get_trade_history", Params: []string{"start", "end", "limit"}},
	{API: protocol.APIMarketHistory, Name: "get_recent_trades", Params: []string{"limit"}},
}

var methodsByName = func() map[string]Method {
	ret := make(map[string]Method, len(Methods))
	for _, method := range Methods {
		ret[method.Name] = method
	}
	return ret
}()

// MethodByName returns the descriptor for a method name
func MethodByName(name string) (Method, bool) {
	method, ok := methodsByName[name]
	return method, ok
}

// NamedParams orders named params as the method expects them. Missing names
// are sent as null
func (m Method) NamedParams(named map[string]any) ([]any, error) {
	for name := range named {
		found := false
		for _, param := range m.Params {
			if param == name {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%s has no parameter %q", m, name)
		}
	}
	ret := make([]any, len(m.Params))
	for idx, param := range m.Params {
		ret[idx] = named[param]
	}
	return ret, nil
}
