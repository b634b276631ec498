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

// Package protocol implements the request correlation and flow-control engine
// used to talk to a node over a single persistent connection.
//
// Every call is a JSON-RPC "call" request naming a numeric API id, a method
// and positional params. Responses may arrive in any order and are matched
// back to their caller by request id.
package protocol

import (
	"sync"
)

const (
	// MethodCall is the JSON-RPC method used for every API call
	MethodCall = "call"
	// JsonRpcVersion is sent in the jsonrpc field of every request
	JsonRpcVersion = "2.0"

	// DefaultMaxInFlight is the number of requests that may await a response at once
	DefaultMaxInFlight = 10
	// DefaultSendQueueSize is the number of requests that may wait for the write loop
	DefaultSendQueueSize = 64
	// DefaultInitialRequestId is the first request id handed out
	DefaultInitialRequestId uint64 = 1
)

// Well-known API names
const (
	APIDatabase         = "database_api"
	APILogin            = "login_api"
	APINetworkBroadcast = "network_broadcast_api"
	APIFollow           = "follow_api"
	APIMarketHistory    = "market_history_api"
)

// DefaultAPIIds returns the API ids a node uses before any lookup
func DefaultAPIIds() map[string]int {
	return map[string]int{
		APIDatabase: 0,
		APILogin:    1,
	}
}

// APIRegistry maps API names to the numeric ids the node assigned them
type APIRegistry struct {
	mu  sync.RWMutex
	ids map[string]int
}

// NewAPIRegistry returns a registry populated with the provided ids
func NewAPIRegistry(ids map[string]int) *APIRegistry {
	r := &APIRegistry{
		ids: make(map[string]int, len(ids)),
	}
	for name, id := range ids {
		r.ids[name] = id
	}
	return r
}

// Resolve returns the id for an API name
func (r *APIRegistry) Resolve(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ids[name]
	return id, ok
}

// Set records the id for an API name
func (r *APIRegistry) Set(name string, id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[name] = id
}

// Unset forgets the id for an API name, leaving it unresolved
func (r *APIRegistry) Unset(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ids, name)
}

// Names returns a copy of the current name to id mapping
func (r *APIRegistry) Names() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := make(map[string]int, len(r.ids))
	for name, id := range r.ids {
		ret[name] = id
	}
	return ret
}
