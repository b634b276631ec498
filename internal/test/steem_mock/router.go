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

package steem_mock

import (
	"fmt"
	"sync"

	"github.com/goccy/go-json"
)

// RouteFunc answers one API method
type RouteFunc func(params json.RawMessage) (any, error)

// Router dispatches requests to routes keyed by "api.method"
type Router struct {
	mu     sync.Mutex
	apis   map[int]string
	routes map[string]RouteFunc
	calls  map[string]int
}

// NewRouter returns a Router that resolves API ids with the provided mapping
func NewRouter(apiIds map[string]int) *Router {
	r := &Router{
		apis:   make(map[int]string),
		routes: make(map[string]RouteFunc),
		calls:  make(map[string]int),
	}
	for name, id := range apiIds {
		r.apis[id] = name
	}
	return r
}

// Handle registers a route
func (r *Router) Handle(api string, method string, route RouteFunc) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[api+"."+method] = route
	return r
}

// Calls returns how many requests reached the route
func (r *Router) Calls(api string, method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[api+"."+method]
}

// HandlerFunc returns the router as a connection handler
func (r *Router) HandlerFunc() HandlerFunc {
	return func(req *Request) (any, error) {
		r.mu.Lock()
		api, ok := r.apis[req.APIId]
		if !ok {
			r.mu.Unlock()
			return nil, &RPCError{
				Code:    -32000,
				Message: fmt.Sprintf("unknown api id %d", req.APIId),
			}
		}
		key := api + "." + req.Method
		route, ok := r.routes[key]
		r.calls[key]++
		r.mu.Unlock()
		if !ok {
			return nil, &RPCError{
				Code:    -32601,
				Message: "method not found: " + key,
			}
		}
		return route(req.Params)
	}
}

// ConversationEntry is one expected request and the answer to it
type ConversationEntry struct {
	APIId  int
	Method string
	// Result is sent back when Error is nil
	Result any
	Error  *RPCError
	// NoReply leaves the request unanswered
	NoReply bool
}

// NewConversation returns a handler that expects requests in the order of the
// provided entries
func NewConversation(entries []ConversationEntry) HandlerFunc {
	var mu sync.Mutex
	idx := 0
	return func(req *Request) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		if idx >= len(entries) {
			return nil, fmt.Errorf("unexpected request after end of conversation: %s", req.Raw)
		}
		entry := entries[idx]
		idx++
		if entry.APIId != req.APIId || entry.Method != req.Method {
			return nil, fmt.Errorf(
				"request did not match expected value: expected %d/%s, got %d/%s",
				entry.APIId,
				entry.Method,
				req.APIId,
				req.Method,
			)
		}
		switch {
		case entry.NoReply:
			return nil, ErrNoReply
		case entry.Error != nil:
			return nil, entry.Error
		}
		return entry.Result, nil
	}
}
