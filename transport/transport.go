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

// Package transport provides the persistent message connection used by the
// request dispatcher.
package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/blinklabs-io/gosteem/stream"
)

// ErrConnectionClosed is returned when using a connection that has been shut down
var ErrConnectionClosed = errors.New("connection closed")

// MessageHandlerFunc receives one inbound message. Handlers are called from the
// connection's read loop and must not block for long
type MessageHandlerFunc func(data []byte)

// Conn is a single logical duplex channel to the server
type Conn interface {
	// Send transmits one raw message. It is safe for concurrent use, and
	// messages are written in the order Send acquires the connection
	Send(ctx context.Context, data []byte) error
	// Subscribe registers a handler for every inbound message
	Subscribe(handler MessageHandlerFunc) *stream.Subscription
	// ErrorChan returns the channel for asynchronous connection errors
	ErrorChan() <-chan error
	// DoneChan returns a channel that is closed once the connection is shut down
	DoneChan() <-chan struct{}
	// Err returns the reason the connection shut down, or nil while it is open
	Err() error
	// Close shuts down the connection
	Close() error
}

// Inbound fans inbound messages out to registered handlers
type Inbound struct {
	mu       sync.RWMutex
	nextId   uint64
	handlers map[uint64]MessageHandlerFunc
	order    []uint64
}

// NewInbound returns an empty handler registry
func NewInbound() *Inbound {
	return &Inbound{
		handlers: make(map[uint64]MessageHandlerFunc),
	}
}

// Subscribe registers a handler. The returned subscription removes it again
func (i *Inbound) Subscribe(handler MessageHandlerFunc) *stream.Subscription {
	i.mu.Lock()
	i.nextId++
	id := i.nextId
	i.handlers[id] = handler
	i.order = append(i.order, id)
	i.mu.Unlock()
	return stream.NewSubscription(func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		delete(i.handlers, id)
		for idx, tmpId := range i.order {
			if tmpId == id {
				i.order = append(i.order[:idx], i.order[idx+1:]...)
				break
			}
		}
	})
}

// Deliver passes a message to every handler in registration order
func (i *Inbound) Deliver(data []byte) {
	i.mu.RLock()
	handlers := make([]MessageHandlerFunc, 0, len(i.order))
	for _, id := range i.order {
		handlers = append(handlers, i.handlers[id])
	}
	i.mu.RUnlock()
	for _, handler := range handlers {
		handler(data)
	}
}

// Len returns the number of registered handlers
func (i *Inbound) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.handlers)
}
