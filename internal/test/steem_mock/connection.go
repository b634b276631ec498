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

// Package steem_mock provides an in-memory node connection for tests
package steem_mock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/gosteem/stream"
	"github.com/blinklabs-io/gosteem/transport"
	"github.com/goccy/go-json"
)

// ErrNoReply tells the connection not to answer a request
var ErrNoReply = errors.New("no reply")

// RPCError is returned by a HandlerFunc to answer with a server error
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Request is a decoded outbound request as seen by the mock node
type Request struct {
	Id     uint64
	APIId  int
	Method string
	Params json.RawMessage
	Raw    []byte
}

// HandlerFunc answers a request. Returning ErrNoReply leaves it unanswered,
// an *RPCError answers with a server error and any other error fails the
// Send call
type HandlerFunc func(req *Request) (any, error)

// Connection is an in-memory transport.Conn
type Connection struct {
	inbound     *transport.Inbound
	handler     HandlerFunc
	requestChan chan *Request
	errorChan   chan error
	doneChan    chan struct{}
	onceClose   sync.Once
	mu          sync.Mutex
	err         error
}

// NewConnection returns a new Connection. A nil handler leaves every request
// unanswered so the test can reply manually
func NewConnection(handler HandlerFunc) *Connection {
	return &Connection{
		inbound:     transport.NewInbound(),
		handler:     handler,
		requestChan: make(chan *Request, 1024),
		errorChan:   make(chan error, 1),
		doneChan:    make(chan struct{}),
	}
}

// Send decodes the request, records it and passes it to the handler
func (c *Connection) Send(ctx context.Context, data []byte) error {
	if err := c.Err(); err != nil {
		return err
	}
	select {
	case <-c.doneChan:
		return transport.ErrConnectionClosed
	default:
	}
	req, err := DecodeRequest(data)
	if err != nil {
		return err
	}
	c.requestChan <- req
	if c.handler == nil {
		return nil
	}
	result, err := c.handler(req)
	if err != nil {
		var rpcErr *RPCError
		switch {
		case errors.Is(err, ErrNoReply):
			return nil
		case errors.As(err, &rpcErr):
			return c.ReplyError(req.Id, rpcErr.Code, rpcErr.Message)
		default:
			return err
		}
	}
	return c.Reply(req.Id, result)
}

// Subscribe registers a handler for inbound messages
func (c *Connection) Subscribe(handler transport.MessageHandlerFunc) *stream.Subscription {
	return c.inbound.Subscribe(handler)
}

// Requests returns the channel of requests the connection received
func (c *Connection) Requests() <-chan *Request {
	return c.requestChan
}

// NextRequest waits for the next received request
func (c *Connection) NextRequest(timeout time.Duration) (*Request, error) {
	select {
	case req := <-c.requestChan:
		return req, nil
	case <-time.After(timeout):
		return nil, errors.New("timed out waiting for request")
	}
}

// Reply delivers a successful response
func (c *Connection) Reply(id uint64, result any) error {
	data, err := json.Marshal(
		map[string]any{
			"id":      id,
			"jsonrpc": "2.0",
			"result":  result,
		},
	)
	if err != nil {
		return err
	}
	c.Deliver(data)
	return nil
}

// ReplyError delivers an error response
func (c *Connection) ReplyError(id uint64, code int, message string) error {
	data, err := json.Marshal(
		map[string]any{
			"id":      id,
			"jsonrpc": "2.0",
			"error": map[string]any{
				"code":    code,
				"message": message,
			},
		},
	)
	if err != nil {
		return err
	}
	c.Deliver(data)
	return nil
}

// Deliver passes a raw inbound message to subscribers
func (c *Connection) Deliver(data []byte) {
	c.inbound.Deliver(data)
}

// Fail shuts the connection down with the provided error
func (c *Connection) Fail(err error) {
	c.shutdown(err)
}

func (c *Connection) ErrorChan() <-chan error {
	return c.errorChan
}

func (c *Connection) DoneChan() <-chan struct{} {
	return c.doneChan
}

func (c *Connection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close shuts the connection down
func (c *Connection) Close() error {
	c.shutdown(nil)
	return nil
}

func (c *Connection) shutdown(err error) {
	c.onceClose.Do(func() {
		c.mu.Lock()
		if err == nil {
			c.err = transport.ErrConnectionClosed
		} else {
			c.err = err
			c.errorChan <- err
		}
		c.mu.Unlock()
		close(c.doneChan)
	})
}

// DecodeRequest parses an outbound message in the "call" envelope
func DecodeRequest(data []byte) (*Request, error) {
	var msg struct {
		Id      uint64            `json:"id"`
		JsonRpc string            `json:"jsonrpc"`
		Method  string            `json:"method"`
		Params  []json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if msg.JsonRpc != "2.0" || msg.Method != "call" || len(msg.Params) != 3 {
		return nil, fmt.Errorf("unexpected request envelope: %s", data)
	}
	req := &Request{
		Id:     msg.Id,
		Params: msg.Params[2],
		Raw:    data,
	}
	if err := json.Unmarshal(msg.Params[0], &req.APIId); err != nil {
		return nil, fmt.Errorf("decode api id: %w", err)
	}
	if err := json.Unmarshal(msg.Params[1], &req.Method); err != nil {
		return nil, fmt.Errorf("decode method: %w", err)
	}
	return req, nil
}
