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

// Package steem implements a client for Steem-style blockchain nodes that
// speak JSON-RPC over a single persistent connection.
//
// A Client owns one connection and one request dispatcher. Requests may be
// issued concurrently; at most a fixed number await a response at any time and
// responses are matched back to their callers by request id. The stream
// constructors build polling pipelines that follow the chain head and emit new
// blocks, transactions and operations.
//
// This package is the main entry point into this library. The other packages can
// be used outside of this one, but it's not a primary design goal.
package steem

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/gosteem/log"
	"github.com/blinklabs-io/gosteem/pipeline"
	"github.com/blinklabs-io/gosteem/protocol"
	"github.com/blinklabs-io/gosteem/transport"
	"github.com/goccy/go-json"
)

var (
	// ErrNotConnected is returned when issuing a request before a connection exists
	ErrNotConnected = errors.New("client is not connected")
	// ErrNoURL is returned when dialing without a configured URL
	ErrNoURL = errors.New("no node URL configured")
	// ErrClientClosed is returned when using a closed client
	ErrClientClosed = errors.New("client is closed")
)

// DialFunc opens a connection to a node
type DialFunc func(ctx context.Context, url string) (transport.Conn, error)

// Client is a connection to a node
type Client struct {
	url              string
	dialFunc         DialFunc
	wsOptions        []transport.WebSocketOptionFunc
	apiIds           map[string]int
	bootstrap        bool
	bootstrapAPIs    []string
	initialRequestId uint64
	maxInFlight      int
	requestTimeout   time.Duration
	logger           log.Logger
	metrics          *protocol.Metrics
	streamOptions    []pipeline.StreamOption
	errorChan        chan error
	doneChan         chan struct{}
	onceClose        sync.Once
	waitGroup        sync.WaitGroup
	// mu guards the current connection and dispatcher, which Reconnect replaces
	mu         sync.RWMutex
	conn       transport.Conn
	dispatcher *protocol.Dispatcher
}

// NewClient returns a new Client with the specified options. If a connection
// is provided, requests may be issued right away; otherwise call Dial
func NewClient(options ...ClientOptionFunc) (*Client, error) {
	c := &Client{
		bootstrap:     true,
		bootstrapAPIs: DefaultBootstrapAPIs(),
		apiIds:        protocol.DefaultAPIIds(),
		doneChan:      make(chan struct{}),
	}
	// Apply provided options functions
	for _, option := range options {
		option(c)
	}
	if c.logger == nil {
		c.logger = log.NewNopLogger()
	}
	if c.metrics == nil {
		c.metrics = protocol.NopMetrics()
	}
	if c.errorChan == nil {
		c.errorChan = make(chan error, 10)
	}
	if c.dialFunc == nil {
		c.dialFunc = c.dialWebSocket
	}
	if c.conn != nil {
		c.setupConnection(c.conn)
	}
	return c, nil
}

// Connect returns a Client that is dialed and bootstrapped
func Connect(ctx context.Context, options ...ClientOptionFunc) (*Client, error) {
	c, err := NewClient(options...)
	if err != nil {
		return nil, err
	}
	if err := c.Dial(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// URL returns the configured node URL
func (c *Client) URL() string {
	return c.url
}

// ErrorChan returns the channel for asynchronous errors, such as losing the
// connection to the node
func (c *Client) ErrorChan() chan error {
	return c.errorChan
}

// Dispatcher returns the request dispatcher of the current connection
func (c *Client) Dispatcher() *protocol.Dispatcher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dispatcher
}

// Dial connects to the configured URL and resolves API ids, unless
// bootstrapping was disabled. An error is returned if a connection already exists
func (c *Client) Dial(ctx context.Context) error {
	if c.isClosed() {
		return ErrClientClosed
	}
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return errors.New("a connection was already established")
	}
	if err := c.dialLocked(ctx); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()
	return c.maybeBootstrap(ctx)
}

// Reconnect discards the current connection, failing its pending requests,
// then dials again and resolves API ids
func (c *Client) Reconnect(ctx context.Context) error {
	if c.isClosed() {
		return ErrClientClosed
	}
	c.mu.Lock()
	c.teardownLocked()
	if err := c.dialLocked(ctx); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()
	c.logger.Info("reconnected", "url", c.url)
	return c.maybeBootstrap(ctx)
}

// Close shuts down the connection. Pending requests fail with a transport error
func (c *Client) Close() error {
	var err error
	c.onceClose.Do(func() {
		// Close doneChan to signify that we're shutting down
		close(c.doneChan)
		c.mu.Lock()
		err = c.teardownLocked()
		c.mu.Unlock()
		// Wait for other goroutines to finish
		c.waitGroup.Wait()
		close(c.errorChan)
	})
	return err
}

// Send calls api.method with positional params and waits for the result
func (c *Client) Send(ctx context.Context, api string, method string, params ...any) (json.RawMessage, error) {
	d, err := c.currentDispatcher()
	if err != nil {
		return nil, err
	}
	return d.Send(ctx, api, method, params...)
}

// SendRequest sends a request, which may carry an explicit id, and waits for the result
func (c *Client) SendRequest(ctx context.Context, req *protocol.Request) (json.RawMessage, error) {
	d, err := c.currentDispatcher()
	if err != nil {
		return nil, err
	}
	return d.SendRequest(ctx, req)
}

// Go starts a request without waiting for it. See protocol.Dispatcher.Go
func (c *Client) Go(ctx context.Context, req *protocol.Request, done chan *protocol.Call) *protocol.Call {
	d, err := c.currentDispatcher()
	if err != nil {
		if done == nil {
			done = make(chan *protocol.Call, 1)
		}
		call := &protocol.Call{Request: req, Error: err, Done: done}
		call.Done <- call
		return call
	}
	return d.Go(ctx, req, done)
}

// Stats returns the dispatcher statistics of the current connection
func (c *Client) Stats() protocol.DispatcherStats {
	d, err := c.currentDispatcher()
	if err != nil {
		return protocol.DispatcherStats{}
	}
	return d.Stats()
}

func (c *Client) currentDispatcher() (*protocol.Dispatcher, error) {
	if c.isClosed() {
		return nil, ErrClientClosed
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.dispatcher == nil {
		return nil, ErrNotConnected
	}
	return c.dispatcher, nil
}

func (c *Client) isClosed() bool {
	select {
	case <-c.doneChan:
		return true
	default:
		return false
	}
}

func (c *Client) dialWebSocket(ctx context.Context, url string) (transport.Conn, error) {
	opts := append(
		[]transport.WebSocketOptionFunc{transport.WithLogger(c.logger)},
		c.wsOptions...,
	)
	return transport.DialWebSocket(ctx, url, opts...)
}

func (c *Client) dialLocked(ctx context.Context) error {
	if c.url == "" {
		return ErrNoURL
	}
	conn, err := c.dialFunc(ctx, c.url)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	c.logger.Debug("connected", "url", c.url)
	c.setupConnection(conn)
	return nil
}

// setupConnection starts a dispatcher on conn and forwards the connection's
// terminal error to the error channel
func (c *Client) setupConnection(conn transport.Conn) {
	cfg := protocol.NewDispatcherConfig(
		protocol.WithAPIIds(c.apiIds),
		protocol.WithInitialRequestId(c.initialRequestId),
		protocol.WithMaxInFlight(c.maxInFlight),
		protocol.WithRequestTimeout(c.requestTimeout),
		protocol.WithLogger(c.logger),
		protocol.WithMetrics(c.metrics),
	)
	dispatcher := protocol.NewDispatcher(conn, &cfg)
	c.conn = conn
	c.dispatcher = dispatcher
	c.waitGroup.Add(1)
	go func() {
		defer c.waitGroup.Done()
		select {
		case <-c.doneChan:
			return
		case <-dispatcher.DoneChan():
		}
		err := dispatcher.Err()
		// Stops requested by Close or Reconnect are not reported
		if err == nil || err == protocol.ErrDispatcherStopped {
			return
		}
		c.logger.Error("connection failed", "url", c.url, "error", err)
		select {
		case c.errorChan <- err:
		default:
		}
	}()
}

func (c *Client) teardownLocked() error {
	var err error
	if c.dispatcher != nil {
		c.dispatcher.Stop()
		c.dispatcher = nil
	}
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	return err
}

func (c *Client) maybeBootstrap(ctx context.Context) error {
	if !c.bootstrap {
		return nil
	}
	return c.Bootstrap(ctx)
}
