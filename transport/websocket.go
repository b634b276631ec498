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

package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/blinklabs-io/gosteem/log"
	"github.com/blinklabs-io/gosteem/stream"
	"github.com/gorilla/websocket"
)

const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteWait        = 10 * time.Second

	closeFrameTimeout = time.Second
)

var _ Conn = (*WebSocketConn)(nil)

// WebSocketConn implements Conn on top of a WebSocket connection. Each
// message is a single text frame
type WebSocketConn struct {
	url              string
	conn             *websocket.Conn
	logger           log.Logger
	header           http.Header
	handshakeTimeout time.Duration
	writeWait        time.Duration
	readWait         time.Duration
	pingPeriod       time.Duration
	inbound          *Inbound
	sendMutex        sync.Mutex
	errorChan        chan error
	doneChan         chan struct{}
	errMutex         sync.Mutex
	err              error
	onceShutdown     sync.Once
	onceClose        sync.Once
	waitGroup        sync.WaitGroup
}

// WebSocketOptionFunc modifies the WebSocketConn config
type WebSocketOptionFunc func(*WebSocketConn)

// WithLogger specifies the logger to use
func WithLogger(logger log.Logger) WebSocketOptionFunc {
	return func(c *WebSocketConn) {
		c.logger = logger
	}
}

// WithHeader specifies extra HTTP headers for the opening handshake
func WithHeader(header http.Header) WebSocketOptionFunc {
	return func(c *WebSocketConn) {
		c.header = header
	}
}

// WithHandshakeTimeout specifies how long the opening handshake may take
func WithHandshakeTimeout(timeout time.Duration) WebSocketOptionFunc {
	return func(c *WebSocketConn) {
		c.handshakeTimeout = timeout
	}
}

// WithWriteWait specifies the time allowed to write a message when the send
// context has no deadline. 0 means block until the write succeeds
func WithWriteWait(writeWait time.Duration) WebSocketOptionFunc {
	return func(c *WebSocketConn) {
		c.writeWait = writeWait
	}
}

// WithReadWait specifies how long the connection may be idle before a read
// times out. It must be longer than the ping period. 0 disables the timeout
func WithReadWait(readWait time.Duration) WebSocketOptionFunc {
	return func(c *WebSocketConn) {
		c.readWait = readWait
	}
}

// WithPingPeriod specifies how often to send pings. 0 disables pings
func WithPingPeriod(pingPeriod time.Duration) WebSocketOptionFunc {
	return func(c *WebSocketConn) {
		c.pingPeriod = pingPeriod
	}
}

// DialWebSocket connects to the specified ws:// or wss:// URL and starts the
// read loop
func DialWebSocket(
	ctx context.Context,
	url string,
	options ...WebSocketOptionFunc,
) (*WebSocketConn, error) {
	c := &WebSocketConn{
		url:              url,
		logger:           log.NewNopLogger(),
		handshakeTimeout: DefaultHandshakeTimeout,
		writeWait:        DefaultWriteWait,
		inbound:          NewInbound(),
		errorChan:        make(chan error, 10),
		doneChan:         make(chan struct{}),
	}
	for _, option := range options {
		option(c)
	}
	c.logger = c.logger.With("component", "transport", "url", url)
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.handshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, url, c.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c.conn = conn
	c.logger.Debug("connected")
	c.waitGroup.Add(1)
	go c.readLoop()
	if c.pingPeriod > 0 {
		c.waitGroup.Add(1)
		go c.pingLoop()
	}
	return c, nil
}

// URL returns the URL the connection was dialed with
func (c *WebSocketConn) URL() string {
	return c.url
}

func (c *WebSocketConn) Send(ctx context.Context, data []byte) error {
	select {
	case <-c.doneChan:
		return ErrConnectionClosed
	default:
	}
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
	} else if c.writeWait > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	} else {
		_ = c.conn.SetWriteDeadline(time.Time{})
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		err = fmt.Errorf("write: %w", err)
		c.shutdown(err)
		return err
	}
	return nil
}

func (c *WebSocketConn) Subscribe(handler MessageHandlerFunc) *stream.Subscription {
	return c.inbound.Subscribe(handler)
}

func (c *WebSocketConn) ErrorChan() <-chan error {
	return c.errorChan
}

func (c *WebSocketConn) DoneChan() <-chan struct{} {
	return c.doneChan
}

func (c *WebSocketConn) Err() error {
	select {
	case <-c.doneChan:
	default:
		return nil
	}
	c.errMutex.Lock()
	defer c.errMutex.Unlock()
	if c.err == nil {
		return ErrConnectionClosed
	}
	return c.err
}

// Close will shut down the connection and wait for its goroutines to exit
func (c *WebSocketConn) Close() error {
	c.shutdown(nil)
	c.waitGroup.Wait()
	c.onceClose.Do(func() {
		close(c.errorChan)
	})
	return nil
}

func (c *WebSocketConn) shutdown(err error) {
	c.onceShutdown.Do(func() {
		c.errMutex.Lock()
		c.err = err
		c.errMutex.Unlock()
		if err != nil {
			c.logger.Error("connection failed", "error", err)
			c.errorChan <- err
		} else {
			c.logger.Debug("closing connection")
		}
		close(c.doneChan)
		// WriteControl and Close may be called concurrently with other methods
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeFrameTimeout),
		)
		_ = c.conn.Close()
	})
}

// The connection ensures that there is at most one reader by executing all
// reads from this goroutine
func (c *WebSocketConn) readLoop() {
	defer c.waitGroup.Done()
	if c.readWait > 0 {
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(c.readWait))
		})
	}
	for {
		if c.readWait > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.readWait))
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.doneChan:
				// We're already shutting down
				return
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				err = fmt.Errorf("%w: closed by server", ErrConnectionClosed)
			} else if !errors.Is(err, ErrConnectionClosed) {
				err = fmt.Errorf("read: %w", err)
			}
			c.shutdown(err)
			return
		}
		c.inbound.Deliver(data)
	}
}

func (c *WebSocketConn) pingLoop() {
	defer c.waitGroup.Done()
	ticker := time.NewTicker(c.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.doneChan:
			return
		case <-ticker.C:
			err := c.conn.WriteControl(
				websocket.PingMessage,
				nil,
				time.Now().Add(c.pingPeriod),
			)
			if err != nil {
				c.shutdown(fmt.Errorf("write ping: %w", err))
				return
			}
		}
	}
}
