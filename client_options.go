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
	"time"

	"github.com/blinklabs-io/gosteem/log"
	"github.com/blinklabs-io/gosteem/pipeline"
	"github.com/blinklabs-io/gosteem/protocol"
	"github.com/blinklabs-io/gosteem/transport"
)

// ClientOptionFunc is a type that represents functions that modify the Client config
type ClientOptionFunc func(*Client)

// WithURL specifies the node URL used by Dial and Reconnect
func WithURL(url string) ClientOptionFunc {
	return func(c *Client) {
		c.url = url
	}
}

// WithNetwork specifies the network. Its public URL is used unless WithURL is also given
func WithNetwork(network Network) ClientOptionFunc {
	return func(c *Client) {
		if c.url == "" {
			c.url = network.PublicURL
		}
	}
}

// WithConnection specifies an existing connection to use. If none is provided, the Dial() function can be
// used to create one later
func WithConnection(conn transport.Conn) ClientOptionFunc {
	return func(c *Client) {
		c.conn = conn
	}
}

// WithDialFunc specifies how Dial and Reconnect open connections. The default dials a WebSocket
func WithDialFunc(dialFunc DialFunc) ClientOptionFunc {
	return func(c *Client) {
		c.dialFunc = dialFunc
	}
}

// WithWebSocketOptions specifies options for the default WebSocket dialer
func WithWebSocketOptions(opts ...transport.WebSocketOptionFunc) ClientOptionFunc {
	return func(c *Client) {
		c.wsOptions = append(c.wsOptions, opts...)
	}
}

// WithAPIIds specifies the initial API name to id mapping. It replaces the defaults
func WithAPIIds(ids map[string]int) ClientOptionFunc {
	return func(c *Client) {
		c.apiIds = ids
	}
}

// WithBootstrap specifies whether Dial and Reconnect resolve API ids from the node.
// This is enabled by default
func WithBootstrap(bootstrap bool) ClientOptionFunc {
	return func(c *Client) {
		c.bootstrap = bootstrap
	}
}

// WithBootstrapAPIs specifies the API names resolved by Bootstrap
func WithBootstrapAPIs(names ...string) ClientOptionFunc {
	return func(c *Client) {
		c.bootstrapAPIs = names
	}
}

// WithInitialRequestId specifies the first automatically assigned request id
func WithInitialRequestId(id uint64) ClientOptionFunc {
	return func(c *Client) {
		c.initialRequestId = id
	}
}

// WithMaxInFlight specifies how many requests may await a response at once
func WithMaxInFlight(maxInFlight int) ClientOptionFunc {
	return func(c *Client) {
		c.maxInFlight = maxInFlight
	}
}

// WithRequestTimeout specifies how long a request waits for its response. Zero waits indefinitely
func WithRequestTimeout(timeout time.Duration) ClientOptionFunc {
	return func(c *Client) {
		c.requestTimeout = timeout
	}
}

// WithLogger specifies the logger
func WithLogger(logger log.Logger) ClientOptionFunc {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics specifies the dispatcher metrics
func WithMetrics(metrics *protocol.Metrics) ClientOptionFunc {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// WithStreamOptions specifies default options for the stream constructors
func WithStreamOptions(opts ...pipeline.StreamOption) ClientOptionFunc {
	return func(c *Client) {
		c.streamOptions = append(c.streamOptions, opts...)
	}
}

// WithErrorChan specifies the error channel to use. If none is provided, one will be created
func WithErrorChan(errorChan chan error) ClientOptionFunc {
	return func(c *Client) {
		c.errorChan = errorChan
	}
}
