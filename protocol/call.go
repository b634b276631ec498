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

package protocol

import (
	"context"

	"github.com/goccy/go-json"
)

// Call represents an asynchronous request started with Go
type Call struct {
	Request *Request
	Result  json.RawMessage
	Error   error
	// Done receives the call once it completes
	Done chan *Call
}

// Go starts a request without waiting for it. The request is queued for
// writing before Go returns, so requests started from one goroutine are
// written in the order Go was called. If done is nil, a new channel is
// allocated. A non-nil done channel must be buffered
func (d *Dispatcher) Go(ctx context.Context, req *Request, done chan *Call) *Call {
	if done == nil {
		done = make(chan *Call, 1)
	} else if cap(done) == 0 {
		panic("protocol: done channel is unbuffered")
	}
	call := &Call{
		Request: req,
		Done:    done,
	}
	entry, err := d.enqueue(ctx, req)
	if err != nil {
		call.Error = err
		call.Done <- call
		return call
	}
	go func() {
		call.Result, call.Error = d.wait(ctx, entry)
		call.Done <- call
	}()
	return call
}

// GoFunc starts a request and invokes fn with its outcome from another goroutine
func (d *Dispatcher) GoFunc(
	ctx context.Context,
	req *Request,
	fn func(json.RawMessage, error),
) {
	call := d.Go(ctx, req, nil)
	go func() {
		<-call.Done
		fn(call.Result, call.Error)
	}()
}
