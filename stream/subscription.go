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

// Package stream provides the cancellation handle shared by inbound message
// subscriptions and the layered block/transaction/operation streams.
package stream

import "sync"

// Subscription is a cancellation handle for a running stream or inbound
// message subscription. Unsubscribe may be called any number of times and
// from any goroutine; only the first call has an effect.
//
// A Subscription may own the subscriptions it depends on (attached with
// Attach). Cancelling it cancels those dependencies as well, but cancelling
// a dependency never cancels the subscriptions built on top of it.
type Subscription struct {
	mu        sync.Mutex
	cancelled bool
	onCancel  []func()
	deps      []*Subscription
	doneChan  chan struct{}
}

// NewSubscription returns a new Subscription that calls the provided
// functions, in order, when it is cancelled
func NewSubscription(onCancel ...func()) *Subscription {
	s := &Subscription{
		doneChan: make(chan struct{}),
	}
	for _, fn := range onCancel {
		if fn != nil {
			s.onCancel = append(s.onCancel, fn)
		}
	}
	return s
}

// OnCancel registers an additional function to run on cancellation. If the
// subscription is already cancelled, the function runs immediately
func (s *Subscription) OnCancel(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		fn()
		return
	}
	s.onCancel = append(s.onCancel, fn)
	s.mu.Unlock()
}

// Attach makes dep a dependency of s. The dependency is cancelled together
// with s, or immediately if s has already been cancelled
func (s *Subscription) Attach(dep *Subscription) {
	if dep == nil || dep == s {
		return
	}
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		dep.Unsubscribe()
		return
	}
	s.deps = append(s.deps, dep)
	s.mu.Unlock()
}

// Unsubscribe cancels the subscription and every dependency attached to it
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	fns := s.onCancel
	deps := s.deps
	s.onCancel = nil
	s.deps = nil
	close(s.doneChan)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	for _, dep := range deps {
		dep.Unsubscribe()
	}
}

// Done returns a channel that is closed once the subscription is cancelled
func (s *Subscription) Done() <-chan struct{} {
	return s.doneChan
}

// Cancelled reports whether Unsubscribe has been called
func (s *Subscription) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}
