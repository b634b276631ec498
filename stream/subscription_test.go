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

package stream_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/blinklabs-io/gosteem/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnsubscribeIdempotent(t *testing.T) {
	var calls atomic.Int32
	sub := stream.NewSubscription(func() { calls.Add(1) })
	require.False(t, sub.Cancelled())
	for i := 0; i < 5; i++ {
		sub.Unsubscribe()
	}
	assert.True(t, sub.Cancelled())
	assert.Equal(t, int32(1), calls.Load())
	select {
	case <-sub.Done():
	default:
		t.Fatal("done channel was not closed")
	}
}

func TestUnsubscribeConcurrent(t *testing.T) {
	var calls atomic.Int32
	sub := stream.NewSubscription(func() { calls.Add(1) })
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub.Unsubscribe()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestUnsubscribeCascadesDownward(t *testing.T) {
	bottom := stream.NewSubscription()
	middle := stream.NewSubscription()
	middle.Attach(bottom)
	top := stream.NewSubscription()
	top.Attach(middle)

	middle.Unsubscribe()
	assert.True(t, bottom.Cancelled(), "dependency should be cancelled")
	assert.False(t, top.Cancelled(), "dependent above must not be cancelled")

	top.Unsubscribe()
	assert.True(t, top.Cancelled())
}

func TestUnsubscribeSiblingsIndependent(t *testing.T) {
	a := stream.NewSubscription()
	b := stream.NewSubscription()
	parentA := stream.NewSubscription()
	parentA.Attach(a)
	parentB := stream.NewSubscription()
	parentB.Attach(b)

	parentA.Unsubscribe()
	assert.True(t, a.Cancelled())
	assert.False(t, b.Cancelled())
	assert.False(t, parentB.Cancelled())
}

func TestAttachAfterCancel(t *testing.T) {
	sub := stream.NewSubscription()
	sub.Unsubscribe()
	dep := stream.NewSubscription()
	sub.Attach(dep)
	assert.True(t, dep.Cancelled())
}

func TestOnCancelAfterCancelRunsImmediately(t *testing.T) {
	sub := stream.NewSubscription()
	sub.Unsubscribe()
	ran := false
	sub.OnCancel(func() { ran = true })
	assert.True(t, ran)
}

func TestNilUnsubscribe(t *testing.T) {
	var sub *stream.Subscription
	assert.NotPanics(t, func() { sub.Unsubscribe() })
}
