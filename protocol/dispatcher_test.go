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

package protocol_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/gosteem/internal/test/steem_mock"
	"github.com/blinklabs-io/gosteem/log"
	"github.com/blinklabs-io/gosteem/protocol"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testTimeout = 2 * time.Second

func newTestDispatcher(
	t *testing.T,
	conn *steem_mock.Connection,
	options ...protocol.DispatcherOptionFunc,
) *protocol.Dispatcher {
	t.Helper()
	cfg := protocol.NewDispatcherConfig(
		append(
			[]protocol.DispatcherOptionFunc{
				protocol.WithLogger(log.NewTestingLogger(t)),
			},
			options...,
		)...,
	)
	return protocol.NewDispatcher(conn, &cfg)
}

func nextRequest(t *testing.T, conn *steem_mock.Connection) *steem_mock.Request {
	t.Helper()
	req, err := conn.NextRequest(testTimeout)
	require.NoError(t, err)
	return req
}

func waitCall(t *testing.T, call *protocol.Call) *protocol.Call {
	t.Helper()
	select {
	case ret := <-call.Done:
		return ret
	case <-time.After(testTimeout):
		t.Fatalf("timed out waiting for %s", call.Request)
	}
	return nil
}

func getBlock(num uint64) *protocol.Request {
	return &protocol.Request{
		API:    protocol.APIDatabase,
		Method: "get_block",
		Params: []any{num},
	}
}

func TestDispatcherSendRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)
	router := steem_mock.NewRouter(protocol.DefaultAPIIds()).
		Handle(protocol.APIDatabase, "get_block", func(params json.RawMessage) (any, error) {
			var args []uint64
			if err := json.Unmarshal(params, &args); err != nil {
				return nil, err
			}
			return map[string]any{"block_num": args[0]}, nil
		})
	conn := steem_mock.NewConnection(router.HandlerFunc())
	d := newTestDispatcher(t, conn)
	defer d.Stop()

	result, err := d.Send(context.Background(), protocol.APIDatabase, "get_block", 100)
	require.NoError(t, err)
	assert.JSONEq(t, `{"block_num":100}`, string(result))

	req := nextRequest(t, conn)
	assert.Equal(t, uint64(1), req.Id)
	assert.Equal(t, 0, req.APIId)
	assert.Equal(t, "get_block", req.Method)
	assert.JSONEq(t, `[100]`, string(req.Params))

	stats := d.Stats()
	assert.Equal(t, uint64(1), stats.RequestsSent)
	assert.Equal(t, uint64(1), stats.ResponsesMatched)
	assert.Equal(t, 0, stats.InFlight)
	assert.Equal(t, 0, stats.Pending)
}

func TestDispatcherOutOfOrderResponses(t *testing.T) {
	defer goleak.VerifyNone(t)
	conn := steem_mock.NewConnection(nil)
	d := newTestDispatcher(t, conn, protocol.WithInitialRequestId(5))
	defer d.Stop()

	ctx := context.Background()
	call5 := d.Go(ctx, getBlock(100), nil)
	call6 := d.Go(ctx, getBlock(101), nil)
	assert.Equal(t, uint64(5), nextRequest(t, conn).Id)
	assert.Equal(t, uint64(6), nextRequest(t, conn).Id)

	require.NoError(t, conn.Reply(6, map[string]any{"block": "b6"}))
	require.NoError(t, conn.Reply(5, map[string]any{"block": "b5"}))

	ret5 := waitCall(t, call5)
	require.NoError(t, ret5.Error)
	assert.JSONEq(t, `{"block":"b5"}`, string(ret5.Result))
	ret6 := waitCall(t, call6)
	require.NoError(t, ret6.Error)
	assert.JSONEq(t, `{"block":"b6"}`, string(ret6.Result))
	assert.Equal(t, 0, d.InFlight())
}

func TestDispatcherUnmatchedResponses(t *testing.T) {
	defer goleak.VerifyNone(t)
	var unmatchedMu sync.Mutex
	var unmatched []error
	conn := steem_mock.NewConnection(nil)
	d := newTestDispatcher(
		t,
		conn,
		protocol.WithInitialRequestId(10),
		protocol.WithUnmatchedResponseFunc(func(err error) {
			unmatchedMu.Lock()
			defer unmatchedMu.Unlock()
			unmatched = append(unmatched, err)
		}),
	)
	defer d.Stop()

	ctx := context.Background()
	call10 := d.Go(ctx, getBlock(1), nil)
	call11 := d.Go(ctx, getBlock(2), nil)
	nextRequest(t, conn)
	nextRequest(t, conn)
	require.Equal(t, 2, d.InFlight())

	// Older than every pending request
	require.NoError(t, conn.Reply(3, "old"))
	assert.Equal(t, 2, d.InFlight())
	// Newer than the oldest pending request, but not pending
	require.NoError(t, conn.Reply(99, "unknown"))
	assert.Equal(t, 2, d.InFlight())

	require.NoError(t, conn.Reply(11, "b"))
	require.NoError(t, conn.Reply(10, "a"))
	require.NoError(t, waitCall(t, call10).Error)
	require.NoError(t, waitCall(t, call11).Error)
	assert.JSONEq(t, `"a"`, string(call10.Result))
	assert.JSONEq(t, `"b"`, string(call11.Result))

	unmatchedMu.Lock()
	defer unmatchedMu.Unlock()
	require.Len(t, unmatched, 2)
	var staleErr *protocol.StaleResponseError
	require.ErrorAs(t, unmatched[0], &staleErr)
	assert.Equal(t, uint64(3), staleErr.Id)
	assert.Equal(t, uint64(10), staleErr.OldestPending)
	var mismatchedErr *protocol.MismatchedResponseError
	require.ErrorAs(t, unmatched[1], &mismatchedErr)
	assert.Equal(t, uint64(99), mismatchedErr.Id)

	stats := d.Stats()
	assert.Equal(t, uint64(1), stats.StaleResponses)
	assert.Equal(t, uint64(1), stats.MismatchedResponses)
	assert.Equal(t, uint64(2), stats.ResponsesMatched)
}

func TestDispatcherInvalidMessage(t *testing.T) {
	defer goleak.VerifyNone(t)
	conn := steem_mock.NewConnection(nil)
	d := newTestDispatcher(t, conn)
	defer d.Stop()

	conn.Deliver([]byte("not json"))
	assert.Equal(t, uint64(1), d.Stats().InvalidResponses)
}

func TestDispatcherConcurrencyCap(t *testing.T) {
	defer goleak.VerifyNone(t)
	const total = 25
	conn := steem_mock.NewConnection(nil)
	d := newTestDispatcher(t, conn)
	defer d.Stop()

	ctx := context.Background()
	calls := make([]*protocol.Call, 0, total)
	for i := range total {
		calls = append(calls, d.Go(ctx, getBlock(uint64(i)), nil))
	}
	var outstanding []*steem_mock.Request
	for range protocol.DefaultMaxInFlight {
		outstanding = append(outstanding, nextRequest(t, conn))
	}
	select {
	case req := <-conn.Requests():
		t.Fatalf("request %d was sent while %d requests were in flight", req.Id, len(outstanding))
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, protocol.DefaultMaxInFlight, d.InFlight())

	replied := 0
	for len(outstanding) > 0 {
		req := outstanding[0]
		outstanding = outstanding[1:]
		require.NoError(t, conn.Reply(req.Id, req.Id))
		replied++
		if replied+len(outstanding) < total {
			outstanding = append(outstanding, nextRequest(t, conn))
		}
		assert.LessOrEqual(t, d.InFlight(), protocol.DefaultMaxInFlight)
	}
	for _, call := range calls {
		require.NoError(t, waitCall(t, call).Error)
	}
	stats := d.Stats()
	assert.Equal(t, protocol.DefaultMaxInFlight, stats.PeakInFlight)
	assert.Equal(t, 0, stats.InFlight)
	assert.Equal(t, uint64(total), stats.ResponsesMatched)
}

func TestDispatcherWriteOrder(t *testing.T) {
	defer goleak.VerifyNone(t)
	conn := steem_mock.NewConnection(nil)
	d := newTestDispatcher(t, conn)

	ctx := context.Background()
	methods := []string{"get_config", "get_block", "get_block_header", "get_accounts", "get_dynamic_global_properties"}
	calls := make([]*protocol.Call, 0, len(methods))
	for _, method := range methods {
		calls = append(
			calls,
			d.Go(ctx, &protocol.Request{API: protocol.APIDatabase, Method: method}, nil),
		)
	}
	for idx, method := range methods {
		req := nextRequest(t, conn)
		assert.Equal(t, uint64(idx+1), req.Id)
		assert.Equal(t, method, req.Method)
		assert.JSONEq(t, `[]`, string(req.Params))
	}

	d.Stop()
	for _, call := range calls {
		err := waitCall(t, call).Error
		assert.ErrorIs(t, err, protocol.ErrTransport)
		assert.ErrorIs(t, err, protocol.ErrDispatcherStopped)
	}
	_, err := d.Send(ctx, protocol.APIDatabase, "get_config")
	assert.ErrorIs(t, err, protocol.ErrTransport)
	assert.ErrorIs(t, err, protocol.ErrDispatcherStopped)
	assert.Equal(t, 0, d.InFlight())
}

func TestDispatcherProtocolError(t *testing.T) {
	defer goleak.VerifyNone(t)
	router := steem_mock.NewRouter(protocol.DefaultAPIIds()).
		Handle(protocol.APIDatabase, "get_accounts", func(json.RawMessage) (any, error) {
			return nil, &steem_mock.RPCError{Code: -32000, Message: "bad account name"}
		})
	conn := steem_mock.NewConnection(router.HandlerFunc())
	d := newTestDispatcher(t, conn)
	defer d.Stop()

	_, err := d.Send(context.Background(), protocol.APIDatabase, "get_accounts", []string{"!"})
	var protoErr *protocol.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, uint64(1), protoErr.Id)
	assert.Equal(t, protocol.APIDatabase, protoErr.API)
	assert.Equal(t, "get_accounts", protoErr.Method)
	assert.Equal(t, -32000, protoErr.Code)
	assert.Equal(t, "bad account name", protoErr.Message)
	assert.NotErrorIs(t, err, protocol.ErrTransport)

	stats := d.Stats()
	assert.Equal(t, uint64(1), stats.ProtocolErrors)
	assert.Equal(t, 0, stats.InFlight)
}

func TestDispatcherMalformedErrorReply(t *testing.T) {
	defer goleak.VerifyNone(t)
	conn := steem_mock.NewConnection(nil)
	d := newTestDispatcher(t, conn)
	defer d.Stop()

	call := d.Go(context.Background(), getBlock(1), nil)
	req := nextRequest(t, conn)
	conn.Deliver([]byte(`{"id":` + strconv.FormatUint(req.Id, 10) + `,"error":"assert exception: block not found"}`))

	call = waitCall(t, call)
	var protoErr *protocol.ProtocolError
	require.ErrorAs(t, call.Error, &protoErr)
	assert.Equal(t, req.Id, protoErr.Id)
	assert.Equal(t, "assert exception: block not found", protoErr.Message)

	stats := d.Stats()
	assert.Equal(t, uint64(1), stats.ProtocolErrors)
	assert.Equal(t, uint64(0), stats.InvalidResponses)
	assert.Equal(t, 0, stats.InFlight)
}

func TestDispatcherTransportFailure(t *testing.T) {
	defer goleak.VerifyNone(t)
	conn := steem_mock.NewConnection(nil)
	d := newTestDispatcher(t, conn)
	defer d.Stop()

	ctx := context.Background()
	call1 := d.Go(ctx, getBlock(1), nil)
	call2 := d.Go(ctx, getBlock(2), nil)
	nextRequest(t, conn)
	nextRequest(t, conn)
	require.Equal(t, 2, d.InFlight())

	testErr := errors.New("connection reset by peer")
	conn.Fail(testErr)
	for _, call := range []*protocol.Call{call1, call2} {
		err := waitCall(t, call).Error
		var transportErr *protocol.TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.ErrorIs(t, err, testErr)
	}
	select {
	case <-d.DoneChan():
	case <-time.After(testTimeout):
		t.Fatal("dispatcher did not stop after the connection failed")
	}
	stats := d.Stats()
	assert.Equal(t, uint64(2), stats.TransportErrors)
	assert.Equal(t, 0, stats.InFlight)
	assert.Equal(t, 0, stats.Pending)
	assert.ErrorIs(t, d.Err(), testErr)

	_, err := d.Send(ctx, protocol.APIDatabase, "get_config")
	assert.ErrorIs(t, err, protocol.ErrTransport)
}

func TestDispatcherSendFailure(t *testing.T) {
	defer goleak.VerifyNone(t)
	testErr := errors.New("write failed")
	conn := steem_mock.NewConnection(func(*steem_mock.Request) (any, error) {
		return nil, testErr
	})
	d := newTestDispatcher(t, conn)
	defer d.Stop()

	_, err := d.Send(context.Background(), protocol.APIDatabase, "get_config")
	assert.ErrorIs(t, err, protocol.ErrTransport)
	assert.ErrorIs(t, err, testErr)
	assert.Equal(t, 0, d.InFlight())
}

func TestDispatcherRequestTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)
	var unmatched []error
	conn := steem_mock.NewConnection(nil)
	d := newTestDispatcher(
		t,
		conn,
		protocol.WithRequestTimeout(50*time.Millisecond),
		protocol.WithUnmatchedResponseFunc(func(err error) {
			unmatched = append(unmatched, err)
		}),
	)
	defer d.Stop()

	_, err := d.Send(context.Background(), protocol.APIDatabase, "get_config")
	require.ErrorIs(t, err, protocol.ErrRequestTimeout)
	assert.Equal(t, 0, d.InFlight())
	assert.Equal(t, uint64(1), d.Stats().Timeouts)

	// The late response no longer has a caller
	nextRequest(t, conn)
	require.NoError(t, conn.Reply(1, "late"))
	require.Len(t, unmatched, 1)
	var staleErr *protocol.StaleResponseError
	require.ErrorAs(t, unmatched[0], &staleErr)
	assert.Equal(t, uint64(0), staleErr.OldestPending)
}

func TestDispatcherCancelReleasesBudget(t *testing.T) {
	defer goleak.VerifyNone(t)
	conn := steem_mock.NewConnection(nil)
	d := newTestDispatcher(t, conn, protocol.WithMaxInFlight(1))
	defer d.Stop()

	// Cancel while in flight
	ctx1, cancel1 := context.WithCancel(context.Background())
	call1 := d.Go(ctx1, getBlock(1), nil)
	assert.Equal(t, uint64(1), nextRequest(t, conn).Id)
	require.Equal(t, 1, d.InFlight())
	cancel1()
	assert.ErrorIs(t, waitCall(t, call1).Error, context.Canceled)
	assert.Equal(t, 0, d.InFlight())

	// Cancel while waiting for admission
	call2 := d.Go(context.Background(), getBlock(2), nil)
	assert.Equal(t, uint64(2), nextRequest(t, conn).Id)
	ctx3, cancel3 := context.WithCancel(context.Background())
	call3 := d.Go(ctx3, getBlock(3), nil)
	cancel3()
	assert.ErrorIs(t, waitCall(t, call3).Error, context.Canceled)

	require.NoError(t, conn.Reply(2, "two"))
	require.NoError(t, waitCall(t, call2).Error)

	call4 := d.Go(context.Background(), getBlock(4), nil)
	// Request 3 never reached the connection
	assert.Equal(t, uint64(4), nextRequest(t, conn).Id)
	require.NoError(t, conn.Reply(4, "four"))
	require.NoError(t, waitCall(t, call4).Error)
	assert.Equal(t, 0, d.InFlight())
	assert.Equal(t, 1, d.Stats().PeakInFlight)
}

func TestDispatcherExplicitIds(t *testing.T) {
	defer goleak.VerifyNone(t)
	conn := steem_mock.NewConnection(nil)
	d := newTestDispatcher(t, conn, protocol.WithInitialRequestId(42))
	defer d.Stop()

	ctx := context.Background()
	req := getBlock(1)
	req.Id = 42
	call1 := d.Go(ctx, req, nil)
	assert.Equal(t, uint64(42), nextRequest(t, conn).Id)

	dup := getBlock(2)
	dup.Id = 42
	assert.ErrorIs(t, waitCall(t, d.Go(ctx, dup, nil)).Error, protocol.ErrDuplicateRequestId)

	// The automatic id skips the explicit one still pending
	call2 := d.Go(ctx, getBlock(3), nil)
	assert.Equal(t, uint64(43), nextRequest(t, conn).Id)

	require.NoError(t, conn.Reply(43, nil))
	require.NoError(t, conn.Reply(42, nil))
	require.NoError(t, waitCall(t, call1).Error)
	require.NoError(t, waitCall(t, call2).Error)
}

func TestDispatcherUnresolvedAPI(t *testing.T) {
	defer goleak.VerifyNone(t)
	conn := steem_mock.NewConnection(func(req *steem_mock.Request) (any, error) {
		return req.APIId, nil
	})
	d := newTestDispatcher(t, conn)
	defer d.Stop()

	ctx := context.Background()
	_, err := d.Send(ctx, protocol.APIFollow, "get_followers")
	require.ErrorIs(t, err, protocol.ErrUnresolvedAPI)
	select {
	case <-conn.Requests():
		t.Fatal("unresolved request reached the connection")
	default:
	}

	d.APIs().Set(protocol.APIFollow, 7)
	result, err := d.Send(ctx, protocol.APIFollow, "get_followers")
	require.NoError(t, err)
	assert.JSONEq(t, `7`, string(result))
	assert.Equal(t, 7, nextRequest(t, conn).APIId)
}

func TestDispatcherGoFunc(t *testing.T) {
	defer goleak.VerifyNone(t)
	conn := steem_mock.NewConnection(func(*steem_mock.Request) (any, error) {
		return "ok", nil
	})
	d := newTestDispatcher(t, conn)
	defer d.Stop()

	resultChan := make(chan json.RawMessage, 1)
	d.GoFunc(context.Background(), getBlock(1), func(result json.RawMessage, err error) {
		assert.NoError(t, err)
		resultChan <- result
	})
	select {
	case result := <-resultChan:
		assert.JSONEq(t, `"ok"`, string(result))
	case <-time.After(testTimeout):
		t.Fatal("callback was not invoked")
	}
}
