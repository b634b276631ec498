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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blinklabs-io/gosteem/transport"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeCall(t *testing.T, id uint64, apiId int, method string, params ...any) []byte {
	t.Helper()
	if params == nil {
		params = []any{}
	}
	data, err := json.Marshal(
		map[string]any{
			"id":      id,
			"jsonrpc": "2.0",
			"method":  "call",
			"params":  []any{apiId, method, params},
		},
	)
	require.NoError(t, err)
	return data
}

type capture struct {
	messages chan []byte
}

func newCapture(conn *Connection) *capture {
	c := &capture{messages: make(chan []byte, 16)}
	conn.Subscribe(func(data []byte) { c.messages <- data })
	return c
}

func (c *capture) next(t *testing.T) map[string]any {
	t.Helper()
	select {
	case data := <-c.messages:
		var ret map[string]any
		require.NoError(t, json.Unmarshal(data, &ret))
		return ret
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return nil
}

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest(encodeCall(t, 7, 3, "get_followers", "alice", 10))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), req.Id)
	assert.Equal(t, 3, req.APIId)
	assert.Equal(t, "get_followers", req.Method)
	assert.JSONEq(t, `["alice",10]`, string(req.Params))

	_, err = DecodeRequest([]byte(`{"id":1,"jsonrpc":"2.0","method":"get_block","params":[]}`))
	assert.Error(t, err)
	_, err = DecodeRequest([]byte(`not json`))
	assert.Error(t, err)
}

func TestRouter(t *testing.T) {
	router := NewRouter(map[string]int{"database_api": 0}).
		Handle("database_api", "get_config", func(json.RawMessage) (any, error) {
			return map[string]any{"STEEMIT_BLOCK_INTERVAL": 3}, nil
		})
	conn := NewConnection(router.HandlerFunc())
	defer conn.Close()
	msgs := newCapture(conn)
	ctx := context.Background()

	require.NoError(t, conn.Send(ctx, encodeCall(t, 1, 0, "get_config")))
	msg := msgs.next(t)
	assert.Equal(t, float64(1), msg["id"])
	assert.Equal(t, map[string]any{"STEEMIT_BLOCK_INTERVAL": float64(3)}, msg["result"])

	require.NoError(t, conn.Send(ctx, encodeCall(t, 2, 0, "get_nothing")))
	msg = msgs.next(t)
	assert.Equal(t, float64(-32601), msg["error"].(map[string]any)["code"])

	require.NoError(t, conn.Send(ctx, encodeCall(t, 3, 5, "get_config")))
	msg = msgs.next(t)
	assert.Contains(t, msg, "error")

	assert.Equal(t, 1, router.Calls("database_api", "get_config"))
	assert.Equal(t, 1, router.Calls("database_api", "get_nothing"))
	assert.Len(t, conn.Requests(), 3)
}

func TestConversation(t *testing.T) {
	conn := NewConnection(
		NewConversation(
			[]ConversationEntry{
				{APIId: 1, Method: "get_api_by_name", Result: 3},
				{APIId: 0, Method: "get_block", NoReply: true},
				{APIId: 0, Method: "get_block", Error: &RPCError{Code: -32000, Message: "boom"}},
			},
		),
	)
	defer conn.Close()
	msgs := newCapture(conn)
	ctx := context.Background()

	require.NoError(t, conn.Send(ctx, encodeCall(t, 1, 1, "get_api_by_name", "follow_api")))
	assert.Equal(t, float64(3), msgs.next(t)["result"])

	require.NoError(t, conn.Send(ctx, encodeCall(t, 2, 0, "get_block", 1)))
	require.NoError(t, conn.Send(ctx, encodeCall(t, 3, 0, "get_block", 2)))
	msg := msgs.next(t)
	assert.Equal(t, float64(3), msg["id"])
	assert.Equal(t, "boom", msg["error"].(map[string]any)["message"])

	assert.Error(t, conn.Send(ctx, encodeCall(t, 4, 0, "get_block", 3)))
}

func TestConversationMismatch(t *testing.T) {
	conn := NewConnection(
		NewConversation([]ConversationEntry{{APIId: 0, Method: "get_config"}}),
	)
	defer conn.Close()
	err := conn.Send(context.Background(), encodeCall(t, 1, 0, "get_block", 1))
	assert.ErrorContains(t, err, "did not match")
}

func TestManualReply(t *testing.T) {
	conn := NewConnection(nil)
	defer conn.Close()
	msgs := newCapture(conn)

	require.NoError(t, conn.Send(context.Background(), encodeCall(t, 9, 0, "get_config")))
	req, err := conn.NextRequest(time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), req.Id)
	require.NoError(t, conn.Reply(req.Id, "ok"))
	assert.Equal(t, "ok", msgs.next(t)["result"])

	_, err = conn.NextRequest(10 * time.Millisecond)
	assert.Error(t, err)
}

func TestConnectionFail(t *testing.T) {
	conn := NewConnection(nil)
	testErr := errors.New("link down")
	conn.Fail(testErr)
	<-conn.DoneChan()
	assert.Equal(t, testErr, <-conn.ErrorChan())
	assert.ErrorIs(t, conn.Err(), testErr)
	assert.ErrorIs(t, conn.Send(context.Background(), encodeCall(t, 1, 0, "get_config")), testErr)

	closed := NewConnection(nil)
	require.NoError(t, closed.Close())
	assert.ErrorIs(t, closed.Send(context.Background(), encodeCall(t, 1, 0, "get_config")), transport.ErrConnectionClosed)
}
