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
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// Request describes one API call
type Request struct {
	// Id is the request identity. Zero means the dispatcher assigns the next one
	Id     uint64
	API    string
	Method string
	Params []any
}

func (r *Request) String() string {
	return fmt.Sprintf("%s.%s", r.API, r.Method)
}

// wireRequest is the outbound message format
//
//	{"id": 7, "jsonrpc": "2.0", "method": "call", "params": [0, "get_block", [100]]}
type wireRequest struct {
	Id      uint64 `json:"id"`
	JsonRpc string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// EncodeRequest builds the outbound message for a request and resolved API id
func EncodeRequest(id uint64, apiId int, method string, params []any) ([]byte, error) {
	if params == nil {
		params = []any{}
	}
	msg := wireRequest{
		Id:      id,
		JsonRpc: JsonRpcVersion,
		Method:  MethodCall,
		Params:  []any{apiId, method, params},
	}
	return json.Marshal(msg)
}

// Response is an inbound message. Exactly one of Result and Error is meaningful
type Response struct {
	Id     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// RPCError is the error object a node attaches to a failed call
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type wireResponse struct {
	Id     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// DecodeResponse parses an inbound message. An error field that is not an
// error object still marks the response as failed, with its text as the message
func DecodeResponse(data []byte) (*Response, error) {
	var wire wireResponse
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	resp := &Response{
		Id:     wire.Id,
		Result: wire.Result,
	}
	errData := bytes.TrimSpace(wire.Error)
	if len(errData) == 0 || bytes.Equal(errData, []byte("null")) {
		return resp, nil
	}
	resp.Error = &RPCError{}
	if errData[0] == '{' {
		if err := json.Unmarshal(errData, resp.Error); err == nil {
			return resp, nil
		}
		resp.Error = &RPCError{}
	}
	var message string
	if err := json.Unmarshal(errData, &message); err != nil {
		message = string(errData)
	}
	resp.Error.Message = message
	resp.Error.Data = json.RawMessage(errData)
	return resp, nil
}
