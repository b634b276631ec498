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
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

var (
	// ErrTransport matches every *TransportError
	ErrTransport = errors.New("transport error")
	// ErrDispatcherStopped is the cause used when the dispatcher was stopped
	ErrDispatcherStopped = errors.New("dispatcher is stopped")
	// ErrRequestTimeout is returned when no response arrived within the request timeout
	ErrRequestTimeout = errors.New("request timed out")
	// ErrDuplicateRequestId is returned for an explicit id that is already pending
	ErrDuplicateRequestId = errors.New("request id is already pending")
	// ErrUnresolvedAPI is returned when calling an API whose id is unknown
	ErrUnresolvedAPI = errors.New("api id is not resolved")
)

// TransportError reports that the connection failed or closed before a
// response arrived. It is delivered to every caller that was waiting
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// ProtocolError is a server-reported error on a correlated response
type ProtocolError struct {
	Id      uint64
	API     string
	Method  string
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf(
		"%s.%s (id %d): rpc error %d: %s",
		e.API,
		e.Method,
		e.Id,
		e.Code,
		e.Message,
	)
}

// StaleResponseError describes an inbound message whose id is older than every
// request currently awaiting a response. It is never returned to a caller
type StaleResponseError struct {
	Id            uint64
	OldestPending uint64
}

func (e *StaleResponseError) Error() string {
	if e.OldestPending == 0 {
		return fmt.Sprintf("stale response id %d: no request pending", e.Id)
	}
	return fmt.Sprintf(
		"stale response id %d: oldest pending request is %d",
		e.Id,
		e.OldestPending,
	)
}

// MismatchedResponseError describes an inbound message that no waiting request
// claims. It is never returned to a caller
type MismatchedResponseError struct {
	Id uint64
}

func (e *MismatchedResponseError) Error() string {
	return fmt.Sprintf("response id %d does not match any pending request", e.Id)
}
