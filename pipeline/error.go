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

package pipeline

import (
	"errors"
	"fmt"
)

// ErrBlockNotFound is returned when the node has no block for a reported number
var ErrBlockNotFound = errors.New("block not found")

// StreamError ends a stream. Layer names the layer that failed
type StreamError struct {
	Layer    string
	BlockNum uint64
	Err      error
}

func (e *StreamError) Error() string {
	if e.BlockNum > 0 {
		return fmt.Sprintf("%s: block %d: %s", e.Layer, e.BlockNum, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Layer, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
