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

// Package cbor wraps github.com/fxamacker/cbor/v2 with the deterministic
// encoding used for event archives and CLI output.
package cbor

import (
	"bytes"
	"io"
	"reflect"
	"sync"

	_cbor "github.com/fxamacker/cbor/v2"
)

var mapStringAnyType = reflect.TypeOf(map[string]any(nil))

var (
	cachedEncMode     _cbor.EncMode
	cachedEncModeErr  error
	cachedEncModeOnce sync.Once

	cachedDecMode     _cbor.DecMode
	cachedDecModeErr  error
	cachedDecModeOnce sync.Once
)

func getEncMode() (_cbor.EncMode, error) {
	cachedEncModeOnce.Do(func() {
		encOptions := _cbor.EncOptions{
			// Make sure that maps have ordered keys
			Sort: _cbor.SortCoreDeterministic,
			Time: _cbor.TimeRFC3339,
		}
		cachedEncMode, cachedEncModeErr = encOptions.EncMode()
	})
	return cachedEncMode, cachedEncModeErr
}

func getDecMode() (_cbor.DecMode, error) {
	cachedDecModeOnce.Do(func() {
		decOptions := _cbor.DecOptions{
			// Blocks nest operations several levels deep
			MaxNestedLevels: 256,
			// Decode maps into map[string]any rather than map[any]any
			DefaultMapType: mapStringAnyType,
		}
		cachedDecMode, cachedDecModeErr = decOptions.DecMode()
	})
	return cachedDecMode, cachedDecModeErr
}

// Encode returns the deterministic CBOR encoding of data
func Encode(data any) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	enc, err := NewEncoder(buf)
	if err != nil {
		return nil, err
	}
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode decodes a single CBOR item into dest and returns the number of bytes read
func Decode(data []byte, dest any) (int, error) {
	dec, err := NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	err = dec.Decode(dest)
	return dec.NumBytesRead(), err
}

// NewEncoder returns an encoder that writes a sequence of deterministic CBOR
// items to w, such as an archive of stream events
func NewEncoder(w io.Writer) (*_cbor.Encoder, error) {
	em, err := getEncMode()
	if err != nil {
		return nil, err
	}
	return em.NewEncoder(w), nil
}

// NewDecoder returns a decoder that reads a sequence of CBOR items from r
func NewDecoder(r io.Reader) (*_cbor.Decoder, error) {
	dm, err := getDecMode()
	if err != nil {
		return nil, err
	}
	return dm.NewDecoder(r), nil
}
