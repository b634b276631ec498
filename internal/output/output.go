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

// Package output writes command results in the format chosen on the command line
package output

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/blinklabs-io/gosteem/cbor"
	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
	FormatText Format = "text"
)

var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat returns the Format with the given name
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatJSON, FormatYAML, FormatCBOR, FormatText:
		return f, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, name)
}

type Formatter struct {
	format   Format
	writer   io.Writer
	cborEnc  interface{ Encode(any) error }
	keyColor *color.Color
	docCount int
}

type FormatterOptionFunc func(*Formatter)

// WithColor enables colored keys in text output
func WithColor(enabled bool) FormatterOptionFunc {
	return func(f *Formatter) {
		if enabled {
			f.keyColor.EnableColor()
		} else {
			f.keyColor.DisableColor()
		}
	}
}

// NewFormatter returns a Formatter writing to w. Each call to Write emits one
// document: a JSON line, a YAML document, a CBOR item or a block of text
func NewFormatter(format Format, w io.Writer, options ...FormatterOptionFunc) (*Formatter, error) {
	f := &Formatter{
		format:   format,
		writer:   w,
		keyColor: color.New(color.FgCyan),
	}
	// Colors are opt-in
	f.keyColor.DisableColor()
	for _, option := range options {
		option(f)
	}
	switch format {
	case FormatJSON, FormatYAML, FormatText:
	case FormatCBOR:
		enc, err := cbor.NewEncoder(w)
		if err != nil {
			return nil, err
		}
		f.cborEnc = enc
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	return f, nil
}

// Write outputs one value
func (f *Formatter) Write(v any) error {
	defer func() { f.docCount++ }()
	if f.format == FormatJSON {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal json: %w", err)
		}
		_, err = fmt.Fprintln(f.writer, string(data))
		return err
	}
	// The remaining formats work from the JSON form so that custom JSON
	// encodings, such as operations as pairs, carry over
	generic, err := toGeneric(v)
	if err != nil {
		return err
	}
	switch f.format {
	case FormatYAML:
		return f.writeYAML(generic)
	case FormatCBOR:
		if err := f.cborEnc.Encode(generic); err != nil {
			return fmt.Errorf("encode cbor: %w", err)
		}
		return nil
	default:
		return f.writeText(generic)
	}
}

func (f *Formatter) writeYAML(v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if f.docCount > 0 {
		if _, err := io.WriteString(f.writer, "---\n"); err != nil {
			return err
		}
	}
	_, err = f.writer.Write(data)
	return err
}

func (f *Formatter) writeText(v any) error {
	if f.docCount > 0 {
		if _, err := io.WriteString(f.writer, "\n"); err != nil {
			return err
		}
	}
	var lines []string
	flatten("", v, &lines, f.keyColor)
	for _, line := range lines {
		if _, err := fmt.Fprintln(f.writer, line); err != nil {
			return err
		}
	}
	return nil
}

// flatten renders v as "key.path: value" lines with map keys sorted
func flatten(prefix string, v any, lines *[]string, keyColor *color.Color) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flatten(joinKey(prefix, k), val[k], lines, keyColor)
		}
		if len(keys) == 0 && prefix != "" {
			*lines = append(*lines, keyColor.Sprint(prefix)+": {}")
		}
	case []any:
		for idx, item := range val {
			flatten(joinKey(prefix, strconv.Itoa(idx)), item, lines, keyColor)
		}
		if len(val) == 0 && prefix != "" {
			*lines = append(*lines, keyColor.Sprint(prefix)+": []")
		}
	default:
		if prefix == "" {
			*lines = append(*lines, formatScalar(val))
			return
		}
		*lines = append(*lines, keyColor.Sprint(prefix)+": "+formatScalar(val))
	}
}

func joinKey(prefix string, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func formatScalar(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

// toGeneric converts v to maps, slices and scalars through its JSON form.
// Integers stay integers
func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var ret any
	if err := dec.Decode(&ret); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return normalizeNumbers(ret), nil
}

func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeNumbers(item)
		}
		return val
	case []any:
		for idx, item := range val {
			val[idx] = normalizeNumbers(item)
		}
		return val
	case json.Number:
		if i, err := strconv.ParseInt(string(val), 10, 64); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(string(val), 10, 64); err == nil {
			return u
		}
		if fl, err := val.Float64(); err == nil {
			return fl
		}
		return string(val)
	default:
		return v
	}
}
