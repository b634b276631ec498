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

// Package common contains the chain data types shared by the client and the
// stream pipeline
package common

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// TimeFormat is the layout nodes use for timestamps. It carries no zone and is always UTC
const TimeFormat = "2006-01-02T15:04:05"

// Time is a node timestamp
type Time struct {
	time.Time
}

func NewTime(t time.Time) Time {
	return Time{Time: t.UTC()}
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(TimeFormat))
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var tmp string
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	if tmp == "" {
		t.Time = time.Time{}
		return nil
	}
	// Some nodes append a zone designator
	tmp = strings.TrimSuffix(tmp, "Z")
	parsed, err := time.ParseInLocation(TimeFormat, tmp, time.UTC)
	if err != nil {
		return fmt.Errorf("parse time %q: %w", tmp, err)
	}
	t.Time = parsed
	return nil
}

func (t Time) String() string {
	return t.UTC().Format(TimeFormat)
}

// BlockId is the hex encoded identity of a block. Its first four bytes hold
// the block number in big-endian order
type BlockId string

// BlockNum returns the block number embedded in the id
func (b BlockId) BlockNum() (uint64, error) {
	if len(b) < 8 {
		return 0, fmt.Errorf("block id too short: %q", string(b))
	}
	prefix, err := hex.DecodeString(string(b[:8]))
	if err != nil {
		return 0, fmt.Errorf("decode block id %q: %w", string(b), err)
	}
	return uint64(binary.BigEndian.Uint32(prefix)), nil
}

func (b BlockId) String() string {
	return string(b)
}

// Asset is an amount of a chain asset. Nodes report it either as a string
// like "1.000 STEEM" or as {"amount": "1000", "precision": 3, "nai": "@@000000021"}
type Asset struct {
	Amount    string
	Precision int
	Symbol    string
	Nai       string
}

func (a Asset) MarshalJSON() ([]byte, error) {
	if a.Nai != "" {
		return json.Marshal(
			map[string]any{
				"amount":    a.Amount,
				"precision": a.Precision,
				"nai":       a.Nai,
			},
		)
	}
	return json.Marshal(a.String())
}

func (a *Asset) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '{' {
		var tmp struct {
			Amount    string `json:"amount"`
			Precision int    `json:"precision"`
			Nai       string `json:"nai"`
		}
		if err := json.Unmarshal(data, &tmp); err != nil {
			return err
		}
		*a = Asset{Amount: tmp.Amount, Precision: tmp.Precision, Nai: tmp.Nai}
		return nil
	}
	var tmp string
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	amount, symbol, _ := strings.Cut(tmp, " ")
	*a = Asset{Amount: amount, Symbol: symbol}
	if _, frac, ok := strings.Cut(amount, "."); ok {
		a.Precision = len(frac)
	}
	return nil
}

func (a Asset) String() string {
	if a.Symbol == "" {
		return a.Amount
	}
	return a.Amount + " " + a.Symbol
}
