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

package common

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// BlockHeader is the result of database_api.get_block_header
type BlockHeader struct {
	Previous              BlockId           `json:"previous"`
	Timestamp             Time              `json:"timestamp"`
	Witness               string            `json:"witness"`
	TransactionMerkleRoot string            `json:"transaction_merkle_root"`
	Extensions            []json.RawMessage `json:"extensions"`
}

// BlockNum returns the number of the block following Previous
func (h *BlockHeader) BlockNum() (uint64, error) {
	prev, err := h.Previous.BlockNum()
	if err != nil {
		return 0, err
	}
	return prev + 1, nil
}

// Block is the result of database_api.get_block
type Block struct {
	BlockHeader
	WitnessSignature string        `json:"witness_signature"`
	Transactions     []Transaction `json:"transactions"`
	BlockId          BlockId       `json:"block_id,omitempty"`
	SigningKey       string        `json:"signing_key,omitempty"`
	TransactionIds   []string      `json:"transaction_ids,omitempty"`
}

// TransactionId returns the id of the transaction at idx, or an empty string
// when the node did not report one
func (b *Block) TransactionId(idx int) string {
	if idx < 0 || idx >= len(b.TransactionIds) {
		return ""
	}
	return b.TransactionIds[idx]
}

// Transaction is a signed transaction as found in a block
type Transaction struct {
	RefBlockNum    uint64            `json:"ref_block_num"`
	RefBlockPrefix uint64            `json:"ref_block_prefix"`
	Expiration     Time              `json:"expiration"`
	Operations     []Operation       `json:"operations"`
	Extensions     []json.RawMessage `json:"extensions"`
	Signatures     []string          `json:"signatures"`
	TransactionId  string            `json:"transaction_id,omitempty"`
	BlockNum       uint64            `json:"block_num,omitempty"`
	TransactionNum uint64            `json:"transaction_num,omitempty"`
}

// Operation is one operation of a transaction. On the wire it is the
// two-element array [type, value]
type Operation struct {
	Type  string
	Value json.RawMessage
}

// ErrInvalidOperation is returned when an operation is neither a [type, value]
// pair nor a {"type", "value"} object
var ErrInvalidOperation = errors.New("invalid operation")

func (o Operation) MarshalJSON() ([]byte, error) {
	value := o.Value
	if len(value) == 0 {
		value = json.RawMessage(`{}`)
	}
	return json.Marshal([]any{o.Type, value})
}

func (o *Operation) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ErrInvalidOperation
	}
	switch data[0] {
	case '[':
		var tmp []json.RawMessage
		if err := json.Unmarshal(data, &tmp); err != nil {
			return err
		}
		if len(tmp) != 2 {
			return fmt.Errorf("%w: expected 2 elements, got %d", ErrInvalidOperation, len(tmp))
		}
		if err := json.Unmarshal(tmp[0], &o.Type); err != nil {
			return fmt.Errorf("%w: type: %w", ErrInvalidOperation, err)
		}
		o.Value = tmp[1]
	case '{':
		// Newer nodes use {"type": "vote_operation", "value": {...}}
		var tmp struct {
			Type  string          `json:"type"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(data, &tmp); err != nil {
			return err
		}
		if tmp.Type == "" {
			return fmt.Errorf("%w: missing type", ErrInvalidOperation)
		}
		o.Type = tmp.Type
		o.Value = tmp.Value
	default:
		return fmt.Errorf("%w: %s", ErrInvalidOperation, data)
	}
	return nil
}

// DecodeValue decodes the operation body into dest
func (o *Operation) DecodeValue(dest any) error {
	return json.Unmarshal(o.Value, dest)
}

// VoteOperation is the body of a "vote" operation
type VoteOperation struct {
	Voter    string `json:"voter"`
	Author   string `json:"author"`
	Permlink string `json:"permlink"`
	Weight   int64  `json:"weight"`
}

// TransferOperation is the body of a "transfer" operation
type TransferOperation struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
	Memo   string `json:"memo"`
}
