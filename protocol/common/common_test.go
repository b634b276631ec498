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
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBlockJson = `{
	"previous": "0000006400000000000000000000000000000000",
	"timestamp": "2016-03-24T16:05:00",
	"witness": "initminer",
	"transaction_merkle_root": "0000000000000000000000000000000000000000",
	"extensions": [],
	"witness_signature": "1f00",
	"transactions": [
		{
			"ref_block_num": 100,
			"ref_block_prefix": 3921298386,
			"expiration": "2016-03-24T16:05:30",
			"operations": [
				["vote", {"voter": "alice", "author": "bob", "permlink": "hello", "weight": 10000}],
				["transfer", {"from": "alice", "to": "bob", "amount": "1.000 STEEM", "memo": ""}]
			],
			"extensions": [],
			"signatures": ["20ab"]
		}
	],
	"block_id": "00000065aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
	"signing_key": "STM1",
	"transaction_ids": ["a1b2"]
}`

func TestBlockDecode(t *testing.T) {
	var block Block
	require.NoError(t, json.Unmarshal([]byte(testBlockJson), &block))
	assert.Equal(t, "initminer", block.Witness)
	assert.Equal(t, time.Date(2016, 3, 24, 16, 5, 0, 0, time.UTC), block.Timestamp.Time)
	blockNum, err := block.BlockNum()
	require.NoError(t, err)
	assert.Equal(t, uint64(101), blockNum)
	idNum, err := block.BlockId.BlockNum()
	require.NoError(t, err)
	assert.Equal(t, uint64(101), idNum)

	require.Len(t, block.Transactions, 1)
	assert.Equal(t, "a1b2", block.TransactionId(0))
	assert.Equal(t, "", block.TransactionId(1))
	tx := block.Transactions[0]
	assert.Equal(t, uint64(3921298386), tx.RefBlockPrefix)
	require.Len(t, tx.Operations, 2)
	assert.Equal(t, "vote", tx.Operations[0].Type)
	assert.Equal(t, "transfer", tx.Operations[1].Type)

	var vote VoteOperation
	require.NoError(t, tx.Operations[0].DecodeValue(&vote))
	assert.Equal(t, VoteOperation{Voter: "alice", Author: "bob", Permlink: "hello", Weight: 10000}, vote)
	var transfer TransferOperation
	require.NoError(t, tx.Operations[1].DecodeValue(&transfer))
	assert.Equal(t, "1.000 STEEM", transfer.Amount)
}

func TestOperationJson(t *testing.T) {
	testDefs := []struct {
		name      string
		input     string
		opType    string
		value     string
		expectErr bool
	}{
		{
			name:   "array form",
			input:  `["vote", {"voter": "alice"}]`,
			opType: "vote",
			value:  `{"voter": "alice"}`,
		},
		{
			name:   "object form",
			input:  `{"type": "vote_operation", "value": {"voter": "alice"}}`,
			opType: "vote_operation",
			value:  `{"voter": "alice"}`,
		},
		{
			name:      "wrong array length",
			input:     `["vote"]`,
			expectErr: true,
		},
		{
			name:      "object without type",
			input:     `{"value": {}}`,
			expectErr: true,
		},
		{
			name:      "scalar",
			input:     `42`,
			expectErr: true,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			var op Operation
			err := json.Unmarshal([]byte(testDef.input), &op)
			if testDef.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testDef.opType, op.Type)
			assert.JSONEq(t, testDef.value, string(op.Value))
		})
	}

	// Operations are always written in array form
	data, err := json.Marshal(Operation{Type: "vote", Value: json.RawMessage(`{"voter":"alice"}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `["vote",{"voter":"alice"}]`, string(data))
}

func TestDynamicGlobalPropertiesDecode(t *testing.T) {
	input := `{
		"id": 0,
		"head_block_number": 102,
		"head_block_id": "00000066bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		"time": "2016-03-24T16:05:06",
		"current_witness": "initminer",
		"virtual_supply": "1000.000 STEEM",
		"current_supply": {"amount": "1000000", "precision": 3, "nai": "@@000000021"},
		"last_irreversible_block_num": 87
	}`
	var props DynamicGlobalProperties
	require.NoError(t, json.Unmarshal([]byte(input), &props))
	head := props.Head()
	assert.Equal(t, uint64(102), head.BlockNum)
	assert.Equal(t, uint64(87), head.LastIrreversibleBlockNum)
	assert.Equal(t, BlockId("00000066bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"), head.BlockId)
	assert.Equal(t, Asset{Amount: "1000.000", Precision: 3, Symbol: "STEEM"}, props.VirtualSupply)
	assert.Equal(t, "@@000000021", props.CurrentSupply.Nai)
	assert.Equal(t, "1000000", props.CurrentSupply.Amount)
}

func TestTime(t *testing.T) {
	var tmp Time
	require.NoError(t, json.Unmarshal([]byte(`"2016-03-24T16:05:00Z"`), &tmp))
	assert.Equal(t, "2016-03-24T16:05:00", tmp.String())
	data, err := json.Marshal(tmp)
	require.NoError(t, err)
	assert.Equal(t, `"2016-03-24T16:05:00"`, string(data))
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &tmp))
}

func TestBlockIdBlockNum(t *testing.T) {
	num, err := BlockId("0000000aff").BlockNum()
	require.NoError(t, err)
	assert.Equal(t, uint64(10), num)
	_, err = BlockId("0a").BlockNum()
	assert.Error(t, err)
	_, err = BlockId("zzzzzzzz").BlockNum()
	assert.Error(t, err)
}
