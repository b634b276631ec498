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
	"github.com/blinklabs-io/gosteem/protocol/common"
	"github.com/jinzhu/copier"
)

// BlockEvent is emitted by the BlockFetcher for every new block
type BlockEvent struct {
	BlockNum uint64        `json:"block_num"`
	Block    *common.Block `json:"block"`
}

// TransactionEvent is emitted by the TransactionSplitter for every
// transaction, in block order
type TransactionEvent struct {
	BlockNum      uint64              `json:"block_num"`
	Index         int                 `json:"index"`
	TransactionId string              `json:"transaction_id"`
	Transaction   *common.Transaction `json:"transaction"`
}

// OperationEvent is emitted by the OperationSplitter for every operation, in
// transaction order
type OperationEvent struct {
	BlockNum      uint64            `json:"block_num"`
	TxIndex       int               `json:"tx_index"`
	OpIndex       int               `json:"op_index"`
	TransactionId string            `json:"transaction_id"`
	Operation     *common.Operation `json:"operation"`
}

// copier does not see the unexported fields of time.Time, so timestamps are
// copied by value
var copyOption = copier.Option{
	DeepCopy: true,
	Converters: []copier.TypeConverter{
		{
			SrcType: common.Time{},
			DstType: common.Time{},
			Fn: func(src any) (any, error) {
				return src.(common.Time), nil
			},
		},
	},
}

// deepCopy returns a copy of src that shares no memory with it
func deepCopy[T any](src *T) (*T, error) {
	dst := new(T)
	if err := copier.CopyWithOption(dst, src, copyOption); err != nil {
		return nil, err
	}
	return dst, nil
}
