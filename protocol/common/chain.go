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

// DynamicGlobalProperties is the result of database_api.get_dynamic_global_properties
type DynamicGlobalProperties struct {
	Id                       uint64  `json:"id"`
	HeadBlockNumber          uint64  `json:"head_block_number"`
	HeadBlockId              BlockId `json:"head_block_id"`
	Time                     Time    `json:"time"`
	CurrentWitness           string  `json:"current_witness"`
	TotalPow                 uint64  `json:"total_pow"`
	NumPowWitnesses          uint64  `json:"num_pow_witnesses"`
	VirtualSupply            Asset   `json:"virtual_supply"`
	CurrentSupply            Asset   `json:"current_supply"`
	ConfidentialSupply       Asset   `json:"confidential_supply"`
	CurrentSbdSupply         Asset   `json:"current_sbd_supply"`
	ConfidentialSbdSupply    Asset   `json:"confidential_sbd_supply"`
	TotalVestingFundSteem    Asset   `json:"total_vesting_fund_steem"`
	TotalVestingShares       Asset   `json:"total_vesting_shares"`
	TotalRewardFundSteem     Asset   `json:"total_reward_fund_steem"`
	TotalRewardShares2       string  `json:"total_reward_shares2"`
	SbdInterestRate          uint64  `json:"sbd_interest_rate"`
	SbdPrintRate             uint64  `json:"sbd_print_rate"`
	AverageBlockSize         uint64  `json:"average_block_size"`
	MaximumBlockSize         uint64  `json:"maximum_block_size"`
	CurrentAslot             uint64  `json:"current_aslot"`
	RecentSlotsFilled        string  `json:"recent_slots_filled"`
	ParticipationCount       uint64  `json:"participation_count"`
	LastIrreversibleBlockNum uint64  `json:"last_irreversible_block_num"`
	VotePowerReserveRate     uint64  `json:"vote_power_reserve_rate"`
}

// ChainHead identifies the most recent block a node reports
type ChainHead struct {
	BlockNum                 uint64  `json:"block_num"`
	BlockId                  BlockId `json:"block_id"`
	Time                     Time    `json:"time"`
	LastIrreversibleBlockNum uint64  `json:"last_irreversible_block_num"`
}

// Head returns the chain head described by the properties
func (p *DynamicGlobalProperties) Head() ChainHead {
	return ChainHead{
		BlockNum:                 p.HeadBlockNumber,
		BlockId:                  p.HeadBlockId,
		Time:                     p.Time,
		LastIrreversibleBlockNum: p.LastIrreversibleBlockNum,
	}
}

// Config is the result of database_api.get_config. Keys vary between node
// versions, so values are kept undecoded
type Config map[string]any
