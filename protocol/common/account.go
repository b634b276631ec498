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
	"github.com/goccy/go-json"
)

// Account is one entry of the result of database_api.get_accounts
type Account struct {
	Id                uint64          `json:"id"`
	Name              string          `json:"name"`
	Owner             json.RawMessage `json:"owner"`
	Active            json.RawMessage `json:"active"`
	Posting           json.RawMessage `json:"posting"`
	MemoKey           string          `json:"memo_key"`
	JsonMetadata      string          `json:"json_metadata"`
	Proxy             string          `json:"proxy"`
	Created           Time            `json:"created"`
	LastActivityTime  Time            `json:"last_bandwidth_update"`
	PostCount         uint64          `json:"post_count"`
	VotingPower       uint64          `json:"voting_power"`
	Balance           Asset           `json:"balance"`
	SavingsBalance    Asset           `json:"savings_balance"`
	SbdBalance        Asset           `json:"sbd_balance"`
	VestingShares     Asset           `json:"vesting_shares"`
	DelegatedVesting  Asset           `json:"delegated_vesting_shares"`
	ReceivedVesting   Asset           `json:"received_vesting_shares"`
	WitnessesVotedFor uint64          `json:"witnesses_voted_for"`
}
