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

package steem

// Network describes a public chain
type Network struct {
	Name          string
	ChainId       string
	AddressPrefix string
	PublicURL     string
}

// Network definitions
var (
	NetworkMainnet = Network{
		Name:          "mainnet",
		ChainId:       "0000000000000000000000000000000000000000000000000000000000000000",
		AddressPrefix: "STM",
		PublicURL:     "wss://steemd.steemit.com",
	}
	NetworkTestnet = Network{
		Name:          "testnet",
		ChainId:       "46d82ab7d8db682eb1959aed0ada039a6d49afa1602491f93dde9cac3e8e6c32",
		AddressPrefix: "TST",
	}

	NetworkInvalid = Network{
		Name: "invalid",
	} // NetworkInvalid is used as a return value for lookup functions when a network isn't found
)

// List of valid networks for use in lookup functions
var networks = []Network{
	NetworkMainnet,
	NetworkTestnet,
}

// NetworkByName returns a predefined network by name
func NetworkByName(name string) Network {
	for _, network := range networks {
		if network.Name == name {
			return network
		}
	}
	return NetworkInvalid
}

// NetworkByChainId returns a predefined network by chain id
func NetworkByChainId(chainId string) Network {
	for _, network := range networks {
		if network.ChainId == chainId {
			return network
		}
	}
	return NetworkInvalid
}

// String returns the network name
func (n Network) String() string {
	return n.Name
}
