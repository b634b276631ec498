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

package main

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newHeadCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "head",
		Short: "Print the current head and last irreversible block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()
			props, err := client.GetDynamicGlobalProperties(cmd.Context())
			if err != nil {
				return err
			}
			f, err := a.formatter()
			if err != nil {
				return err
			}
			return f.Write(props.Head())
		},
	}
}

func newBlockCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "block <num>",
		Short: "Fetch and print one block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blockNum, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid block number %q: %w", args[0], err)
			}
			client, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()
			block, err := client.GetBlock(cmd.Context(), blockNum)
			if err != nil {
				return err
			}
			f, err := a.formatter()
			if err != nil {
				return err
			}
			return f.Write(block)
		},
	}
}

func newCallCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "call <api> <method> [json-params]",
		Short: "Call any API method and print the raw result",
		Long: "Call any API method and print the raw result. Params are a JSON array,\n" +
			"such as '[\"alice\", \"\", \"blog\", 10]'",
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params []any
			if len(args) == 3 {
				if err := json.Unmarshal([]byte(args[2]), &params); err != nil {
					return fmt.Errorf("params must be a JSON array: %w", err)
				}
			}
			client, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()
			result, err := client.Send(cmd.Context(), args[0], args[1], params...)
			if err != nil {
				return err
			}
			f, err := a.formatter()
			if err != nil {
				return err
			}
			return f.Write(result)
		},
	}
}
