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
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	steem "github.com/blinklabs-io/gosteem"
	"github.com/blinklabs-io/gosteem/cmd/common"
	"github.com/blinklabs-io/gosteem/internal/output"
	"github.com/blinklabs-io/gosteem/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the state shared by subcommands once flags are parsed
type app struct {
	viper     *viper.Viper
	cfg       *common.GlobalConfig
	logger    log.Logger
	logCloser io.Closer
	stdout    io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}

func newRootCommand(stdout io.Writer) *cobra.Command {
	a := &app{
		viper:  viper.New(),
		stdout: stdout,
	}
	cmd := &cobra.Command{
		Use:           "gosteem",
		Short:         "Query and follow a Steem node over JSON-RPC",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := common.LoadGlobalConfig(a.viper)
			if err != nil {
				return err
			}
			logger, closer, err := cfg.NewLogger()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			a.logCloser = closer
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logCloser != nil {
				return a.logCloser.Close()
			}
			return nil
		},
	}
	// Flag registration only fails on programming errors
	if err := common.AddGlobalFlags(cmd, a.viper); err != nil {
		panic(err)
	}
	cmd.AddCommand(
		newHeadCommand(a),
		newBlockCommand(a),
		newCallCommand(a),
		newStreamCommand(a),
	)
	return cmd
}

func (a *app) connect(ctx context.Context) (*steem.Client, error) {
	return common.CreateClient(ctx, a.cfg, a.logger)
}

func (a *app) formatter() (*output.Formatter, error) {
	return a.cfg.NewFormatter(a.stdout)
}
