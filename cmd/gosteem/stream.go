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
	"errors"
	"fmt"
	"time"

	steem "github.com/blinklabs-io/gosteem"
	"github.com/blinklabs-io/gosteem/cmd/common"
	"github.com/blinklabs-io/gosteem/internal/output"
	"github.com/blinklabs-io/gosteem/pipeline"
	"github.com/blinklabs-io/gosteem/stream"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type streamFlags struct {
	interval        time.Duration
	irreversible    bool
	fillGaps        bool
	emitInitialHead bool
}

func (f *streamFlags) options() ([]pipeline.StreamOption, error) {
	opts := []pipeline.StreamOption{
		pipeline.WithFillGaps(f.fillGaps),
		pipeline.WithEmitInitialHead(f.emitInitialHead),
	}
	if f.irreversible {
		opts = append(opts, pipeline.WithHeadMode(pipeline.HeadModeIrreversible))
	}
	if f.interval < 0 {
		return nil, errors.New("interval must not be negative")
	}
	if f.interval > 0 {
		opts = append(opts, pipeline.WithInterval(f.interval))
	}
	return opts, nil
}

func newStreamCommand(a *app) *cobra.Command {
	flags := &streamFlags{}
	cmd := &cobra.Command{
		Use:       "stream numbers|blocks|transactions|operations",
		Short:     "Follow the chain and print each new item until interrupted",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"numbers", "blocks", "transactions", "operations"},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			return a.runStream(cmd.Context(), args[0], opts)
		},
	}
	cmd.Flags().DurationVar(&flags.interval, "interval", pipeline.DefaultInterval, "head polling interval")
	cmd.Flags().BoolVar(&flags.irreversible, "irreversible", false, "follow the last irreversible block instead of the head")
	cmd.Flags().BoolVar(&flags.fillGaps, "fill-gaps", false, "emit every block number skipped between two polls")
	cmd.Flags().BoolVar(&flags.emitInitialHead, "emit-initial-head", false, "emit the head observed on the first poll")
	return cmd
}

func (a *app) runStream(ctx context.Context, kind string, opts []pipeline.StreamOption) error {
	f, err := a.formatter()
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.MetricsAddr != "" {
		g.Go(func() error {
			return common.ServeMetrics(ctx, a.cfg.MetricsAddr, a.logger)
		})
	}
	g.Go(func() error {
		client, err := a.connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close()
		errChan := make(chan error, 1)
		sub := subscribeKind(client, kind, opts, f, errChan)
		defer sub.Unsubscribe()
		select {
		case <-ctx.Done():
			return nil
		case err := <-errChan:
			return err
		case err, ok := <-client.ErrorChan():
			if !ok {
				return nil
			}
			return err
		}
	})
	return g.Wait()
}

// subscribeKind starts the stream layer named by kind. Events are written
// with f and the first failure is sent on errChan
func subscribeKind(
	client *steem.Client,
	kind string,
	opts []pipeline.StreamOption,
	f *output.Formatter,
	errChan chan error,
) *stream.Subscription {
	switch kind {
	case "numbers":
		return client.HeadWatcher(opts...).Subscribe(writeHandler[uint64](f, errChan))
	case "blocks":
		return client.BlockStream(opts...).Subscribe(writeHandler[*pipeline.BlockEvent](f, errChan))
	case "transactions":
		return client.TransactionStream(opts...).Subscribe(writeHandler[*pipeline.TransactionEvent](f, errChan))
	default:
		return client.OperationStream(opts...).Subscribe(writeHandler[*pipeline.OperationEvent](f, errChan))
	}
}

func writeHandler[T any](f *output.Formatter, errChan chan error) pipeline.Handler[T] {
	report := func(err error) {
		select {
		case errChan <- err:
		default:
		}
	}
	return pipeline.Handler[T]{
		OnEvent: func(evt T) {
			if err := f.Write(evt); err != nil {
				report(fmt.Errorf("write output: %w", err))
			}
		},
		OnError: report,
	}
}
