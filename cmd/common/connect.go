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
	"context"
	"errors"
	"net/http"
	"time"

	steem "github.com/blinklabs-io/gosteem"
	"github.com/blinklabs-io/gosteem/log"
	"github.com/blinklabs-io/gosteem/pipeline"
	"github.com/blinklabs-io/gosteem/protocol"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const MetricsNamespace = "gosteem"

// ClientOptions returns the client options for the configuration. Metrics are
// Prometheus-backed only when a metrics address is set
func (c *GlobalConfig) ClientOptions(logger log.Logger) []steem.ClientOptionFunc {
	opts := []steem.ClientOptionFunc{
		steem.WithLogger(logger),
		steem.WithBootstrap(c.Bootstrap),
		steem.WithRequestTimeout(c.RequestTimeout),
		steem.WithMaxInFlight(c.MaxInFlight),
	}
	if c.URL != "" {
		opts = append(opts, steem.WithURL(c.URL))
	}
	opts = append(opts, steem.WithNetwork(steem.NetworkByName(c.Network)))
	if c.APIIds != nil {
		ids := protocol.DefaultAPIIds()
		for name, id := range c.APIIds {
			ids[name] = id
		}
		opts = append(opts, steem.WithAPIIds(ids))
	}
	if c.MetricsAddr != "" {
		opts = append(
			opts,
			steem.WithMetrics(protocol.PrometheusMetrics(MetricsNamespace)),
			steem.WithStreamOptions(pipeline.WithMetrics(pipeline.PrometheusMetrics(MetricsNamespace))),
		)
	}
	return opts
}

// CreateClient connects to the configured node
func CreateClient(ctx context.Context, cfg *GlobalConfig, logger log.Logger, options ...steem.ClientOptionFunc) (*steem.Client, error) {
	return steem.Connect(
		ctx,
		append(cfg.ClientOptions(logger), options...)...,
	)
}

// ServeMetrics serves Prometheus metrics on addr until ctx is done
func ServeMetrics(ctx context.Context, addr string, logger log.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", "addr", addr)
		errChan <- server.ListenAndServe()
	}()
	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errChan; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
