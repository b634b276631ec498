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
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	steem "github.com/blinklabs-io/gosteem"
	"github.com/blinklabs-io/gosteem/internal/output"
	"github.com/blinklabs-io/gosteem/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const EnvPrefix = "GOSTEEM"

type GlobalConfig struct {
	URL            string
	Network        string
	APIIds         map[string]int
	Bootstrap      bool
	LogLevel       string
	LogFormat      string
	LogFile        string
	Output         output.Format
	Color          bool
	RequestTimeout time.Duration
	MaxInFlight    int
	MetricsAddr    string
}

// AddGlobalFlags registers the flags shared by every subcommand and binds them to v
func AddGlobalFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file (yaml, toml or json)")
	flags.String("url", "", "WebSocket URL of the node. Overrides the network's public URL")
	flags.String("network", steem.NetworkMainnet.Name, "network that the node is participating in")
	flags.String("api-ids", "", "known API ids in name=id,... format")
	flags.Bool("bootstrap", true, "resolve API ids with login_api after connecting")
	flags.String("log-level", "info", "log level (debug, info, error)")
	flags.String("log-format", "plain", "log format (plain, json)")
	flags.String("log-file", "", "write logs to a rotated file instead of stderr")
	flags.StringP("output", "o", string(output.FormatJSON), "output format (json, yaml, cbor, text)")
	flags.Bool("color", false, "color keys in text output")
	flags.Duration("request-timeout", 0, "fail requests without a response after this long (0 waits forever)")
	flags.Int("max-in-flight", 0, "maximum number of requests awaiting a response (0 uses the default)")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address, such as :9100")
	if err := v.BindPFlags(flags); err != nil {
		return err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return nil
}

// LoadGlobalConfig reads the optional config file and returns the merged
// flag, environment and file settings
func LoadGlobalConfig(v *viper.Viper) (*GlobalConfig, error) {
	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	format, err := output.ParseFormat(v.GetString("output"))
	if err != nil {
		return nil, err
	}
	apiIds, err := ParseAPIIds(v.GetString("api-ids"))
	if err != nil {
		return nil, err
	}
	cfg := &GlobalConfig{
		URL:            v.GetString("url"),
		Network:        v.GetString("network"),
		APIIds:         apiIds,
		Bootstrap:      v.GetBool("bootstrap"),
		LogLevel:       v.GetString("log-level"),
		LogFormat:      v.GetString("log-format"),
		LogFile:        v.GetString("log-file"),
		Output:         format,
		Color:          v.GetBool("color"),
		RequestTimeout: v.GetDuration("request-timeout"),
		MaxInFlight:    v.GetInt("max-in-flight"),
		MetricsAddr:    v.GetString("metrics-addr"),
	}
	if steem.NetworkByName(cfg.Network) == steem.NetworkInvalid {
		return nil, fmt.Errorf("invalid network specified: %s", cfg.Network)
	}
	if cfg.RequestTimeout < 0 {
		return nil, errors.New("request timeout must not be negative")
	}
	return cfg, nil
}

// ParseAPIIds parses "name=id,..." into a map. An empty string gives a nil map
func ParseAPIIds(value string) (map[string]int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	ret := make(map[string]int)
	for _, pair := range strings.Split(value, ",") {
		name, idStr, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid api id %q: expected name=id", pair)
		}
		id, err := strconv.Atoi(idStr)
		if err != nil || id < 0 {
			return nil, fmt.Errorf("invalid api id %q: id must be a non-negative integer", pair)
		}
		ret[name] = id
	}
	return ret, nil
}

// NewLogger returns the logger for the configured format and level. The
// returned closer releases the log file, if any
func (c *GlobalConfig) NewLogger() (log.Logger, io.Closer, error) {
	var w io.WriteCloser = nopCloser{os.Stderr}
	if c.LogFile != "" {
		w = log.NewFileWriter(
			log.FileConfig{
				Path:       c.LogFile,
				MaxSizeMB:  100,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
		)
	}
	logger, err := log.NewLogger(w, c.LogFormat, c.LogLevel)
	if err != nil {
		w.Close()
		return nil, nil, err
	}
	return logger, w, nil
}

// NewFormatter returns the output formatter for w
func (c *GlobalConfig) NewFormatter(w io.Writer) (*output.Formatter, error) {
	return output.NewFormatter(c.Output, w, output.WithColor(c.Color))
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}
