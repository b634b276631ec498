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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blinklabs-io/gosteem/internal/output"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommand(t *testing.T, args ...string) *viper.Viper {
	t.Helper()
	v := viper.New()
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	require.NoError(t, AddGlobalFlags(cmd, v))
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return v
}

func TestParseAPIIds(t *testing.T) {
	ids, err := ParseAPIIds("database_api=0, follow_api=3")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"database_api": 0, "follow_api": 3}, ids)

	ids, err = ParseAPIIds("")
	require.NoError(t, err)
	assert.Nil(t, ids)

	for _, bad := range []string{"follow_api", "=3", "follow_api=x", "follow_api=-1"} {
		_, err := ParseAPIIds(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoadGlobalConfigDefaults(t *testing.T) {
	v := newTestCommand(t)
	cfg, err := LoadGlobalConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "mainnet", cfg.Network)
	assert.Equal(t, output.FormatJSON, cfg.Output)
	assert.True(t, cfg.Bootstrap)
	assert.Nil(t, cfg.APIIds)
	assert.Zero(t, cfg.RequestTimeout)
}

func TestLoadGlobalConfigFlagsAndEnv(t *testing.T) {
	t.Setenv("GOSTEEM_LOG_LEVEL", "debug")
	v := newTestCommand(t, "--output", "yaml", "--request-timeout", "3s", "--api-ids", "follow_api=3")
	cfg, err := LoadGlobalConfig(v)
	require.NoError(t, err)
	assert.Equal(t, output.FormatYAML, cfg.Output)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, map[string]int{"follow_api": 3}, cfg.APIIds)
}

func TestLoadGlobalConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gosteem.yaml")
	require.NoError(t, os.WriteFile(path, []byte("url: ws://127.0.0.1:8090\nmax-in-flight: 4\n"), 0o600))
	v := newTestCommand(t, "--config", path)
	cfg, err := LoadGlobalConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:8090", cfg.URL)
	assert.Equal(t, 4, cfg.MaxInFlight)
}

func TestLoadGlobalConfigInvalid(t *testing.T) {
	_, err := LoadGlobalConfig(newTestCommand(t, "--output", "xml"))
	assert.ErrorIs(t, err, output.ErrUnknownFormat)
	_, err = LoadGlobalConfig(newTestCommand(t, "--network", "bogus"))
	assert.Error(t, err)
}

func TestNewLoggerFile(t *testing.T) {
	cfg := &GlobalConfig{
		LogFile:   filepath.Join(t.TempDir(), "gosteem.log"),
		LogFormat: "json",
		LogLevel:  "info",
	}
	logger, closer, err := cfg.NewLogger()
	require.NoError(t, err)
	logger.Info("hello", "component", "test")
	require.NoError(t, closer.Close())
	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"hello"`)
}
