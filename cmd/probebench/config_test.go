// Copyright 2024 The Cockroach Authors
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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "probebench.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfigFromFile("")
	require.NoError(t, err)
	require.Equal(t, defaultN, cfg.N)
	require.Equal(t, defaultRuns, cfg.Runs)
	require.Equal(t, defaultLogLevel, cfg.Log.Level)
	require.Equal(t, defaultLogFormat, cfg.Log.Format)
	require.NoError(t, cfg.validate())
}

func TestParseConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
n = 1000
runs = 3

[log]
level = "debug"
format = "json"
max-days = 7
`)
	cfg, err := parseConfigFromFile(path)
	require.NoError(t, err)
	require.Equal(t, 1000, cfg.N)
	require.Equal(t, 3, cfg.Runs)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, 7, cfg.Log.MaxDays)
	require.Equal(t, defaultLogMaxSize, cfg.Log.MaxSize)
	require.NoError(t, cfg.validate())
}

func TestParseConfigErrors(t *testing.T) {
	testCases := []struct {
		name     string
		contents string
	}{
		{"unknown-key", "n = 10\nbogus = 1\n"},
		{"bad-type", "n = \"ten\"\n"},
		{"malformed", "n = \n"},
	}
	for _, c := range testCases {
		t.Run(c.name, func(t *testing.T) {
			_, err := parseConfigFromFile(writeConfig(t, c.contents))
			require.Error(t, err)
		})
	}

	_, err := parseConfigFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		cfg Config
		err string
	}{
		{Config{N: 10, Runs: 1, Log: LogConfig{Format: "console"}}, ""},
		{Config{N: 10, Runs: 1, Log: LogConfig{Format: "json"}}, ""},
		{Config{N: 0, Runs: 0, Log: LogConfig{Format: "json"}}, ""},
		{Config{N: -1, Runs: 1, Log: LogConfig{Format: "json"}}, "n must not be negative, got -1"},
		{Config{N: 10, Runs: -1, Log: LogConfig{Format: "json"}}, "runs must not be negative, got -1"},
		{Config{N: 10, Runs: 1, Log: LogConfig{Format: "xml"}}, "unsupported log format: xml"},
	}
	for _, c := range testCases {
		t.Run("", func(t *testing.T) {
			err := c.cfg.validate()
			if c.err == "" {
				require.NoError(t, err)
			} else {
				require.EqualError(t, err, c.err)
			}
		})
	}
}
