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
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunOnce(t *testing.T) {
	for _, n := range []int{0, 1, 7, 1000} {
		_, err := runOnce(n)
		require.NoError(t, err)
	}
}

func TestRun(t *testing.T) {
	cfg := &Config{N: 5000, Runs: 3}
	var out bytes.Buffer
	require.NoError(t, run(cfg, zap.NewNop(), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	re := regexp.MustCompile(`^\d+ ms$`)
	for _, l := range lines {
		require.Regexp(t, re, l)
	}
}

func TestRunLogsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cfg := &Config{N: 100, Runs: 2}
	require.NoError(t, run(cfg, zap.New(core), &bytes.Buffer{}))

	runs := logs.FilterMessage("run complete").All()
	require.Len(t, runs, 2)
	for i, e := range runs {
		fields := e.ContextMap()
		require.EqualValues(t, i, fields["run"])
		require.EqualValues(t, 100, fields["n"])
		require.Contains(t, fields, "elapsed")
	}
	require.Equal(t, 1, logs.FilterMessage("benchmark complete").Len())
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(&LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	require.NotNil(t, logger)

	filename := filepath.Join(t.TempDir(), "probebench.log")
	logger, err = newLogger(&LogConfig{
		Level:    "info",
		Format:   "json",
		Filename: filename,
		MaxSize:  1,
	})
	require.NoError(t, err)
	logger.Info("hello", zap.Int("n", 1))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"hello"`)
	require.Contains(t, string(data), `"n":1`)

	_, err = newLogger(&LogConfig{Level: "info", Format: "xml"})
	require.Error(t, err)
	_, err = newLogger(&LogConfig{Level: "loud", Format: "json"})
	require.Error(t, err)
}
