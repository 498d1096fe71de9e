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

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
)

const (
	defaultN          = 300_000
	defaultRuns       = 1
	defaultLogLevel   = "info"
	defaultLogFormat  = "console"
	defaultLogMaxSize = 512
)

// Config is the probebench configuration. It is read from a TOML file and
// then overridden by any command line flags that were set.
type Config struct {
	// N is the number of sequential keys inserted per run.
	N int `toml:"n"`
	// Runs is the number of times the measurement is repeated, each on a
	// fresh map.
	Runs int `toml:"runs"`
	// Log configures the zap logger.
	Log LogConfig `toml:"log"`
}

// LogConfig configures logging. An empty Filename logs to stderr, otherwise
// output goes to a rotated file.
type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	Filename   string `toml:"filename"`
	MaxSize    int    `toml:"max-size"`
	MaxDays    int    `toml:"max-days"`
	MaxBackups int    `toml:"max-backups"`
}

func parseConfigFromFile(file string) (*Config, error) {
	cfg := &Config{}
	if file == "" {
		cfg.fill()
		return cfg, nil
	}
	if _, err := os.Stat(file); err != nil {
		return nil, errors.Wrapf(err, "config file %s", file)
	}
	md, err := toml.DecodeFile(file, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", file)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Newf("%s: unknown config keys %v", file, undecoded)
	}
	cfg.fill()
	return cfg, nil
}

// fill sets defaults for every field left unset.
func (c *Config) fill() {
	if c.N == 0 {
		c.N = defaultN
	}
	if c.Runs == 0 {
		c.Runs = defaultRuns
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}
	if c.Log.MaxSize == 0 {
		c.Log.MaxSize = defaultLogMaxSize
	}
}

func (c *Config) validate() error {
	if c.N < 0 {
		return errors.Newf("n must not be negative, got %d", c.N)
	}
	if c.Runs < 0 {
		return errors.Newf("runs must not be negative, got %d", c.Runs)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return errors.Newf("unsupported log format: %s", c.Log.Format)
	}
	return nil
}
