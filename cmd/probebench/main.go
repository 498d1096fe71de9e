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

// probebench times sequential inserts and lookups of integer keys into a
// probemap.Map, verifying every operation as it goes.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
)

var (
	configFile = flag.String("cfg", "", "toml configuration file")
	n          = flag.Int("n", 0, "number of keys per run (overrides the config file)")
	runs       = flag.Int("runs", 0, "number of runs (overrides the config file)")
)

func main() {
	flag.Parse()

	cfg, err := parseConfigFromFile(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse config: %v\n", err)
		os.Exit(2)
	}
	if *n != 0 {
		cfg.N = *n
	}
	if *runs != 0 {
		cfg.Runs = *runs
	}
	if err := cfg.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger, os.Stdout); err != nil {
		logger.Error("benchmark failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
