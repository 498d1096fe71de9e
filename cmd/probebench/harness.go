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
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/probemap"
	"go.uber.org/zap"
)

// runOnce inserts the keys [0, n) in increasing order into an empty map,
// checking after each insert that the key reads back and that the length
// grew by one. It returns the wall-clock time spent.
func runOnce(n int) (time.Duration, error) {
	m := probemap.New[int, int](0)
	start := time.Now()
	for i := 0; i < n; i++ {
		m.Put(i, i)
		if v, ok := m.Get(i); !ok || v != i {
			return 0, errors.Newf("get(%d) = %d, %t after put", i, v, ok)
		}
		if l := m.Len(); l != i+1 {
			return 0, errors.Newf("len = %d after inserting key %d, expected %d", l, i, i+1)
		}
	}
	return time.Since(start), nil
}

func run(cfg *Config, logger *zap.Logger, w io.Writer) error {
	logger.Info("starting benchmark", zap.Int("n", cfg.N), zap.Int("runs", cfg.Runs))
	var total time.Duration
	for r := 0; r < cfg.Runs; r++ {
		elapsed, err := runOnce(cfg.N)
		if err != nil {
			return errors.Wrapf(err, "run %d", r)
		}
		total += elapsed
		logger.Debug("run complete",
			zap.Int("run", r), zap.Int("n", cfg.N), zap.Duration("elapsed", elapsed))
		fmt.Fprintf(w, "%.0f ms\n", elapsed.Seconds()*1000)
	}
	if cfg.Runs > 0 {
		logger.Info("benchmark complete",
			zap.Duration("total", total),
			zap.Duration("mean", total/time.Duration(cfg.Runs)))
	}
	return nil
}
