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

package probemap

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const aristaNotice = `// Modifications copyright (c) Arista Networks, Inc. 2022
// Underlying
// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
`

// Files derived from the BSD-licensed gomap package must carry its notice
// first, and the LICENSE file it refers to must exist.
func TestCopyrightNotices(t *testing.T) {
	for _, name := range []string{"funcs.go", "funcs_test.go", "example_test.go"} {
		t.Run(name, func(t *testing.T) {
			data, err := os.ReadFile(name)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(string(data), aristaNotice),
				"%s does not start with the Arista/Go Authors notice", name)
			require.Contains(t, string(data), "Copyright 2024 The Cockroach Authors")
		})
	}

	license, err := os.ReadFile("LICENSE")
	require.NoError(t, err)
	require.Contains(t, string(license), "The Go Authors. All rights reserved.")
}
