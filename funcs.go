// Modifications copyright (c) Arista Networks, Inc. 2022
// Underlying
// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
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
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// String converts m to a string representation using K's and V's String
// functions. Entries are sorted by their key's string form so the result
// does not depend on slot order.
func String[K interface {
	comparable
	fmt.Stringer
}, V fmt.Stringer](m *Map[K, V]) string {
	return StringFunc(m,
		func(key K) string { return key.String() },
		func(value V) string { return value.String() },
	)
}

type strKV struct {
	k string
	v string
}

// StringFunc converts m to a string representation with the help of strK and
// strV functions to stringify m's keys and values.
func StringFunc[K comparable, V any](m *Map[K, V],
	strK func(key K) string,
	strV func(value V) string) string {
	if m == nil || m.Len() == 0 {
		return "probemap.Map[]"
	}
	strs := make([]strKV, 0, m.Len())
	var n int
	m.All(func(k K, v V) bool {
		kv := strKV{k: strK(k), v: strV(v)}
		n += len(kv.k) + len(kv.v)
		strs = append(strs, kv)
		return true
	})
	slices.SortFunc(strs, func(a, b strKV) bool { return a.k < b.k })

	var b strings.Builder
	b.Grow(len("probemap.Map[]") + // header and footer
		len(strs)*2 - 1 + // delimiters
		n) // keys and values
	b.WriteString("probemap.Map[")
	for i, kv := range strs {
		if i != 0 {
			b.WriteByte(' ')
		}
		b.WriteString(kv.k)
		b.WriteByte(':')
		b.WriteString(kv.v)
	}
	b.WriteByte(']')
	return b.String()
}

// Equal returns true if the same set of keys and values are in m1 and m2.
// Values are compared using ==.
func Equal[K, V comparable](m1, m2 *Map[K, V]) bool {
	return EqualFunc(m1, m2, func(a, b V) bool { return a == b })
}

// EqualFunc returns true if the same set of keys and values are in m1 and
// m2. Values are compared using eq.
func EqualFunc[K comparable, V any](m1, m2 *Map[K, V], eq func(V, V) bool) bool {
	if m1.Len() != m2.Len() {
		return false
	}
	if m1.Len() == 0 {
		return true
	}
	equal := true
	m1.All(func(k K, v1 V) bool {
		v2, ok := m2.Get(k)
		equal = ok && eq(v1, v2)
		return equal
	})
	return equal
}
