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

// package probemap is a Go implementation of an open-addressing hash table
// using linear probing bounded by a cached maximum probe offset.
//
// # Linear probing
//
// All entries live directly in a single slot array whose length is always a
// power of 2, so hash(key)%N can be computed as hash(key)&(N-1). A key is
// placed at its ideal slot hash(key)&mask, or, if that slot is occupied, at
// the first empty slot found by walking i, i+1, i+2, ... (wrapping via the
// mask). See https://en.wikipedia.org/wiki/Linear_probing.
//
// # Bounded probes
//
// The classic linear probing table terminates a lookup at the first empty
// slot. That forces deletion to either shift entries backwards or leave
// tombstones behind, and tombstones make lookups after many deletions scan
// long runs of dead slots. Map does neither. It tracks maxProbe, the largest
// number of steps past the ideal slot that any insertion has needed since the
// last resize, and a lookup gives up after maxProbe+1 probes regardless of
// whether it passed empty slots on the way. No key can live farther than
// maxProbe steps from its ideal slot, so the bound is exact for misses and
// deleting an entry simply clears its slot.
//
// maxProbe only ever grows between resizes. A table that sees many deletions
// keeps the bound of its worst historical insertion until the next resize
// recomputes it from the surviving entries.
//
// # Growth
//
// The table doubles (starting at 8 slots) whenever an insertion would push
// the load factor above 3/4. Resizing allocates a new slot array and
// reinserts every entry in slot order using the same placement routine as
// Put, which rebuilds maxProbe from scratch.
package probemap

import (
	"fmt"
	"hash/maphash"
	"math/rand/v2"
	"strings"
)

const (
	debug = false

	// The capacity of a table on its first growth.
	minCapacity = 8

	// Maximum load factor before growing, as a fraction to allow integer
	// math.
	maxLoadNum = 3
	maxLoadDen = 4
)

// Slot holds a key and value. The full flag distinguishes an occupied slot
// from an empty one; the key and value of an empty slot are zero.
type Slot[K comparable, V any] struct {
	key   K
	value V
	full  bool
}

// Map is an unordered map from keys to values with Put, Get, Delete, Clear,
// and All operations. By default a Map[K,V] hashes keys with
// hash/maphash.Comparable, though a different hash function can be specified
// using the WithHash option.
//
// A Map is NOT goroutine-safe. Resizing rewrites the entire slot array, so
// concurrent use requires external locking around every operation.
type Map[K comparable, V any] struct {
	// The hash function for keys of type K, and the seed passed to it.
	hash hashFn[K]
	seed uintptr
	// The allocator to use for the slots slice.
	allocator Allocator[K, V]
	// slots has a power of 2 length, or is empty for a map that has never
	// grown (or has been cleared).
	slots []Slot[K, V]
	// The number of full slots (i.e. the number of elements in the map).
	used int
	// The largest number of probe steps past an ideal slot taken by any
	// insertion since the last resize. Lookups stop after maxProbe+1 probes.
	maxProbe uintptr
}

// New constructs a new Map with the specified initial capacity. If
// initialCapacity is 0 the map will start out with zero capacity and will
// grow on the first insert. The zero value for a Map is not usable.
func New[K comparable, V any](initialCapacity int, options ...option[K, V]) *Map[K, V] {
	m := &Map[K, V]{}
	m.Init(initialCapacity, options...)
	return m
}

// Init initializes a Map with the specified initial capacity. Init can be
// invoked on a Map that has already been used to reset it, in which case
// memory held by the previous incarnation is released to its allocator.
func (m *Map[K, V]) Init(initialCapacity int, options ...option[K, V]) {
	if m.allocator != nil && m.slots != nil {
		m.allocator.FreeSlots(m.slots)
	}

	seed := maphash.MakeSeed()
	*m = Map[K, V]{
		hash: func(key *K, _ uintptr) uintptr {
			return uintptr(maphash.Comparable(seed, *key))
		},
		seed:      uintptr(rand.Uint64()),
		allocator: defaultAllocator[K, V]{},
	}

	for _, op := range options {
		op.apply(m)
	}

	if initialCapacity > 0 {
		m.resize(capacityFor(initialCapacity))
	}
	m.checkInvariants()
}

// capacityFor returns the smallest power of 2 >= minCapacity that can hold n
// entries without exceeding the maximum load factor.
func capacityFor(n int) uintptr {
	c := uintptr(minCapacity)
	for uintptr(n)*maxLoadDen > c*maxLoadNum {
		c <<= 1
	}
	return c
}

// Close closes the map, releasing any memory back to its configured
// allocator. It is unnecessary to close a map using the default allocator. It
// is invalid to use a Map after it has been closed, though Close itself is
// idempotent.
func (m *Map[K, V]) Close() {
	if m.allocator != nil && m.slots != nil {
		m.allocator.FreeSlots(m.slots)
	}
	m.slots = nil
	m.used = 0
	m.maxProbe = 0
	m.allocator = nil
}

// Put inserts an entry into the map, overwriting an existing value if an
// entry with the same key already exists.
func (m *Map[K, V]) Put(key K, value V) {
	// Put is find composed with uncheckedPut. If the key is present we
	// overwrite its value in place, leaving used and maxProbe alone. Only a
	// key known to be absent may reach uncheckedPut.
	h := m.hash(&key, m.seed)
	if i, ok := m.find(h, key); ok {
		if debug {
			fmt.Printf("put(updating): index=%d  key=%v\n", i, key)
		}
		m.slots[i].value = value
		return
	}

	if m.needsGrowth() {
		newCapacity := uintptr(minCapacity)
		if n := uintptr(len(m.slots)); n > 0 {
			newCapacity = 2 * n
		}
		m.resize(newCapacity)
	}
	m.uncheckedPut(h, key, value)
	m.checkInvariants()
}

// Get retrieves the value from the map for the specified key, return ok=false
// if the key is not present.
func (m *Map[K, V]) Get(key K) (value V, ok bool) {
	h := m.hash(&key, m.seed)
	i, ok := m.find(h, key)
	if !ok {
		return value, false
	}
	return m.slots[i].value, true
}

// Delete deletes the entry corresponding to the specified key from the map.
// It is a noop to delete a non-existent key.
func (m *Map[K, V]) Delete(key K) {
	h := m.hash(&key, m.seed)
	i, ok := m.find(h, key)
	if !ok {
		return
	}
	// The slot becomes genuinely empty. Lookups are bounded by maxProbe
	// rather than terminated by empty slots, so no tombstone is needed to
	// keep entries placed beyond i reachable.
	m.slots[i] = Slot[K, V]{}
	m.used--
	if debug {
		fmt.Printf("delete(%v): index=%d used=%d\n", key, i, m.used)
	}
	m.checkInvariants()
}

// Clear deletes all entries from the map and releases the slot array,
// returning the map to zero capacity.
func (m *Map[K, V]) Clear() {
	if m.slots != nil {
		m.allocator.FreeSlots(m.slots)
	}
	m.slots = nil
	m.used = 0
	m.maxProbe = 0
	m.checkInvariants()
}

// All calls yield sequentially for each key and value present in the map. If
// yield returns false, range stops the iteration. The map can be mutated
// during iteration, though there is no guarantee that the mutations will be
// visible to the iteration.
func (m *Map[K, V]) All(yield func(key K, value V) bool) {
	// Snapshot the slots so that iteration remains valid if the map is
	// resized during iteration.
	slots := m.slots
	for i := range slots {
		s := &slots[i]
		if s.full && !yield(s.key, s.value) {
			return
		}
	}
}

// Len returns the number of entries in the map.
func (m *Map[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return m.used
}

// capacity returns the length of the slot array.
func (m *Map[K, V]) capacity() int {
	return len(m.slots)
}

// mask returns capacity-1 for use in place of a modulo. A slot array whose
// length is not a power of 2 is a bug in resize and is always fatal.
func (m *Map[K, V]) mask() uintptr {
	n := uintptr(len(m.slots))
	if n == 0 || n&(n-1) != 0 {
		panic(fmt.Sprintf("invariant failed: slot array length %d is not a power of 2", n))
	}
	return n - 1
}

// idealSlot returns the index a key with hash h occupies absent collisions.
// Requires a non-empty slot array.
func (m *Map[K, V]) idealSlot(h uintptr) uintptr {
	return h & m.mask()
}

// needsGrowth reports whether inserting one more entry requires a resize:
// either there are no slots at all, or the insertion would push the load
// factor over 3/4.
//
// The check deliberately uses the post-insert count rather than growing only
// once count > 3*cap/4 before the insert. The pre-insert form lets a table
// reach 3*cap/4+1 entries (7 entries in 8 slots). This one never exceeds 3/4
// of capacity, so 7 inserts leave the table at 16 slots.
func (m *Map[K, V]) needsGrowth() bool {
	n := len(m.slots)
	return n == 0 || (m.used+1)*maxLoadDen > n*maxLoadNum
}

// find returns the index of the slot holding key, whose hash is h. Probing
// walks linearly from the ideal slot and stops after maxProbe+1 slots,
// stepping over empty slots rather than stopping at them.
func (m *Map[K, V]) find(h uintptr, key K) (uintptr, bool) {
	// An empty table has no slots to probe. This is distinct from a miss
	// after probing.
	if len(m.slots) == 0 {
		return 0, false
	}

	mask := m.mask()
	i := m.idealSlot(h)
	if debug {
		fmt.Printf("find(%v): ideal=%d max-probe=%d\n", key, i, m.maxProbe)
	}
	for offset := uintptr(0); offset <= m.maxProbe; offset++ {
		s := &m.slots[i]
		if s.full && s.key == key {
			return i, true
		}
		i = (i + 1) & mask
	}
	return 0, false
}

// uncheckedPut inserts an entry known not to be in the table, into a table
// known to have at least one empty slot. Used by Put after it has failed to
// find an existing entry to overwrite, and by resize to reinsert entries.
func (m *Map[K, V]) uncheckedPut(h uintptr, key K, value V) {
	if invariants {
		if _, ok := m.find(h, key); ok {
			panic(fmt.Sprintf("invariant failed: uncheckedPut(%v): key already present\n%s",
				key, m.debugString()))
		}
		if m.used >= len(m.slots) {
			panic(fmt.Sprintf("invariant failed: uncheckedPut(%v): no empty slot\n%s",
				key, m.debugString()))
		}
	}

	mask := m.mask()
	i := m.idealSlot(h)
	var offset uintptr
	for m.slots[i].full {
		i = (i + 1) & mask
		offset++
	}

	m.slots[i] = Slot[K, V]{key: key, value: value, full: true}
	// The key didn't exist before, so used always grows.
	m.used++
	if offset > m.maxProbe {
		m.maxProbe = offset
	}
	if debug {
		fmt.Printf("put(inserting): index=%d offset=%d used=%d max-probe=%d\n",
			i, offset, m.used, m.maxProbe)
	}
}

// resize resizes the capacity of the table by allocating a bigger array and
// uncheckedPutting each element of the table into the new array (we know that
// no insertion here will Put an already-present value), and discards the old
// backing array. maxProbe is recomputed from the reinsertions.
func (m *Map[K, V]) resize(newCapacity uintptr) {
	if newCapacity&(newCapacity-1) != 0 || newCapacity < uintptr(m.used) {
		panic(fmt.Sprintf("invariant failed: resize to capacity %d with %d entries",
			newCapacity, m.used))
	}

	oldSlots, oldUsed := m.slots, m.used
	m.slots = m.allocator.AllocSlots(int(newCapacity))
	m.used = 0
	m.maxProbe = 0

	if debug {
		fmt.Printf("resize: capacity=%d->%d\n", len(oldSlots), newCapacity)
	}

	for i := range oldSlots {
		s := &oldSlots[i]
		if !s.full {
			continue
		}
		m.uncheckedPut(m.hash(&s.key, m.seed), s.key, s.value)
	}

	if m.used != oldUsed {
		panic(fmt.Sprintf("invariant failed: resize reinserted %d of %d entries",
			m.used, oldUsed))
	}
	if oldSlots != nil {
		m.allocator.FreeSlots(oldSlots)
	}
}

func (m *Map[K, V]) checkInvariants() {
	if invariants {
		m.assertInvariants()
	}
}

// assertInvariants panics if the table's internal state is inconsistent:
// a slot array that is not a power of 2, a used count that disagrees with the
// slots, a load factor above 3/4, a duplicated key, or a key that is not
// reachable within maxProbe steps of its ideal slot.
func (m *Map[K, V]) assertInvariants() {
	if len(m.slots) == 0 {
		if m.used != 0 || m.maxProbe != 0 {
			panic(fmt.Sprintf("invariant failed: empty slot array with used=%d max-probe=%d",
				m.used, m.maxProbe))
		}
		return
	}

	mask := m.mask()
	if m.used*maxLoadDen > len(m.slots)*maxLoadNum {
		panic(fmt.Sprintf("invariant failed: used=%d exceeds max load of capacity=%d\n%s",
			m.used, len(m.slots), m.debugString()))
	}

	seen := make(map[K]uintptr, m.used)
	var used int
	for i := range m.slots {
		s := &m.slots[i]
		if !s.full {
			continue
		}
		if j, ok := seen[s.key]; ok {
			panic(fmt.Sprintf("invariant failed: slot(%d) and slot(%d) both hold %v\n%s",
				j, i, s.key, m.debugString()))
		}
		seen[s.key] = uintptr(i)
		used++

		h := m.hash(&s.key, m.seed)
		if offset := (uintptr(i) - (h & mask)) & mask; offset > m.maxProbe {
			panic(fmt.Sprintf("invariant failed: slot(%d): %v at offset %d beyond max-probe %d\n%s",
				i, s.key, offset, m.maxProbe, m.debugString()))
		}
		if j, ok := m.find(h, s.key); !ok || j != uintptr(i) {
			panic(fmt.Sprintf("invariant failed: slot(%d): %v not found\n%s",
				i, s.key, m.debugString()))
		}
	}

	if used != m.used {
		panic(fmt.Sprintf("invariant failed: found %d used slots, but used count is %d\n%s",
			used, m.used, m.debugString()))
	}
}

func (m *Map[K, V]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  used=%d  max-probe=%d\n", len(m.slots), m.used, m.maxProbe)
	for i := range m.slots {
		s := &m.slots[i]
		if !s.full {
			fmt.Fprintf(&buf, "  %4d: empty\n", i)
			continue
		}
		h := m.hash(&s.key, m.seed)
		fmt.Fprintf(&buf, "  %4d: %v [ideal=%d]\n", i, s.key, h&uintptr(len(m.slots)-1))
	}
	return buf.String()
}
