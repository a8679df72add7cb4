// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package unfinalized

// blockOverlay is the in-memory representation of one unfinalized
// block's state diff, analogous to a diff-layer node in a snapshot
// tree but generalized from account/storage maps to a single opaque
// key/value map.
//
// values is a materialized map for O(1) lookup by Get; order is the
// first-occurrence order of values' keys, used to emit a deterministic
// commit.data.inserted sequence on Finalize (see Tree.Finalize). Both
// are derived once, at construction, from the block's ChangeSet.
type blockOverlay[H comparable, K comparable] struct {
	hash       H
	journalKey []byte
	order      []K
	values     map[K]DBValue
	deleted    []K
}

// newBlockOverlay builds a blockOverlay from a block's changeset. A key
// inserted more than once keeps its last value but its first-occurrence
// position, so the overlay always replays its inserts in a deterministic
// order regardless of how the caller built the changeset.
func newBlockOverlay[H comparable, K comparable](hash H, journalKey []byte, inserted []InsertedValue[K], deleted []K) *blockOverlay[H, K] {
	values := make(map[K]DBValue, len(inserted))
	order := make([]K, 0, len(inserted))
	for _, iv := range inserted {
		if _, seen := values[iv.Key]; !seen {
			order = append(order, iv.Key)
		}
		values[iv.Key] = iv.Value
	}
	return &blockOverlay[H, K]{
		hash:       hash,
		journalKey: journalKey,
		order:      order,
		values:     values,
		deleted:    append([]K(nil), deleted...),
	}
}

// orderedInserted returns the overlay's inserted entries in
// deterministic (first-occurrence) order, with each key's final
// (last-write-wins) value.
func (o *blockOverlay[H, K]) orderedInserted() []InsertedValue[K] {
	out := make([]InsertedValue[K], len(o.order))
	for i, k := range o.order {
		out[i] = InsertedValue[K]{Key: k, Value: o.values[k]}
	}
	return out
}

// level is an ordered sequence of blockOverlays sharing the same block
// number. Order within a level is insertion order and is stable: the
// index of an overlay within its level is the second half of its
// journalKey.
type level[H comparable, K comparable] struct {
	number   uint64
	overlays []*blockOverlay[H, K]
}
