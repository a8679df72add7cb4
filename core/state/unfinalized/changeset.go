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

// Package unfinalized implements a bounded forest of not-yet-finalized
// block state diffs layered above a persistent key-value store, and
// deterministically collapses that forest when a block is finalized.
//
// The package is a single-threaded, pure data structure: its only I/O
// surface is the MetaDb supplied to New, which is read only during
// construction. Every mutation returns a CommitSet the caller must
// apply to its own persistent store atomically before the next
// dependent call; see the Tree doc comment for the full contract.
package unfinalized

// DBValue is an opaque value stored in the key-value store.
type DBValue = []byte

// InsertedValue pairs a key with the value a block's changeset inserts
// for it. Keys are not required to be unique within one ChangeSet; see
// ChangeSet's doc comment.
type InsertedValue[K comparable] struct {
	Key   K
	Value DBValue
}

// ChangeSet describes a set of key insertions and deletions applied
// against one namespace (data or meta) of the persistent store.
//
// Inserted has no uniqueness requirement: if the same key appears more
// than once, the overlay treats it as a logical mapping where the last
// occurrence wins. This is implementation-defined but documented, see
// Tree.Insert.
type ChangeSet[K comparable] struct {
	Inserted []InsertedValue[K]
	Deleted  []K
}

// CommitSet bundles the data and meta namespace writes the overlay asks
// the embedder to apply atomically. Writes to Data flush finalized
// state (data.Inserted/Deleted are only ever non-empty on the CommitSet
// returned by Finalize). Writes to Meta persist or erase journal
// entries and the last-finalized pointer; Meta keys are raw meta-store
// byte keys, not the caller's Key type.
type CommitSet[H comparable, K comparable] struct {
	Data ChangeSet[K]
	Meta ChangeSet[[]byte]
}
