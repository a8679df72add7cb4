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

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

// randomHash generates a random 32-byte hash for use as a test block hash.
func randomHash() common.Hash {
	var hash common.Hash
	if n, err := rand.Read(hash[:]); n != common.HashLength || err != nil {
		panic(err)
	}
	return hash
}

// memMetaDb is an in-memory stand-in for the embedder's persistent meta
// store. It implements MetaDb for construction and also applies
// CommitSets, acting as the "embedder" side of the contract so tests
// can drive full insert/finalize/replay cycles without any real disk.
type memMetaDb struct {
	meta map[string][]byte
	data map[string][]byte
}

func newMemMetaDb() *memMetaDb {
	return &memMetaDb{meta: make(map[string][]byte), data: make(map[string][]byte)}
}

func (m *memMetaDb) GetMeta(key []byte) ([]byte, error) {
	v, ok := m.meta[string(key)]
	if !ok {
		return nil, nil
	}
	return v, nil
}

// apply applies a CommitSet atomically (there is no concurrency in
// these tests, so "atomically" just means "all at once, in order").
func apply[H comparable, K comparable](m *memMetaDb, commit CommitSet[H, K], encodeKey func(K) []byte) {
	for _, iv := range commit.Meta.Inserted {
		m.meta[string(iv.Key)] = iv.Value
	}
	for _, k := range commit.Meta.Deleted {
		delete(m.meta, string(k))
	}
	for _, iv := range commit.Data.Inserted {
		m.data[string(encodeKey(iv.Key))] = iv.Value
	}
	for _, k := range commit.Data.Deleted {
		delete(m.data, string(encodeKey(k)))
	}
}

func stringKey(k string) []byte { return []byte(k) }

// dataSnapshot returns the data namespace as a sorted key list, for
// deterministic test assertions.
func (m *memMetaDb) dataSnapshot() []string {
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func changeSet(inserted map[string][]byte, deleted ...string) ChangeSet[string] {
	keys := make([]string, 0, len(inserted))
	for k := range inserted {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	cs := ChangeSet[string]{Deleted: deleted}
	for _, k := range keys {
		cs.Inserted = append(cs.Inserted, InsertedValue[string]{Key: k, Value: inserted[k]})
	}
	return cs
}

func mustPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic, got none")
		}
	}()
	fn()
}
