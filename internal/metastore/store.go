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

// Package metastore is a reference embedder for core/state/unfinalized: a
// goleveldb-backed MetaDb plus the data-namespace plumbing an embedder is
// expected to provide itself, wired together behind one CommitSet-applying
// Apply call. It exists to demonstrate the contract, not to be a production
// storage engine.
package metastore

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/lishengpeng/substrate-go/core/state/unfinalized"
)

const (
	metaPrefix = 'm'
	dataPrefix = 'd'

	// cleanCacheSize bounds the number of finalized data values kept hot
	// after a flush, avoiding a disk read for values finalize just wrote.
	cleanCacheSize = 4096
)

// Store is a disk-backed MetaDb with a data namespace living in the same
// leveldb file, separated from meta by a one-byte prefix. It satisfies
// unfinalized.MetaDb directly.
type Store struct {
	db    *leveldb.DB
	clean *lru.Cache[string, []byte]
}

// Open opens (or creates) a leveldb database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("metastore: open %s: %w", path, err)
	}
	clean, err := lru.New[string, []byte](cleanCacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("metastore: allocate clean cache: %w", err)
	}
	return &Store{db: db, clean: clean}, nil
}

// Close releases the underlying leveldb handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetMeta implements unfinalized.MetaDb.
func (s *Store) GetMeta(key []byte) ([]byte, error) {
	v, err := s.db.Get(metaKey(key), nil)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("metastore: get meta: %w", err)
	}
	return v, nil
}

// GetData reads a finalized value, consulting the clean-value cache
// before leveldb. It returns (nil, nil) on a miss, same as GetMeta; any
// other error means the read genuinely failed and should propagate.
func (s *Store) GetData(key []byte) ([]byte, error) {
	if v, ok := s.clean.Get(string(key)); ok {
		return v, nil
	}
	v, err := s.db.Get(dataKey(key), nil)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("metastore: get data: %w", err)
	}
	s.clean.Add(string(key), v)
	return v, nil
}

func metaKey(key []byte) []byte { return append([]byte{metaPrefix}, key...) }
func dataKey(key []byte) []byte { return append([]byte{dataPrefix}, key...) }

// Apply commits a CommitSet to the store as a single leveldb batch: meta
// writes and deletes, then data writes and deletes, in that order. It also
// maintains the clean-value cache so values Finalize just flushed don't
// immediately fault back to disk. encodeKey turns a domain key into the
// byte string stored on disk; it must be injective.
func Apply[H comparable, K comparable](s *Store, commit unfinalized.CommitSet[H, K], encodeKey func(K) []byte) error {
	batch := new(leveldb.Batch)
	for _, iv := range commit.Meta.Inserted {
		batch.Put(metaKey(iv.Key), iv.Value)
	}
	for _, k := range commit.Meta.Deleted {
		batch.Delete(metaKey(k))
	}
	for _, iv := range commit.Data.Inserted {
		enc := encodeKey(iv.Key)
		batch.Put(dataKey(enc), iv.Value)
	}
	for _, k := range commit.Data.Deleted {
		batch.Delete(dataKey(encodeKey(k)))
	}
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("metastore: apply commit set: %w", err)
	}
	for _, iv := range commit.Data.Inserted {
		s.clean.Add(string(encodeKey(iv.Key)), iv.Value)
	}
	for _, k := range commit.Data.Deleted {
		s.clean.Remove(string(encodeKey(k)))
	}
	return nil
}

// IsNotFound reports whether err is leveldb's not-found sentinel, exposed
// so callers embedding Store don't need to import goleveldb themselves.
func IsNotFound(err error) bool {
	return err == leveldb.ErrNotFound
}
