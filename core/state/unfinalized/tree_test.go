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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

// assertForestsEqual compares two forests structurally: same levels,
// same hashes in the same order, same parents, same last-finalized.
// A forest rebuilt from its own journal must be indistinguishable from
// the one that wrote it.
func assertForestsEqual(t *testing.T, want, got *Tree[common.Hash, string]) {
	t.Helper()
	require.Equal(t, want.front, got.front)
	require.Equal(t, want.lastFinalized, got.lastFinalized)
	require.Equal(t, want.parents, got.parents)
	require.Len(t, got.levels, len(want.levels))
	for i := range want.levels {
		require.Equal(t, want.levels[i].number, got.levels[i].number)
		require.Len(t, got.levels[i].overlays, len(want.levels[i].overlays))
		for j, wo := range want.levels[i].overlays {
			go_ := got.levels[i].overlays[j]
			require.Equal(t, wo.hash, go_.hash)
			require.Equal(t, wo.journalKey, go_.journalKey)
			require.Equal(t, wo.order, go_.order)
			require.Equal(t, wo.values, go_.values)
			require.Equal(t, wo.deleted, go_.deleted)
		}
	}
}

// Scenario 1: insert + finalize one.
func TestInsertAndFinalizeOne(t *testing.T) {
	db := newMemMetaDb()
	db.data["1"] = []byte("v1")
	db.data["2"] = []byte("v2")

	tr, err := New[common.Hash, string](db)
	require.NoError(t, err)

	h1, genesis := randomHash(), randomHash()
	commit := tr.Insert(h1, 1, genesis, changeSet(map[string][]byte{"3": []byte("v3"), "4": []byte("v4")}, "2"))
	require.Len(t, commit.Meta.Inserted, 2)
	require.Len(t, commit.Data.Inserted, 0)
	require.Len(t, commit.Data.Deleted, 0)
	apply(db, commit, stringKey)

	commit = tr.Finalize(h1)
	require.Len(t, commit.Data.Inserted, 2)
	require.Len(t, commit.Data.Deleted, 1)
	require.Len(t, commit.Meta.Inserted, 1)
	require.Len(t, commit.Meta.Deleted, 1)
	apply(db, commit, stringKey)

	require.Equal(t, []string{"1", "3", "4"}, db.dataSnapshot())
}

// Scenario 2: restore from journal.
func TestRestoreFromJournal(t *testing.T) {
	db := newMemMetaDb()
	db.data["1"] = []byte("v1")
	db.data["2"] = []byte("v2")

	original, err := New[common.Hash, string](db)
	require.NoError(t, err)

	genesis, h1, h2 := randomHash(), randomHash(), randomHash()
	c1 := original.Insert(h1, 10, genesis, changeSet(map[string][]byte{"3": []byte("v3"), "4": []byte("v4")}, "2"))
	apply(db, c1, stringKey)
	c2 := original.Insert(h2, 11, h1, changeSet(map[string][]byte{"5": []byte("v5")}, "3"))
	apply(db, c2, stringKey)

	require.Len(t, db.meta, 3)

	restored, err := New[common.Hash, string](db)
	require.NoError(t, err)
	assertForestsEqual(t, original, restored)
}

// Scenario 3 (core semantics): get scans front-to-back and ignores
// deletions, which only materialize on finalize.
func TestGetScansForestAndIgnoresDeletions(t *testing.T) {
	db := newMemMetaDb()
	tr, err := New[common.Hash, string](db)
	require.NoError(t, err)

	genesis, h1, h2 := randomHash(), randomHash(), randomHash()
	commit := tr.Insert(h1, 1, genesis, changeSet(map[string][]byte{"5": []byte("v5"), "6": []byte("v6")}, "2"))
	apply(db, commit, stringKey)

	v, ok := tr.Get("5")
	require.True(t, ok)
	require.Equal(t, []byte("v5"), v)

	commit = tr.Insert(h2, 2, h1, changeSet(map[string][]byte{"7": []byte("v7")}, "5"))
	apply(db, commit, stringKey)

	// "5" was deleted by h2's changeset, but deletions never shadow a
	// value found elsewhere in the forest via Get.
	v, ok = tr.Get("5")
	require.True(t, ok)
	require.Equal(t, []byte("v5"), v)

	commit = tr.Finalize(h1)
	apply(db, commit, stringKey)
	commit = tr.Finalize(h2)
	apply(db, commit, stringKey)
	require.Equal(t, []string{"6", "7"}, db.dataSnapshot())
}

// Scenario 4: forest pruning — two roots, each with children, finalize
// collapses one subtree at a time.
func TestForestPruning(t *testing.T) {
	db := newMemMetaDb()
	tr, err := New[common.Hash, string](db)
	require.NoError(t, err)

	genesis := randomHash()
	h1, h2 := randomHash(), randomHash()
	h11, h12 := randomHash(), randomHash()
	h111 := randomHash()
	h121, h122, h123 := randomHash(), randomHash(), randomHash()
	h21, h22 := randomHash(), randomHash()
	h211 := randomHash()

	apply(db, tr.Insert(h1, 1, genesis, changeSet(map[string][]byte{"1": []byte("v1")})), stringKey)
	apply(db, tr.Insert(h2, 1, genesis, changeSet(map[string][]byte{"2": []byte("v2")})), stringKey)

	apply(db, tr.Insert(h11, 2, h1, changeSet(map[string][]byte{"11": []byte("v11")})), stringKey)
	apply(db, tr.Insert(h12, 2, h1, changeSet(map[string][]byte{"12": []byte("v12")})), stringKey)
	apply(db, tr.Insert(h21, 2, h2, changeSet(map[string][]byte{"21": []byte("v21")})), stringKey)
	apply(db, tr.Insert(h22, 2, h2, changeSet(map[string][]byte{"22": []byte("v22")})), stringKey)

	apply(db, tr.Insert(h111, 3, h11, changeSet(map[string][]byte{"111": []byte("v111")})), stringKey)
	apply(db, tr.Insert(h121, 3, h12, changeSet(map[string][]byte{"121": []byte("v121")})), stringKey)
	apply(db, tr.Insert(h122, 3, h12, changeSet(map[string][]byte{"122": []byte("v122")})), stringKey)
	apply(db, tr.Insert(h123, 3, h12, changeSet(map[string][]byte{"123": []byte("v123")})), stringKey)
	apply(db, tr.Insert(h211, 3, h21, changeSet(map[string][]byte{"211": []byte("v211")})), stringKey)

	require.Len(t, tr.parents, 11)

	apply(db, tr.Finalize(h1), stringKey)
	require.Len(t, tr.parents, 6)
	_, ok := tr.Get("21")
	require.False(t, ok)
	_, ok = tr.Get("211")
	require.False(t, ok)

	apply(db, tr.Finalize(h12), stringKey)
	require.Len(t, tr.parents, 3)
	_, ok = tr.Get("11")
	require.False(t, ok)
	_, ok = tr.Get("111")
	require.False(t, ok)

	apply(db, tr.Finalize(h122), stringKey)
	require.Len(t, tr.parents, 0)
	require.Equal(t, []string{"1", "12", "122"}, db.dataSnapshot())
	require.Equal(t, h122, tr.lastFinalized.Hash)
	require.Equal(t, uint64(3), tr.lastFinalized.Number)
}

// Scenario 5: boundary violations must fail loudly.
func TestPreconditionPanics(t *testing.T) {
	t.Run("insert out of window ahead", func(t *testing.T) {
		db := newMemMetaDb()
		tr, _ := New[common.Hash, string](db)
		genesis, h1 := randomHash(), randomHash()
		apply(db, tr.Insert(h1, 1, genesis, changeSet(nil)), stringKey)
		mustPanic(t, func() { tr.Insert(randomHash(), 3, h1, changeSet(nil)) })
	})

	t.Run("insert behind the front", func(t *testing.T) {
		db := newMemMetaDb()
		tr, _ := New[common.Hash, string](db)
		genesis, h1 := randomHash(), randomHash()
		apply(db, tr.Insert(h1, 2, genesis, changeSet(nil)), stringKey)
		mustPanic(t, func() { tr.Insert(randomHash(), 1, genesis, changeSet(nil)) })
	})

	t.Run("insert with unknown parent", func(t *testing.T) {
		db := newMemMetaDb()
		tr, _ := New[common.Hash, string](db)
		genesis := randomHash()
		apply(db, tr.Insert(randomHash(), 1, genesis, changeSet(nil)), stringKey)
		mustPanic(t, func() { tr.Insert(randomHash(), 2, randomHash(), changeSet(nil)) })
	})

	t.Run("finalize on empty overlay", func(t *testing.T) {
		db := newMemMetaDb()
		tr, _ := New[common.Hash, string](db)
		mustPanic(t, func() { tr.Finalize(randomHash()) })
	})

	t.Run("finalize unknown hash", func(t *testing.T) {
		db := newMemMetaDb()
		tr, _ := New[common.Hash, string](db)
		genesis, h1 := randomHash(), randomHash()
		apply(db, tr.Insert(h1, 1, genesis, changeSet(nil)), stringKey)
		mustPanic(t, func() { tr.Finalize(randomHash()) })
	})
}

// Scenario 6: duplicate hash detection.
func TestDuplicateInsertPanics(t *testing.T) {
	db := newMemMetaDb()
	tr, _ := New[common.Hash, string](db)
	genesis, h1 := randomHash(), randomHash()
	apply(db, tr.Insert(h1, 1, genesis, changeSet(nil)), stringKey)
	mustPanic(t, func() { tr.Insert(h1, 1, genesis, changeSet(nil)) })
}

// Idempotence of finalize at steady state: finalizing the single
// remaining child of a single-child level drops that level entirely and
// leaves no dangling entries in parents.
func TestFinalizeSingleChildLeavesNoDanglingParents(t *testing.T) {
	db := newMemMetaDb()
	tr, _ := New[common.Hash, string](db)
	genesis, h1, h2 := randomHash(), randomHash(), randomHash()
	apply(db, tr.Insert(h1, 1, genesis, changeSet(nil)), stringKey)
	apply(db, tr.Insert(h2, 2, h1, changeSet(nil)), stringKey)

	apply(db, tr.Finalize(h1), stringKey)
	require.Len(t, tr.levels, 1)
	require.Len(t, tr.parents, 1)

	apply(db, tr.Finalize(h2), stringKey)
	require.Len(t, tr.levels, 0)
	require.Len(t, tr.parents, 0)
}

func TestDepthAndBlockCount(t *testing.T) {
	db := newMemMetaDb()
	tr, _ := New[common.Hash, string](db)
	require.Equal(t, 0, tr.Depth())
	require.Equal(t, 0, tr.BlockCount())

	genesis, h1, h2 := randomHash(), randomHash(), randomHash()
	apply(db, tr.Insert(h1, 1, genesis, changeSet(nil)), stringKey)
	apply(db, tr.Insert(h2, 2, h1, changeSet(nil)), stringKey)
	require.Equal(t, 2, tr.Depth())
	require.Equal(t, 2, tr.BlockCount())

	apply(db, tr.Finalize(h1), stringKey)
	require.Equal(t, 1, tr.Depth())
	require.Equal(t, 1, tr.BlockCount())
}
