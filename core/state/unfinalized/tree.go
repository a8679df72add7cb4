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
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/log"
)

// Tree is the forest of unfinalized block overlays, grouped into levels
// by block number, levels contiguous from front upward. It is a single-
// threaded, pure data structure — its only I/O is through the MetaDb
// given to New, consulted once during construction. H and K must both
// be RLP-encodable, since both are written into journal records.
//
// Every mutating method (Insert, Finalize) returns a CommitSet the
// caller must apply to its own persistent store as one atomic unit
// before any subsequent call that depends on it — the Tree itself never
// writes to that store. Get is the only method safe to call
// concurrently with itself (not with a mutator).
type Tree[H comparable, K comparable] struct {
	lastFinalized *lastFinalizedRecord[H]
	front         uint64
	levels        []level[H, K]
	parents       map[H]H
}

// New constructs a Tree, replaying it from the journal the MetaDb
// exposes. If the store has never been finalized (no last-finalized
// pointer present), it returns an empty forest. Any error from db or
// any decoding failure is fatal to construction and leaves no
// observable state.
func New[H comparable, K comparable](db MetaDb) (*Tree[H, K], error) {
	t := &Tree[H, K]{parents: make(map[H]H)}

	raw, err := db.GetMeta(lastFinalizedKey())
	if err != nil {
		return nil, &DbError{Err: err}
	}
	if raw == nil {
		return t, nil
	}
	lf, err := decodeLastFinalized[H](raw)
	if err != nil {
		return nil, err
	}
	t.lastFinalized = &lf
	t.front = lf.Number + 1

	for block := t.front; ; block++ {
		var overlays []*blockOverlay[H, K]
		for index := uint64(0); ; index++ {
			key := journalKey(block, index)
			data, err := db.GetMeta(key)
			if err != nil {
				return nil, &DbError{Err: err}
			}
			if data == nil {
				break
			}
			rec, err := decodeJournalRecord[H, K](data)
			if err != nil {
				return nil, err
			}
			inserted := make([]InsertedValue[K], len(rec.Inserted))
			for i, e := range rec.Inserted {
				inserted[i] = InsertedValue[K]{Key: e.Key, Value: e.Value}
			}
			ov := newBlockOverlay[H, K](rec.Hash, key, inserted, rec.Deleted)
			overlays = append(overlays, ov)
			t.parents[rec.Hash] = rec.ParentHash
		}
		if len(overlays) == 0 {
			break
		}
		t.levels = append(t.levels, level[H, K]{number: block, overlays: overlays})
	}
	t.updateMetrics()
	log.Debug("Replayed unfinalized overlay", "levels", len(t.levels), "blocks", len(t.parents))
	return t, nil
}

// Insert adds the given block's changeset as a new overlay and returns
// the CommitSet recording its journal entry. It never writes to the
// data namespace; only Finalize does.
//
// A key that appears more than once in changes.Inserted keeps its last
// value, in the position of its first occurrence; the journal entry
// records changes.Inserted exactly as given.
//
// If the forest is empty and no block has ever been finalized, this is
// the bootstrap insert: last-finalized is synthesized as
// (parentHash, number-1) and a meta write for it is included alongside
// the journal entry. Every other precondition violation — number
// outside [front, front+len(levels)], a parent hash that is not
// last-finalized's hash at the front level nor any already-inserted
// block otherwise, or a duplicate hash — is a programmer error and
// panics.
func (t *Tree[H, K]) Insert(hash H, number uint64, parentHash H, changes ChangeSet[K]) CommitSet[H, K] {
	if _, exists := t.parents[hash]; exists {
		fail("unfinalized: insert: hash %v already present", hash)
	}

	var commit CommitSet[H, K]
	bootstrap := len(t.levels) == 0 && t.lastFinalized == nil
	if bootstrap {
		lf := lastFinalizedRecord[H]{Hash: parentHash, Number: number - 1}
		t.lastFinalized = &lf
		t.front = number
		enc, err := encodeLastFinalized(lf.Hash, lf.Number)
		if err != nil {
			fail("unfinalized: insert: encode last-finalized: %v", err)
		}
		commit.Meta.Inserted = append(commit.Meta.Inserted, InsertedValue[[]byte]{Key: lastFinalizedKey(), Value: enc})
	} else {
		if number < t.front || number > t.front+uint64(len(t.levels)) {
			fail("unfinalized: insert: block %d out of window [%d, %d]", number, t.front, t.front+uint64(len(t.levels)))
		}
		if number == t.front {
			if t.lastFinalized == nil || parentHash != t.lastFinalized.Hash {
				fail("unfinalized: insert: block %d must have parent %v, got %v", number, t.lastFinalized, parentHash)
			}
		} else if _, known := t.parents[parentHash]; !known {
			fail("unfinalized: insert: unknown parent %v for block %d", parentHash, number)
		}
	}

	offset := number - t.front
	if offset == uint64(len(t.levels)) {
		t.levels = append(t.levels, level[H, K]{number: number})
	}
	lvl := &t.levels[offset]

	index := uint64(len(lvl.overlays))
	jk := journalKey(number, index)
	ov := newBlockOverlay[H, K](hash, jk, changes.Inserted, changes.Deleted)
	lvl.overlays = append(lvl.overlays, ov)
	t.parents[hash] = parentHash

	rec := journalRecord[H, K]{Hash: hash, ParentHash: parentHash, Deleted: changes.Deleted}
	rec.Inserted = make([]journalEntry[K], len(changes.Inserted))
	for i, iv := range changes.Inserted {
		rec.Inserted[i] = journalEntry[K]{Key: iv.Key, Value: iv.Value}
	}
	enc, err := encodeJournalRecord(rec)
	if err != nil {
		fail("unfinalized: insert: encode journal record: %v", err)
	}
	commit.Meta.Inserted = append(commit.Meta.Inserted, InsertedValue[[]byte]{Key: jk, Value: enc})

	insertMeter.Mark(1)
	t.updateMetrics()
	log.Debug("Inserted unfinalized block overlay", "hash", hash, "number", number, "parent", parentHash)
	return commit
}

// Get scans the forest front-to-back, and within each level its
// overlays in insertion order, returning the first value found for
// key. This is not a branch-consistent lookup: it reports whatever
// value appears first in the forest, which may belong to a branch the
// caller does not care about — resolving per-branch reads is the
// caller's responsibility. Deletions recorded on any overlay are never
// consulted here; they materialize only on Finalize. Both are a
// deliberate contract, not an oversight.
func (t *Tree[H, K]) Get(key K) (DBValue, bool) {
	for i := range t.levels {
		for _, ov := range t.levels[i].overlays {
			if v, ok := ov.values[key]; ok {
				return v, true
			}
		}
	}
	return nil, false
}

// Finalize selects hash, which must be an overlay in the front level,
// as the canonical block for that level. Its diff is flushed into the
// returned CommitSet's data namespace; every sibling overlay in the
// front level and all descendants of those siblings are discarded
// (their journal entries deleted, never flushed). hash not naming an
// overlay in the front level, or an empty forest, is a programmer
// error and panics.
//
// The discard sweep follows the worklist strategy: the front level's
// non-winning hashes seed a discard set, then one front-to-back pass
// over the remaining levels promotes any overlay whose parent is in
// the discard set into the discard set itself, before removing it.
// This avoids mutating multiple levels while recursing through them.
func (t *Tree[H, K]) Finalize(hash H) CommitSet[H, K] {
	if len(t.levels) == 0 {
		fail("unfinalized: finalize: overlay is empty")
	}
	front := t.levels[0]
	winnerIdx := -1
	for i, ov := range front.overlays {
		if ov.hash == hash {
			winnerIdx = i
			break
		}
	}
	if winnerIdx < 0 {
		fail("unfinalized: finalize: hash %v not in front level %d", hash, front.number)
	}

	var commit CommitSet[H, K]
	discard := mapset.NewThreadUnsafeSet[H]()
	var discardedKeys [][]byte
	var pruned int

	for i, ov := range front.overlays {
		delete(t.parents, ov.hash)
		if i == winnerIdx {
			commit.Data.Inserted = ov.orderedInserted()
			commit.Data.Deleted = append([]K(nil), ov.deleted...)
		} else {
			discard.Add(ov.hash)
			pruned++
		}
		discardedKeys = append(discardedKeys, ov.journalKey)
	}

	t.levels = t.levels[1:]
	t.front = front.number + 1

	for li := range t.levels {
		lvl := t.levels[li]
		kept := lvl.overlays[:0]
		for _, ov := range lvl.overlays {
			if discard.Contains(t.parents[ov.hash]) {
				discard.Add(ov.hash)
				discardedKeys = append(discardedKeys, ov.journalKey)
				delete(t.parents, ov.hash)
				pruned++
			} else {
				kept = append(kept, ov)
			}
		}
		t.levels[li].overlays = kept
	}
	// Pruning can only empty a suffix of the levels; drop it so the forest
	// matches what New would replay from the remaining journal entries.
	for len(t.levels) > 0 && len(t.levels[len(t.levels)-1].overlays) == 0 {
		t.levels = t.levels[:len(t.levels)-1]
	}

	commit.Meta.Deleted = discardedKeys
	enc, err := encodeLastFinalized(hash, front.number)
	if err != nil {
		fail("unfinalized: finalize: encode last-finalized: %v", err)
	}
	commit.Meta.Inserted = append(commit.Meta.Inserted, InsertedValue[[]byte]{Key: lastFinalizedKey(), Value: enc})

	t.lastFinalized = &lastFinalizedRecord[H]{Hash: hash, Number: front.number}

	prunedMeter.Mark(int64(pruned))
	finalizeMeter.Mark(1)
	t.updateMetrics()
	log.Debug("Finalized unfinalized block", "hash", hash, "number", front.number, "pruned", pruned)
	return commit
}

// Depth reports the number of contiguous unfinalized levels currently held.
func (t *Tree[H, K]) Depth() int { return len(t.levels) }

// BlockCount reports the total number of unfinalized block overlays across
// all levels.
func (t *Tree[H, K]) BlockCount() int { return len(t.parents) }

func (t *Tree[H, K]) updateMetrics() {
	depthGauge.Update(int64(len(t.levels)))
	blocksGauge.Update(int64(len(t.parents)))
}
