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
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// journalEntry is one inserted key/value pair as it sits at rest in a
// journal record. inserted is always persisted as a sequence, never as
// a map, even though the in-memory overlay materializes it into one
// (see overlay.go) — RLP has no native map encoding and hash-map
// iteration order must never leak into the on-disk format.
type journalEntry[K any] struct {
	Key   K
	Value []byte
}

// journalRecord is the persisted form of one blockOverlay, carrying its
// four fields in that fixed order: hash, parent hash, inserted, deleted.
// RLP gives each field a self-describing length prefix, so
// decode(encode(r)) == r and concatenated records never alias.
type journalRecord[H any, K any] struct {
	Hash       H
	ParentHash H
	Inserted   []journalEntry[K]
	Deleted    []K
}

// lastFinalizedRecord is the persisted form of the last-finalized
// pointer: (hash, block number).
type lastFinalizedRecord[H any] struct {
	Hash   H
	Number uint64
}

func encodeJournalRecord[H any, K any](r journalRecord[H, K]) ([]byte, error) {
	return rlp.EncodeToBytes(&r)
}

// decodeJournalRecord never allocates beyond the decoded sizes (RLP
// preallocates slices from their encoded length prefixes) and never
// panics on malformed input; failures are reported as ErrDecoding.
func decodeJournalRecord[H any, K any](data []byte) (journalRecord[H, K], error) {
	var r journalRecord[H, K]
	if err := rlp.DecodeBytes(data, &r); err != nil {
		return r, fmt.Errorf("%w: %v", ErrDecoding, err)
	}
	return r, nil
}

func encodeLastFinalized[H any](hash H, number uint64) ([]byte, error) {
	return rlp.EncodeToBytes(&lastFinalizedRecord[H]{Hash: hash, Number: number})
}

func decodeLastFinalized[H any](data []byte) (lastFinalizedRecord[H], error) {
	var r lastFinalizedRecord[H]
	if err := rlp.DecodeBytes(data, &r); err != nil {
		return r, fmt.Errorf("%w: %v", ErrDecoding, err)
	}
	return r, nil
}
