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
	"bytes"

	"github.com/ethereum/go-ethereum/rlp"
)

// Meta-store key prefixes. These are a stable wire format with the
// embedding database and must never change without a migration; they
// must also stay disjoint from any other meta prefix the embedder
// uses, since neither prefix is itself length-prefixed.
const (
	journalKeyPrefix       = "unfinalized_journal"
	lastFinalizedKeyPrefix = "last_finalized"
)

// journalKey returns the meta-store key for the journal entry of the
// block at the given number and index within its level.
func journalKey(number, index uint64) []byte {
	suffix, err := rlp.EncodeToBytes([2]uint64{number, index})
	if err != nil {
		// [2]uint64 is always RLP-encodable; a failure here means the
		// RLP package itself is broken.
		panic(err)
	}
	key := make([]byte, 0, len(journalKeyPrefix)+len(suffix))
	key = append(key, journalKeyPrefix...)
	key = append(key, suffix...)
	return key
}

// decodeJournalKey reverses journalKey, reporting false if key does not
// carry the journal prefix or its suffix fails to decode.
func decodeJournalKey(key []byte) (number, index uint64, ok bool) {
	if !bytes.HasPrefix(key, []byte(journalKeyPrefix)) {
		return 0, 0, false
	}
	var pair [2]uint64
	if err := rlp.DecodeBytes(key[len(journalKeyPrefix):], &pair); err != nil {
		return 0, 0, false
	}
	return pair[0], pair[1], true
}

// lastFinalizedKey returns the meta-store key for the last-finalized
// pointer, "last_finalized" || encode(()).
func lastFinalizedKey() []byte {
	suffix, err := rlp.EncodeToBytes(struct{}{})
	if err != nil {
		panic(err)
	}
	key := make([]byte, 0, len(lastFinalizedKeyPrefix)+len(suffix))
	key = append(key, lastFinalizedKeyPrefix...)
	key = append(key, suffix...)
	return key
}
