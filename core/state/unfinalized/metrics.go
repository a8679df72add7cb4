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

import "github.com/ethereum/go-ethereum/metrics"

// These track the shape of the forest, not its content: depth is how
// many contiguous levels are currently unfinalized, blocks is the total
// overlay count across all of them, and prunedMeter counts overlays
// discarded (not flushed) by Finalize. None of this is on the wire or
// part of the contract; it exists purely for operators watching an
// embedder's pruning window.
var (
	depthGauge    = metrics.NewRegisteredGauge("unfinalized/levels", nil)
	blocksGauge   = metrics.NewRegisteredGauge("unfinalized/blocks", nil)
	prunedMeter   = metrics.NewRegisteredMeter("unfinalized/pruned", nil)
	insertMeter   = metrics.NewRegisteredMeter("unfinalized/inserted", nil)
	finalizeMeter = metrics.NewRegisteredMeter("unfinalized/finalized", nil)
)
