// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package types

import (
	"fmt"
	"sort"
)

// Canonicity is the finality status of a block.
//
// Only Canonical and Orphaned are ever persisted. The absence of
// a record for a block means it is still Pending.
type Canonicity uint8

const (
	// Pending blocks are known but not yet deep enough to be decided.
	Pending Canonicity = iota
	// Canonical blocks are part of the finalized chain history.
	Canonical
	// Orphaned blocks lost to a competing block at the same height.
	Orphaned
)

var canonicityStrings = map[Canonicity]string{
	Pending:   "Pending",
	Canonical: "Canonical",
	Orphaned:  "Orphaned",
}

func (c Canonicity) String() string {
	if s, ok := canonicityStrings[c]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Canonicity (%d)", int(c))
}

// CanonicityTransition records a single block moving to a new status.
type CanonicityTransition struct {
	Height     uint32
	GlobalSlot uint32
	StateHash  ID
	Status     Canonicity
}

// CanonicityUpdate is a batch of transitions ordered by ascending
// height. Applying the same update twice leaves the store unchanged.
type CanonicityUpdate []CanonicityTransition

// Sort orders the update by height, then by state hash so that
// two engines computing the same transitions emit identical batches.
func (u CanonicityUpdate) Sort() {
	sort.Slice(u, func(i, j int) bool {
		if u[i].Height != u[j].Height {
			return u[i].Height < u[j].Height
		}
		return u[i].StateHash.Compare(u[j].StateHash) < 0
	})
}

// ToBatch splits the update into the canonical and orphaned halves
// of a BatchUpdate. Order is preserved.
func (u CanonicityUpdate) ToBatch() BatchUpdate {
	var batch BatchUpdate
	for _, t := range u {
		ref := BlockRef{
			Height:     t.Height,
			GlobalSlot: t.GlobalSlot,
			StateHash:  t.StateHash,
		}
		switch t.Status {
		case Canonical:
			batch.Apply = append(batch.Apply, ref)
		case Orphaned:
			batch.Unapply = append(batch.Unapply, ref)
		}
	}
	return batch
}

// BlockRef is the minimal reference to a block needed by the
// canonicity indices.
type BlockRef struct {
	Height     uint32
	GlobalSlot uint32
	StateHash  ID
}

// BatchUpdate is a set of canonical (Apply) and orphaned (Unapply)
// transitions that a CanonicityStore commits atomically.
type BatchUpdate struct {
	Apply   []BlockRef
	Unapply []BlockRef
}

// IsEmpty reports whether the batch carries no transitions.
func (b BatchUpdate) IsEmpty() bool {
	return len(b.Apply) == 0 && len(b.Unapply) == 0
}
