// Copyright (c) 2022 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package harness

import (
	"encoding/binary"
	"github.com/project-illium/idxd/params/hash"
	"github.com/project-illium/idxd/types"
	"github.com/project-illium/idxd/types/blocks"
)

// NewGenesisBlock returns the root block of a new genesis lineage.
// prev is the genesis prev state hash of a lineage that continues an
// earlier one and may be nil.
func NewGenesisBlock(label string, height, globalSlot uint32, prev *types.ID) *blocks.Block {
	var parent types.ID
	if prev != nil {
		parent = *prev
	}
	stateHash := deriveID(parent, label, height)
	return &blocks.Block{
		Summary: &blocks.BlockSummary{
			StateHash:            stateHash,
			ParentHash:           parent,
			GenesisStateHash:     stateHash,
			GenesisPrevStateHash: prev,
			Height:               height,
			GlobalSlot:           globalSlot,
			LastVRFOutput:        hash.HashFunc(stateHash[:]),
		},
		Data: []byte(label),
	}
}

// NewBlock returns a child of parent. Blocks built from the same
// parent and label are identical, so the same fork can be rebuilt in
// different tests.
func NewBlock(parent *blocks.Block, label string) *blocks.Block {
	p := parent.Summary
	stateHash := deriveID(p.StateHash, label, p.Height+1)
	return &blocks.Block{
		Summary: &blocks.BlockSummary{
			StateHash:        stateHash,
			ParentHash:       p.StateHash,
			GenesisStateHash: p.GenesisStateHash,
			Height:           p.Height + 1,
			GlobalSlot:       p.GlobalSlot + 1,
			LastVRFOutput:    hash.HashFunc(stateHash[:]),
		},
		Data: []byte(label),
	}
}

// Branch returns n blocks extending parent, each the child of the
// one before it.
func Branch(parent *blocks.Block, n int, label string) []*blocks.Block {
	blks := make([]*blocks.Block, 0, n)
	for i := 0; i < n; i++ {
		parent = NewBlock(parent, label)
		blks = append(blks, parent)
	}
	return blks
}

func deriveID(parent types.ID, label string, height uint32) types.ID {
	b := make([]byte, 0, len(parent)+len(label)+4)
	b = append(b, parent[:]...)
	b = append(b, label...)
	b = binary.BigEndian.AppendUint32(b, height)
	return types.NewIDFromData(b)
}
