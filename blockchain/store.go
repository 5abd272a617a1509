// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package blockchain

import (
	"context"
	"github.com/project-illium/idxd/types"
	"github.com/project-illium/idxd/types/blocks"
)

// CanonicityStore persists the canonicity of blocks and the canonical
// height and slot indices. Every write must be atomic: after an error
// the store must be exactly as it was before the call.
type CanonicityStore interface {
	// AddCanonicalBlock records a genesis lineage root as canonical.
	AddCanonicalBlock(ctx context.Context, height, globalSlot uint32, stateHash, genesisStateHash types.ID, genesisPrevStateHash *types.ID) error

	// UpdateBlockCanonicities applies the batch atomically.
	UpdateBlockCanonicities(ctx context.Context, batch types.BatchUpdate) error

	// UpdateCanonicity applies the update atomically.
	UpdateCanonicity(ctx context.Context, update types.CanonicityUpdate) error

	// GetCanonicalHashAtHeight returns false if no block at the
	// height is canonical.
	GetCanonicalHashAtHeight(ctx context.Context, height uint32) (types.ID, bool, error)

	// GetCanonicalHashAtSlot returns false if no block at the
	// global slot is canonical.
	GetCanonicalHashAtSlot(ctx context.Context, globalSlot uint32) (types.ID, bool, error)

	// GetBlockCanonicity returns Pending if there is no record.
	GetBlockCanonicity(ctx context.Context, stateHash types.ID) (types.Canonicity, error)

	GetKnownGenesisStateHashes(ctx context.Context) ([]types.ID, error)
	GetKnownGenesisPrevStateHashes(ctx context.Context) ([]types.ID, error)
}

// BlockStore persists raw blocks.
type BlockStore interface {
	// AddBlock returns false if the block was already stored.
	AddBlock(ctx context.Context, blk *blocks.Block) (bool, error)

	GetBlock(ctx context.Context, stateHash types.ID) (*blocks.Block, error)
	GetBlocksAtHeight(ctx context.Context, height uint32) ([]*blocks.Block, error)
	GetBlocksAtSlot(ctx context.Context, globalSlot uint32) ([]*blocks.Block, error)
	GetBlockCount(ctx context.Context) (uint64, error)

	// IterateBlocks calls fn for every block in ascending height
	// order.
	IterateBlocks(ctx context.Context, fn func(blk *blocks.Block) error) error
}
