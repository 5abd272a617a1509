// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"github.com/project-illium/idxd/repo"
	"github.com/project-illium/idxd/types"
)

// CanonicityDB persists the canonicity of blocks along with the
// canonical height and global slot indices.
//
// Every write method runs in a single datastore transaction so a
// concurrent reader never observes half of an update. Heights and
// slots are indexed globally rather than per lineage; a new genesis
// lineage continues the height and slot numbering of the one it
// forked from.
type CanonicityDB struct {
	ds repo.Datastore
}

// NewCanonicityDB returns a CanonicityDB backed by ds.
func NewCanonicityDB(ds repo.Datastore) *CanonicityDB {
	return &CanonicityDB{ds: ds}
}

// AddCanonicalBlock records a lineage root as canonical and adds its
// genesis hashes to the known lists.
func (c *CanonicityDB) AddCanonicalBlock(ctx context.Context, height, globalSlot uint32, stateHash, genesisStateHash types.ID, genesisPrevStateHash *types.ID) error {
	dbtx, err := c.ds.NewTransaction(ctx, false)
	if err != nil {
		return ioError("add canonical block", err)
	}
	defer dbtx.Discard(ctx)

	if err := dsPutCanonicity(ctx, dbtx, stateHash, types.Canonical); err != nil {
		return ioError("add canonical block", err)
	}
	if err := dsPutCanonicalHash(ctx, dbtx, repo.CanonicalHeightKeyPrefix, height, stateHash); err != nil {
		return ioError("add canonical block", err)
	}
	if err := dsPutCanonicalHash(ctx, dbtx, repo.CanonicalSlotKeyPrefix, globalSlot, stateHash); err != nil {
		return ioError("add canonical block", err)
	}
	if err := dsAppendHashList(ctx, dbtx, repo.KnownGenesisStateHashesKey, genesisStateHash); err != nil {
		return ioError("add canonical block", err)
	}
	if genesisPrevStateHash != nil {
		if err := dsAppendHashList(ctx, dbtx, repo.KnownGenesisPrevStateHashesKey, *genesisPrevStateHash); err != nil {
			return ioError("add canonical block", err)
		}
	}
	if err := dbtx.Commit(ctx); err != nil {
		return ioError("add canonical block", err)
	}
	log.Debug("Added canonical lineage root", log.Args("height", height, "hash", stateHash.String()))
	return nil
}

// UpdateBlockCanonicities applies the batch atomically. Orphaned
// blocks are removed from the height and slot indices before the
// canonical blocks are written, so a batch that swaps the canonical
// block at a height leaves the new block indexed.
func (c *CanonicityDB) UpdateBlockCanonicities(ctx context.Context, batch types.BatchUpdate) error {
	if batch.IsEmpty() {
		return nil
	}
	dbtx, err := c.ds.NewTransaction(ctx, false)
	if err != nil {
		return ioError("update canonicities", err)
	}
	defer dbtx.Discard(ctx)

	for _, ref := range batch.Unapply {
		if err := dsPutCanonicity(ctx, dbtx, ref.StateHash, types.Orphaned); err != nil {
			return ioError("update canonicities", err)
		}
		if err := dsDeleteCanonicalHash(ctx, dbtx, repo.CanonicalHeightKeyPrefix, ref.Height, ref.StateHash); err != nil {
			return ioError("update canonicities", err)
		}
		if err := dsDeleteCanonicalHash(ctx, dbtx, repo.CanonicalSlotKeyPrefix, ref.GlobalSlot, ref.StateHash); err != nil {
			return ioError("update canonicities", err)
		}
	}
	for _, ref := range batch.Apply {
		if err := dsPutCanonicity(ctx, dbtx, ref.StateHash, types.Canonical); err != nil {
			return ioError("update canonicities", err)
		}
		if err := dsPutCanonicalHash(ctx, dbtx, repo.CanonicalHeightKeyPrefix, ref.Height, ref.StateHash); err != nil {
			return ioError("update canonicities", err)
		}
		if err := dsPutCanonicalHash(ctx, dbtx, repo.CanonicalSlotKeyPrefix, ref.GlobalSlot, ref.StateHash); err != nil {
			return ioError("update canonicities", err)
		}
	}
	if err := dbtx.Commit(ctx); err != nil {
		return ioError("update canonicities", err)
	}
	return nil
}

// UpdateCanonicity commits a CanonicityUpdate as one batch.
func (c *CanonicityDB) UpdateCanonicity(ctx context.Context, update types.CanonicityUpdate) error {
	return c.UpdateBlockCanonicities(ctx, update.ToBatch())
}

// GetCanonicalHashAtHeight returns the canonical state hash at the
// height. The bool is false if no block is canonical there yet.
func (c *CanonicityDB) GetCanonicalHashAtHeight(ctx context.Context, height uint32) (types.ID, bool, error) {
	id, ok, err := dsFetchCanonicalHash(ctx, c.ds, repo.CanonicalHeightKeyPrefix, height)
	if err != nil {
		return types.ID{}, false, ioError("get canonical hash at height", err)
	}
	return id, ok, nil
}

// GetCanonicalHashAtSlot returns the canonical state hash at the
// global slot. The bool is false if no block is canonical there.
func (c *CanonicityDB) GetCanonicalHashAtSlot(ctx context.Context, globalSlot uint32) (types.ID, bool, error) {
	id, ok, err := dsFetchCanonicalHash(ctx, c.ds, repo.CanonicalSlotKeyPrefix, globalSlot)
	if err != nil {
		return types.ID{}, false, ioError("get canonical hash at slot", err)
	}
	return id, ok, nil
}

// GetBlockCanonicity returns the recorded canonicity of the block,
// or Pending if there is no record.
func (c *CanonicityDB) GetBlockCanonicity(ctx context.Context, stateHash types.ID) (types.Canonicity, error) {
	canonicity, err := dsFetchCanonicity(ctx, c.ds, stateHash)
	if err != nil {
		return types.Pending, ioError("get block canonicity", err)
	}
	return canonicity, nil
}

// GetKnownGenesisStateHashes returns the genesis state hashes in the
// order their lineages were first seen.
func (c *CanonicityDB) GetKnownGenesisStateHashes(ctx context.Context) ([]types.ID, error) {
	ids, err := dsFetchHashList(ctx, c.ds, repo.KnownGenesisStateHashesKey)
	if err != nil {
		return nil, ioError("get known genesis state hashes", err)
	}
	return ids, nil
}

// GetKnownGenesisPrevStateHashes returns the genesis prev state
// hashes in the order they were first seen.
func (c *CanonicityDB) GetKnownGenesisPrevStateHashes(ctx context.Context) ([]types.ID, error) {
	ids, err := dsFetchHashList(ctx, c.ds, repo.KnownGenesisPrevStateHashesKey)
	if err != nil {
		return nil, ioError("get known genesis prev state hashes", err)
	}
	return ids, nil
}
