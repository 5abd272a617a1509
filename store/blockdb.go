// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package store

import (
	"context"
	lru "github.com/hashicorp/golang-lru"
	datastore "github.com/ipfs/go-datastore"
	"github.com/pkg/errors"
	"github.com/project-illium/idxd/repo"
	"github.com/project-illium/idxd/types"
	"github.com/project-illium/idxd/types/blocks"
)

// DefaultCacheSize is the number of blocks BlockDB keeps in memory
// when no size is given.
const DefaultCacheSize = 5000

// BlockDB persists raw blocks by state hash and indexes them by
// height and global slot. Recently used blocks are held in an LRU
// cache. Blocks are never modified once stored so the cache needs
// no invalidation.
type BlockDB struct {
	ds    repo.Datastore
	cache *lru.Cache
}

// NewBlockDB returns a BlockDB backed by ds. A cacheSize <= 0 uses
// DefaultCacheSize.
func NewBlockDB(ds repo.Datastore, cacheSize int) (*BlockDB, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &BlockDB{
		ds:    ds,
		cache: cache,
	}, nil
}

// AddBlock stores the block and its height and slot index entries.
// It returns false if the block was already stored.
func (b *BlockDB) AddBlock(ctx context.Context, blk *blocks.Block) (bool, error) {
	if blk == nil || blk.Summary == nil {
		return false, errors.New("block has no summary")
	}
	if b.cache.Contains(blk.ID()) {
		return false, nil
	}
	dbtx, err := b.ds.NewTransaction(ctx, false)
	if err != nil {
		return false, ioError("add block", err)
	}
	defer dbtx.Discard(ctx)

	exists, err := dsBlockExists(ctx, dbtx, blk.ID())
	if err != nil {
		return false, ioError("add block", err)
	}
	if exists {
		return false, nil
	}
	if err := dsPutBlock(ctx, dbtx, blk); err != nil {
		return false, ioError("add block", err)
	}
	if err := dsIncrementBlockCount(ctx, dbtx); err != nil {
		return false, ioError("add block", err)
	}
	if err := dbtx.Commit(ctx); err != nil {
		return false, ioError("add block", err)
	}
	b.cache.Add(blk.ID(), blk)
	return true, nil
}

// GetBlock returns the block with the given state hash or
// ErrBlockNotFound.
func (b *BlockDB) GetBlock(ctx context.Context, stateHash types.ID) (*blocks.Block, error) {
	if blk, ok := b.cache.Get(stateHash); ok {
		return blk.(*blocks.Block), nil
	}
	blk, err := dsFetchBlock(ctx, b.ds, stateHash)
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, ErrBlockNotFound
	} else if err != nil {
		return nil, ioError("get block", err)
	}
	b.cache.Add(stateHash, blk)
	return blk, nil
}

// GetBlocksAtHeight returns every stored block at the height,
// ordered by state hash.
func (b *BlockDB) GetBlocksAtHeight(ctx context.Context, height uint32) ([]*blocks.Block, error) {
	return b.fetchIndexed(ctx, heightKey(repo.BlockAtHeightKeyPrefix, height), "get blocks at height")
}

// GetBlocksAtSlot returns every stored block at the global slot,
// ordered by state hash.
func (b *BlockDB) GetBlocksAtSlot(ctx context.Context, globalSlot uint32) ([]*blocks.Block, error) {
	return b.fetchIndexed(ctx, heightKey(repo.BlockAtSlotKeyPrefix, globalSlot), "get blocks at slot")
}

// GetBlockCount returns the number of stored blocks.
func (b *BlockDB) GetBlockCount(ctx context.Context) (uint64, error) {
	count, err := dsFetchBlockCount(ctx, b.ds)
	if err != nil {
		return 0, ioError("get block count", err)
	}
	return count, nil
}

// IterateBlocks calls fn for every stored block in ascending height
// order. Iteration stops at the first error fn returns.
func (b *BlockDB) IterateBlocks(ctx context.Context, fn func(blk *blocks.Block) error) error {
	ids, err := dsFetchIndexedIDs(ctx, b.ds, repo.BlockAtHeightKeyPrefix)
	if err != nil {
		return ioError("iterate blocks", err)
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		blk, err := b.GetBlock(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(blk); err != nil {
			return err
		}
	}
	return nil
}

func (b *BlockDB) fetchIndexed(ctx context.Context, prefix, op string) ([]*blocks.Block, error) {
	ids, err := dsFetchIndexedIDs(ctx, b.ds, prefix)
	if err != nil {
		return nil, ioError(op, err)
	}
	blks := make([]*blocks.Block, 0, len(ids))
	for _, id := range ids {
		blk, err := b.GetBlock(ctx, id)
		if err != nil {
			return nil, err
		}
		blks = append(blks, blk)
	}
	return blks, nil
}
