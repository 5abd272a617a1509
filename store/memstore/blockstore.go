// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package memstore provides in-memory CanonicityStore and BlockStore
// implementations for deterministic tests. Both can be told to fail
// their writes with a store.IOError.
package memstore

import (
	"context"
	"github.com/google/btree"
	"github.com/project-illium/idxd/store"
	"github.com/project-illium/idxd/types"
	"github.com/project-illium/idxd/types/blocks"
	"sync"
)

const defaultTreeDegree = 2

type indexItem struct {
	n  uint32
	id types.ID
}

func lessIndexItem(a, b indexItem) bool {
	if a.n != b.n {
		return a.n < b.n
	}
	return a.id.Compare(b.id) < 0
}

// BlockStore keeps blocks in a map and orders the height and slot
// indices with btrees.
type BlockStore struct {
	blocks   map[types.ID]*blocks.Block
	byHeight *btree.BTreeG[indexItem]
	bySlot   *btree.BTreeG[indexItem]
	writeErr error
	mtx      sync.RWMutex
}

// NewBlockStore returns an empty BlockStore.
func NewBlockStore() *BlockStore {
	return &BlockStore{
		blocks:   make(map[types.ID]*blocks.Block),
		byHeight: btree.NewG(defaultTreeDegree, lessIndexItem),
		bySlot:   btree.NewG(defaultTreeDegree, lessIndexItem),
		mtx:      sync.RWMutex{},
	}
}

// SetWriteError makes every following write fail with an IOError
// wrapping err. Passing nil restores normal operation.
func (s *BlockStore) SetWriteError(err error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.writeErr = err
}

func (s *BlockStore) AddBlock(ctx context.Context, blk *blocks.Block) (bool, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.writeErr != nil {
		return false, &store.IOError{Op: "add block", Err: s.writeErr}
	}
	if _, ok := s.blocks[blk.ID()]; ok {
		return false, nil
	}
	s.blocks[blk.ID()] = blk
	s.byHeight.ReplaceOrInsert(indexItem{n: blk.Summary.Height, id: blk.ID()})
	s.bySlot.ReplaceOrInsert(indexItem{n: blk.Summary.GlobalSlot, id: blk.ID()})
	return true, nil
}

func (s *BlockStore) GetBlock(ctx context.Context, stateHash types.ID) (*blocks.Block, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	blk, ok := s.blocks[stateHash]
	if !ok {
		return nil, store.ErrBlockNotFound
	}
	return blk, nil
}

func (s *BlockStore) GetBlocksAtHeight(ctx context.Context, height uint32) ([]*blocks.Block, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.collect(s.byHeight, height), nil
}

func (s *BlockStore) GetBlocksAtSlot(ctx context.Context, globalSlot uint32) ([]*blocks.Block, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.collect(s.bySlot, globalSlot), nil
}

func (s *BlockStore) GetBlockCount(ctx context.Context) (uint64, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return uint64(len(s.blocks)), nil
}

// IterateBlocks calls fn for each block in ascending height order.
// The store is not locked while fn runs.
func (s *BlockStore) IterateBlocks(ctx context.Context, fn func(blk *blocks.Block) error) error {
	s.mtx.RLock()
	all := make([]*blocks.Block, 0, len(s.blocks))
	s.byHeight.Ascend(func(item indexItem) bool {
		all = append(all, s.blocks[item.id])
		return true
	})
	s.mtx.RUnlock()

	for _, blk := range all {
		if err := fn(blk); err != nil {
			return err
		}
	}
	return nil
}

func (s *BlockStore) collect(tree *btree.BTreeG[indexItem], n uint32) []*blocks.Block {
	var ret []*blocks.Block
	tree.AscendGreaterOrEqual(indexItem{n: n}, func(item indexItem) bool {
		if item.n != n {
			return false
		}
		ret = append(ret, s.blocks[item.id])
		return true
	})
	return ret
}
