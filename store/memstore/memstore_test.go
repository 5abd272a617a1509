// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package memstore

import (
	"context"
	"errors"
	"github.com/project-illium/idxd/store"
	"github.com/project-illium/idxd/types"
	"github.com/project-illium/idxd/types/blocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func testBlock(seed string, height, slot uint32) *blocks.Block {
	return &blocks.Block{
		Summary: &blocks.BlockSummary{
			StateHash:  types.NewIDFromData([]byte(seed)),
			Height:     height,
			GlobalSlot: slot,
		},
	}
}

func TestBlockStore(t *testing.T) {
	ctx := context.Background()
	s := NewBlockStore()

	a := testBlock("a", 2, 2)
	b := testBlock("b", 1, 1)
	c := testBlock("c", 2, 3)
	for _, blk := range []*blocks.Block{a, b, c} {
		added, err := s.AddBlock(ctx, blk)
		require.NoError(t, err)
		assert.True(t, added)
	}
	added, err := s.AddBlock(ctx, a)
	assert.NoError(t, err)
	assert.False(t, added)

	atHeight, err := s.GetBlocksAtHeight(ctx, 2)
	assert.NoError(t, err)
	assert.Len(t, atHeight, 2)

	atSlot, err := s.GetBlocksAtSlot(ctx, 3)
	assert.NoError(t, err)
	assert.Equal(t, []*blocks.Block{c}, atSlot)

	_, err = s.GetBlock(ctx, types.NewIDFromData([]byte("z")))
	assert.True(t, errors.Is(err, store.ErrBlockNotFound))

	var heights []uint32
	assert.NoError(t, s.IterateBlocks(ctx, func(blk *blocks.Block) error {
		heights = append(heights, blk.Summary.Height)
		return nil
	}))
	assert.Equal(t, []uint32{1, 2, 2}, heights)

	s.SetWriteError(errors.New("boom"))
	_, err = s.AddBlock(ctx, testBlock("d", 3, 4))
	assert.True(t, store.IsIOError(err))
	count, err := s.GetBlockCount(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestCanonicityStore(t *testing.T) {
	ctx := context.Background()
	s := NewCanonicityStore()

	a := types.NewIDFromData([]byte("a"))
	b := types.NewIDFromData([]byte("b"))
	require.NoError(t, s.AddCanonicalBlock(ctx, 1, 1, a, a, nil))
	require.NoError(t, s.UpdateCanonicity(ctx, types.CanonicityUpdate{
		{Height: 2, GlobalSlot: 2, StateHash: b, Status: types.Canonical},
	}))
	assert.NoError(t, s.UpdateCanonicity(ctx, nil))
	assert.Equal(t, 2, s.Commits())

	id, ok, err := s.GetCanonicalHashAtHeight(ctx, 2)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, b, id)

	s.SetWriteError(errors.New("boom"))
	err = s.UpdateCanonicity(ctx, types.CanonicityUpdate{
		{Height: 2, GlobalSlot: 2, StateHash: b, Status: types.Orphaned},
	})
	assert.True(t, store.IsIOError(err))

	c, err := s.GetBlockCanonicity(ctx, b)
	assert.NoError(t, err)
	assert.Equal(t, types.Canonical, c)

	hashes, err := s.GetKnownGenesisStateHashes(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []types.ID{a}, hashes)
}
