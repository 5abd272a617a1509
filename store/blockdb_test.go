// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"errors"
	"github.com/project-illium/idxd/repo/mock"
	"github.com/project-illium/idxd/types"
	"github.com/project-illium/idxd/types/blocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func makeBlock(seed string, parent types.ID, height, slot uint32) *blocks.Block {
	genesis := types.NewIDFromData([]byte("genesis"))
	return &blocks.Block{
		Summary: &blocks.BlockSummary{
			StateHash:        types.NewIDFromData([]byte(seed)),
			ParentHash:       parent,
			GenesisStateHash: genesis,
			Height:           height,
			GlobalSlot:       slot,
		},
		Data: []byte(seed),
	}
}

func TestBlockDB(t *testing.T) {
	ctx := context.Background()
	// A cache of one forces most reads through the datastore.
	db, err := NewBlockDB(mock.NewMapDatastore(), 1)
	require.NoError(t, err)

	b1 := makeBlock("b1", types.ID{}, 1, 1)
	b2 := makeBlock("b2", b1.ID(), 2, 3)
	b2a := makeBlock("b2a", b1.ID(), 2, 4)
	b3 := makeBlock("b3", b2.ID(), 3, 4)

	for _, blk := range []*blocks.Block{b3, b2a, b1, b2} {
		added, err := db.AddBlock(ctx, blk)
		require.NoError(t, err)
		assert.True(t, added)
	}
	added, err := db.AddBlock(ctx, b1)
	assert.NoError(t, err)
	assert.False(t, added)

	count, err := db.GetBlockCount(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(4), count)

	blk, err := db.GetBlock(ctx, b2.ID())
	assert.NoError(t, err)
	assert.Equal(t, b2.Summary, blk.Summary)
	assert.Equal(t, b2.Data, blk.Data)

	_, err = db.GetBlock(ctx, types.NewIDFromData([]byte("missing")))
	assert.True(t, errors.Is(err, ErrBlockNotFound))
	assert.False(t, IsIOError(err))

	atHeight, err := db.GetBlocksAtHeight(ctx, 2)
	assert.NoError(t, err)
	require.Len(t, atHeight, 2)
	assert.True(t, atHeight[0].ID().Compare(atHeight[1].ID()) < 0)

	atSlot, err := db.GetBlocksAtSlot(ctx, 4)
	assert.NoError(t, err)
	assert.Len(t, atSlot, 2)

	empty, err := db.GetBlocksAtHeight(ctx, 100)
	assert.NoError(t, err)
	assert.Empty(t, empty)

	var heights []uint32
	err = db.IterateBlocks(ctx, func(blk *blocks.Block) error {
		heights = append(heights, blk.Summary.Height)
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 2, 3}, heights)

	stop := errors.New("stop")
	n := 0
	err = db.IterateBlocks(ctx, func(blk *blocks.Block) error {
		n++
		return stop
	})
	assert.Equal(t, stop, err)
	assert.Equal(t, 1, n)
}

func TestBlockDBCommitError(t *testing.T) {
	ctx := context.Background()
	ds := mock.NewMapDatastore()
	db, err := NewBlockDB(ds, 0)
	require.NoError(t, err)

	ds.SetCommitError(errors.New("disk full"))
	b1 := makeBlock("b1", types.ID{}, 1, 1)
	_, err = db.AddBlock(ctx, b1)
	assert.True(t, IsIOError(err))

	ds.SetCommitError(nil)
	_, err = db.GetBlock(ctx, b1.ID())
	assert.True(t, errors.Is(err, ErrBlockNotFound))

	added, err := db.AddBlock(ctx, b1)
	assert.NoError(t, err)
	assert.True(t, added)
}
