// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"errors"
	"github.com/project-illium/idxd/repo/mock"
	"github.com/project-illium/idxd/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestCanonicityDBAddCanonicalBlock(t *testing.T) {
	ctx := context.Background()
	db := NewCanonicityDB(mock.NewMapDatastore())

	genesis := types.NewIDFromData([]byte("genesis"))
	prev := types.NewIDFromData([]byte("prev"))
	genesis2 := types.NewIDFromData([]byte("genesis2"))

	require.NoError(t, db.AddCanonicalBlock(ctx, 1, 0, genesis, genesis, nil))
	require.NoError(t, db.AddCanonicalBlock(ctx, 100, 250, genesis2, genesis2, &prev))
	// Adding the same root again must not duplicate the lists.
	require.NoError(t, db.AddCanonicalBlock(ctx, 100, 250, genesis2, genesis2, &prev))

	id, ok, err := db.GetCanonicalHashAtHeight(ctx, 1)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, genesis, id)

	id, ok, err = db.GetCanonicalHashAtSlot(ctx, 250)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, genesis2, id)

	c, err := db.GetBlockCanonicity(ctx, genesis2)
	assert.NoError(t, err)
	assert.Equal(t, types.Canonical, c)

	hashes, err := db.GetKnownGenesisStateHashes(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []types.ID{genesis, genesis2}, hashes)

	prevHashes, err := db.GetKnownGenesisPrevStateHashes(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []types.ID{prev}, prevHashes)
}

func TestCanonicityDBEmpty(t *testing.T) {
	ctx := context.Background()
	db := NewCanonicityDB(mock.NewMapDatastore())

	_, ok, err := db.GetCanonicalHashAtHeight(ctx, 10)
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = db.GetCanonicalHashAtSlot(ctx, 10)
	assert.NoError(t, err)
	assert.False(t, ok)

	c, err := db.GetBlockCanonicity(ctx, types.NewIDFromData([]byte{0x01}))
	assert.NoError(t, err)
	assert.Equal(t, types.Pending, c)

	hashes, err := db.GetKnownGenesisStateHashes(ctx)
	assert.NoError(t, err)
	assert.Empty(t, hashes)
}

func TestCanonicityDBUpdateCanonicity(t *testing.T) {
	ctx := context.Background()
	db := NewCanonicityDB(mock.NewMapDatastore())

	a := types.NewIDFromData([]byte("a"))
	b := types.NewIDFromData([]byte("b"))
	c := types.NewIDFromData([]byte("c"))

	update := types.CanonicityUpdate{
		{Height: 2, GlobalSlot: 3, StateHash: a, Status: types.Canonical},
		{Height: 2, GlobalSlot: 4, StateHash: b, Status: types.Orphaned},
		{Height: 3, GlobalSlot: 5, StateHash: c, Status: types.Canonical},
	}
	require.NoError(t, db.UpdateCanonicity(ctx, update))
	// Replaying the same update leaves the state unchanged.
	require.NoError(t, db.UpdateCanonicity(ctx, update))

	id, ok, err := db.GetCanonicalHashAtHeight(ctx, 2)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, a, id)

	_, ok, err = db.GetCanonicalHashAtSlot(ctx, 4)
	assert.NoError(t, err)
	assert.False(t, ok)

	status, err := db.GetBlockCanonicity(ctx, b)
	assert.NoError(t, err)
	assert.Equal(t, types.Orphaned, status)

	// Swap the canonical block at height 2 in one batch.
	swap := types.CanonicityUpdate{
		{Height: 2, GlobalSlot: 3, StateHash: a, Status: types.Orphaned},
		{Height: 2, GlobalSlot: 4, StateHash: b, Status: types.Canonical},
	}
	require.NoError(t, db.UpdateCanonicity(ctx, swap))

	id, ok, err = db.GetCanonicalHashAtHeight(ctx, 2)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, b, id)

	_, ok, err = db.GetCanonicalHashAtSlot(ctx, 3)
	assert.NoError(t, err)
	assert.False(t, ok)

	id, ok, err = db.GetCanonicalHashAtSlot(ctx, 4)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, b, id)

	assert.NoError(t, db.UpdateCanonicity(ctx, nil))
}

func TestCanonicityDBCommitError(t *testing.T) {
	ctx := context.Background()
	ds := mock.NewMapDatastore()
	db := NewCanonicityDB(ds)

	a := types.NewIDFromData([]byte("a"))
	ds.SetCommitError(errors.New("disk full"))

	err := db.UpdateCanonicity(ctx, types.CanonicityUpdate{
		{Height: 1, GlobalSlot: 1, StateHash: a, Status: types.Canonical},
	})
	assert.Error(t, err)
	assert.True(t, IsIOError(err))

	err = db.AddCanonicalBlock(ctx, 1, 1, a, a, nil)
	assert.True(t, IsIOError(err))

	ds.SetCommitError(nil)
	_, ok, err := db.GetCanonicalHashAtHeight(ctx, 1)
	assert.NoError(t, err)
	assert.False(t, ok)

	c, err := db.GetBlockCanonicity(ctx, a)
	assert.NoError(t, err)
	assert.Equal(t, types.Pending, c)
}
