// Copyright (c) 2022 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package harness

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestNewTestHarness(t *testing.T) {
	h, err := NewTestHarness(DefaultOptions())
	require.NoError(t, err)

	blks, err := h.GenerateBlocks(5)
	require.NoError(t, err)
	assert.Len(t, blks, 5)

	tip, err := h.BestTip()
	assert.NoError(t, err)
	assert.Equal(t, blks[4].ID(), tip.ID())
	assert.Equal(t, uint32(6), tip.Summary.Height)

	more, err := h.GenerateBlocks(1)
	require.NoError(t, err)
	assert.Equal(t, blks[4].ID(), more[0].Summary.ParentHash)
}

func TestBranchIsDeterministic(t *testing.T) {
	genesis := NewGenesisBlock("regtest", 1, 0, nil)
	a := Branch(genesis, 3, "a")
	a2 := Branch(genesis, 3, "a")
	b := Branch(genesis, 3, "b")

	for i := range a {
		assert.Equal(t, a[i].Summary, a2[i].Summary)
		assert.NotEqual(t, a[i].ID(), b[i].ID())
		assert.Equal(t, a[i].Summary.Height, b[i].Summary.Height)
	}
	assert.True(t, genesis.Summary.IsGenesis())
	assert.False(t, a[0].Summary.IsGenesis())
	assert.Equal(t, genesis.ID(), a[0].Summary.GenesisStateHash)
}
