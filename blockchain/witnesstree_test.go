// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package blockchain

import (
	"encoding/binary"
	"github.com/project-illium/idxd/params/hash"
	"github.com/project-illium/idxd/types"
	"github.com/project-illium/idxd/types/blocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func testGenesis(label string, height uint32) *blocks.BlockSummary {
	id := types.NewIDFromData([]byte(label))
	return &blocks.BlockSummary{
		StateHash:        id,
		GenesisStateHash: id,
		Height:           height,
		LastVRFOutput:    hash.HashFunc(id[:]),
	}
}

func testChild(parent *blocks.BlockSummary, label string) *blocks.BlockSummary {
	b := append(parent.StateHash.Bytes(), label...)
	b = binary.BigEndian.AppendUint32(b, parent.Height+1)
	id := types.NewIDFromData(b)
	return &blocks.BlockSummary{
		StateHash:        id,
		ParentHash:       parent.StateHash,
		GenesisStateHash: parent.GenesisStateHash,
		Height:           parent.Height + 1,
		GlobalSlot:       parent.GlobalSlot + 1,
		LastVRFOutput:    hash.HashFunc(id[:]),
	}
}

func testBranch(parent *blocks.BlockSummary, n int, label string) []*blocks.BlockSummary {
	ret := make([]*blocks.BlockSummary, 0, n)
	for i := 0; i < n; i++ {
		parent = testChild(parent, label)
		ret = append(ret, parent)
	}
	return ret
}

func insertAll(t *testing.T, tree *WitnessTree, summaries ...*blocks.BlockSummary) {
	for _, s := range summaries {
		outcome, err := tree.Insert(s)
		require.NoError(t, err)
		require.Equal(t, Inserted, outcome)
	}
}

func TestWitnessTreeInsert(t *testing.T) {
	g := testGenesis("genesis", 1)
	tree := NewWitnessTree(g)
	assert.Equal(t, g.StateHash, tree.Root())
	assert.Equal(t, 1, tree.Len())

	status, ok := tree.Status(g.StateHash)
	assert.True(t, ok)
	assert.Equal(t, types.Canonical, status)

	a := testBranch(g, 3, "a")
	outcome, err := tree.Insert(a[0])
	assert.NoError(t, err)
	assert.Equal(t, Inserted, outcome)

	outcome, err = tree.Insert(a[0])
	assert.NoError(t, err)
	assert.Equal(t, AlreadyPresent, outcome)
	assert.Equal(t, 2, tree.Len())

	status, ok = tree.Status(a[0].StateHash)
	assert.True(t, ok)
	assert.Equal(t, types.Pending, status)

	// a[2]'s parent is not in the tree yet.
	_, err = tree.Insert(a[2])
	assert.True(t, ErrorIs(err, ErrMissingParent))
	_, ok = tree.Get(a[2].StateHash)
	assert.False(t, ok)

	insertAll(t, tree, a[1], a[2])
	assert.Equal(t, 4, tree.Len())

	badHeight := testChild(a[0], "bad")
	badHeight.Height += 2
	_, err = tree.Insert(badHeight)
	assert.True(t, ErrorIs(err, ErrInvalidHeight))

	other := testChild(testGenesis("other", 1), "x")
	other.ParentHash = a[2].StateHash
	_, err = tree.Insert(other)
	assert.True(t, ErrorIs(err, ErrInvalidGenesis))

	assert.Equal(t, 4, tree.Len())
}

func TestWitnessTreeTraversal(t *testing.T) {
	g := testGenesis("genesis", 10)
	tree := NewWitnessTree(g)

	a := testBranch(g, 3, "a")
	b := testBranch(a[0], 3, "b")
	insertAll(t, tree, a...)
	insertAll(t, tree, b...)

	expected := []types.ID{a[1].StateHash, b[0].StateHash}
	sortIDs(expected)
	assert.Equal(t, expected, tree.ChildrenOf(a[0].StateHash))
	assert.Empty(t, tree.ChildrenOf(b[2].StateHash))
	assert.Nil(t, tree.ChildrenOf(types.NewIDFromData([]byte("unknown"))))

	atHeight := tree.NodesAtHeight(13)
	expected = []types.ID{a[2].StateHash, b[1].StateHash}
	sortIDs(expected)
	assert.Equal(t, expected, atHeight)
	assert.Empty(t, tree.NodesAtHeight(50))

	path, err := tree.PathToGenesis(b[2].StateHash)
	assert.NoError(t, err)
	assert.Equal(t, []types.ID{b[2].StateHash, b[1].StateHash, b[0].StateHash, a[0].StateHash, g.StateHash}, path)

	path, err = tree.PathToGenesis(g.StateHash)
	assert.NoError(t, err)
	assert.Equal(t, []types.ID{g.StateHash}, path)

	_, err = tree.PathToGenesis(types.NewIDFromData([]byte("unknown")))
	assert.True(t, ErrorIs(err, ErrUnknownBlock))

	tests := []struct {
		name     string
		a, b     types.ID
		expected types.ID
	}{
		{"fork", a[2].StateHash, b[2].StateHash, a[0].StateHash},
		{"uneven fork", a[1].StateHash, b[2].StateHash, a[0].StateHash},
		{"ancestor", a[2].StateHash, a[1].StateHash, a[1].StateHash},
		{"same block", b[1].StateHash, b[1].StateHash, b[1].StateHash},
		{"root", g.StateHash, b[2].StateHash, g.StateHash},
	}
	for _, test := range tests {
		lca, err := tree.LowestCommonAncestor(test.a, test.b)
		assert.NoError(t, err, test.name)
		assert.Equal(t, test.expected, lca, test.name)

		lca, err = tree.LowestCommonAncestor(test.b, test.a)
		assert.NoError(t, err, test.name)
		assert.Equal(t, test.expected, lca, test.name)
	}

	_, err = tree.LowestCommonAncestor(a[0].StateHash, types.NewIDFromData([]byte("unknown")))
	assert.True(t, ErrorIs(err, ErrUnknownBlock))

	segment, err := tree.chainSegment(b[2].StateHash, 11, 12)
	assert.NoError(t, err)
	assert.Equal(t, []types.ID{a[0].StateHash, b[0].StateHash}, segment)
	_, err = tree.chainSegment(b[2].StateHash, 9, 12)
	assert.Error(t, err)
}

func TestWitnessTreeRemove(t *testing.T) {
	g := testGenesis("genesis", 1)
	tree := NewWitnessTree(g)
	a := testBranch(g, 2, "a")
	insertAll(t, tree, a...)

	// Only leaves can be removed.
	tree.remove(a[0].StateHash)
	tree.remove(g.StateHash)
	assert.Equal(t, 3, tree.Len())

	tree.remove(a[1].StateHash)
	assert.Equal(t, 2, tree.Len())
	_, ok := tree.Get(a[1].StateHash)
	assert.False(t, ok)
	assert.Empty(t, tree.ChildrenOf(a[0].StateHash))
	assert.Empty(t, tree.NodesAtHeight(3))

	outcome, err := tree.Insert(a[1])
	assert.NoError(t, err)
	assert.Equal(t, Inserted, outcome)
}

func TestInsertOutcomeString(t *testing.T) {
	assert.Equal(t, "Inserted", Inserted.String())
	assert.Equal(t, "AlreadyPresent", AlreadyPresent.String())
	assert.Equal(t, "Unknown InsertOutcome (7)", InsertOutcome(7).String())
}
