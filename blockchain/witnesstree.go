// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"github.com/project-illium/idxd/types"
	"github.com/project-illium/idxd/types/blocks"
	"sort"
)

// InsertOutcome is the result of a successful insert into the
// witness tree.
type InsertOutcome int

const (
	// Inserted means the block was new and is now in the tree.
	Inserted InsertOutcome = iota
	// AlreadyPresent means the block was known and nothing changed.
	AlreadyPresent
)

func (o InsertOutcome) String() string {
	switch o {
	case Inserted:
		return "Inserted"
	case AlreadyPresent:
		return "AlreadyPresent"
	default:
		return fmt.Sprintf("Unknown InsertOutcome (%d)", int(o))
	}
}

// witnessNode is a block in the witness tree. Links to other nodes
// are state hashes which are resolved through the tree's node map.
type witnessNode struct {
	summary  *blocks.BlockSummary
	parent   types.ID
	isRoot   bool
	children map[types.ID]struct{}
	status   types.Canonicity
}

// WitnessTree holds every known block of a single genesis lineage.
// Nodes are stored in a map keyed by state hash and are never
// removed once connected.
//
// WitnessTree is not safe for concurrent use.
type WitnessTree struct {
	root     types.ID
	nodes    map[types.ID]*witnessNode
	byHeight map[uint32][]types.ID
}

// NewWitnessTree returns a tree rooted at the lineage's genesis
// block. The root is canonical.
func NewWitnessTree(root *blocks.BlockSummary) *WitnessTree {
	t := &WitnessTree{
		root:     root.StateHash,
		nodes:    make(map[types.ID]*witnessNode),
		byHeight: make(map[uint32][]types.ID),
	}
	t.nodes[root.StateHash] = &witnessNode{
		summary:  root,
		isRoot:   true,
		children: make(map[types.ID]struct{}),
		status:   types.Canonical,
	}
	t.byHeight[root.Height] = []types.ID{root.StateHash}
	return t
}

// Insert connects the block to its parent. The parent must already
// be in the tree.
func (t *WitnessTree) Insert(summary *blocks.BlockSummary) (InsertOutcome, error) {
	if _, ok := t.nodes[summary.StateHash]; ok {
		return AlreadyPresent, nil
	}
	root := t.nodes[t.root]
	if summary.GenesisStateHash != root.summary.GenesisStateHash {
		return Inserted, ruleError(ErrInvalidGenesis, fmt.Sprintf("block %s belongs to lineage %s not %s",
			summary.StateHash, summary.GenesisStateHash, root.summary.GenesisStateHash))
	}
	parent, ok := t.nodes[summary.ParentHash]
	if !ok {
		return Inserted, ruleError(ErrMissingParent, fmt.Sprintf("parent %s of block %s is unknown",
			summary.ParentHash, summary.StateHash))
	}
	if summary.Height != parent.summary.Height+1 {
		return Inserted, ruleError(ErrInvalidHeight, fmt.Sprintf("block %s has height %d, parent height is %d",
			summary.StateHash, summary.Height, parent.summary.Height))
	}

	t.nodes[summary.StateHash] = &witnessNode{
		summary:  summary,
		parent:   summary.ParentHash,
		children: make(map[types.ID]struct{}),
		status:   types.Pending,
	}
	parent.children[summary.StateHash] = struct{}{}
	t.byHeight[summary.Height] = append(t.byHeight[summary.Height], summary.StateHash)
	return Inserted, nil
}

// remove undoes the insert of a leaf. It is used to roll back
// an insert whose persistence failed.
func (t *WitnessTree) remove(id types.ID) {
	n, ok := t.nodes[id]
	if !ok || n.isRoot || len(n.children) > 0 {
		return
	}
	delete(t.nodes[n.parent].children, id)
	delete(t.nodes, id)

	ids := t.byHeight[n.summary.Height]
	for i, x := range ids {
		if x == id {
			t.byHeight[n.summary.Height] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(t.byHeight[n.summary.Height]) == 0 {
		delete(t.byHeight, n.summary.Height)
	}
}

// Root returns the state hash of the lineage root.
func (t *WitnessTree) Root() types.ID {
	return t.root
}

// Len returns the number of nodes in the tree.
func (t *WitnessTree) Len() int {
	return len(t.nodes)
}

// Get returns the summary of the block with the given state hash.
func (t *WitnessTree) Get(id types.ID) (*blocks.BlockSummary, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, false
	}
	return n.summary, true
}

// Status returns the in-memory canonicity of the block.
func (t *WitnessTree) Status(id types.ID) (types.Canonicity, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return types.Pending, false
	}
	return n.status, true
}

func (t *WitnessTree) setStatus(id types.ID, status types.Canonicity) {
	if n, ok := t.nodes[id]; ok {
		n.status = status
	}
}

// ChildrenOf returns the children of the block sorted by state hash.
func (t *WitnessTree) ChildrenOf(id types.ID) []types.ID {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	children := make([]types.ID, 0, len(n.children))
	for child := range n.children {
		children = append(children, child)
	}
	sortIDs(children)
	return children
}

// NodesAtHeight returns every block at the height sorted by state hash.
func (t *WitnessTree) NodesAtHeight(height uint32) []types.ID {
	ids := append([]types.ID(nil), t.byHeight[height]...)
	sortIDs(ids)
	return ids
}

// PathToGenesis returns the state hashes from the block back to the
// lineage root, both inclusive.
func (t *WitnessTree) PathToGenesis(id types.ID) ([]types.ID, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, ruleError(ErrUnknownBlock, fmt.Sprintf("block %s is not in the witness tree", id))
	}
	path := make([]types.ID, 0, n.summary.Height-t.nodes[t.root].summary.Height+1)
	for {
		path = append(path, n.summary.StateHash)
		if n.isRoot {
			return path, nil
		}
		n = t.nodes[n.parent]
	}
}

// LowestCommonAncestor returns the deepest block that is an ancestor
// of (or equal to) both a and b.
func (t *WitnessTree) LowestCommonAncestor(a, b types.ID) (types.ID, error) {
	na, ok := t.nodes[a]
	if !ok {
		return types.ID{}, ruleError(ErrUnknownBlock, fmt.Sprintf("block %s is not in the witness tree", a))
	}
	nb, ok := t.nodes[b]
	if !ok {
		return types.ID{}, ruleError(ErrUnknownBlock, fmt.Sprintf("block %s is not in the witness tree", b))
	}
	// Every edge lowers the height by exactly one so both walks meet
	// once they are level.
	for na.summary.Height > nb.summary.Height {
		na = t.nodes[na.parent]
	}
	for nb.summary.Height > na.summary.Height {
		nb = t.nodes[nb.parent]
	}
	for na != nb {
		if na.isRoot || nb.isRoot {
			return types.ID{}, AssertError("LowestCommonAncestor: walked past the lineage root")
		}
		na = t.nodes[na.parent]
		nb = t.nodes[nb.parent]
	}
	return na.summary.StateHash, nil
}

// chainSegment returns the ancestors of id (inclusive) at heights
// lo through hi. Index i holds the ancestor at height lo+i.
func (t *WitnessTree) chainSegment(id types.ID, lo, hi uint32) ([]types.ID, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, ruleError(ErrUnknownBlock, fmt.Sprintf("block %s is not in the witness tree", id))
	}
	if hi > n.summary.Height || lo < t.nodes[t.root].summary.Height {
		return nil, AssertError(fmt.Sprintf("chainSegment: heights %d-%d out of range", lo, hi))
	}
	segment := make([]types.ID, hi-lo+1)
	for {
		h := n.summary.Height
		if h <= hi {
			segment[h-lo] = n.summary.StateHash
		}
		if h == lo {
			return segment, nil
		}
		n = t.nodes[n.parent]
	}
}

func sortIDs(ids []types.ID) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].Compare(ids[j]) < 0
	})
}
