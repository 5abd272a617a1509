// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package blockchain

import (
	"context"
	"github.com/project-illium/idxd/types"
	"time"
)

// CanonicityEngine decides which blocks of a lineage are canonical
// and which are orphaned, and persists those decisions.
//
// For every height at or below the finality boundary
// (best tip height - k) exactly one block, the best tip's ancestor,
// is Canonical and every other block at that height is Orphaned.
// Blocks above the boundary are Pending.
type CanonicityEngine struct {
	tree       *WitnessTree
	selector   *BestTipSelector
	store      CanonicityStore
	metrics    *Metrics
	k          uint32
	rootHeight uint32

	// boundary is the highest height with a canonical block.
	boundary uint32

	// ceiling, if non-zero, is the root height of a later lineage.
	// Heights from there on are indexed for that lineage so the
	// boundary stays below it.
	ceiling uint32
}

// NewCanonicityEngine returns an engine for the lineage held in tree.
// The tree root is the initial best tip.
func NewCanonicityEngine(tree *WitnessTree, store CanonicityStore, k uint32, metrics *Metrics) *CanonicityEngine {
	root, _ := tree.Get(tree.Root())
	return &CanonicityEngine{
		tree:       tree,
		selector:   NewBestTipSelector(tree.Root()),
		store:      store,
		metrics:    metrics,
		k:          k,
		rootHeight: root.Height,
		boundary:   root.Height,
	}
}

// BestTip returns the state hash of the lineage's best tip.
func (e *CanonicityEngine) BestTip() types.ID {
	return e.selector.Tip()
}

// Boundary returns the highest height at which a block is canonical.
func (e *CanonicityEngine) Boundary() uint32 {
	return e.boundary
}

func (e *CanonicityEngine) boundaryFor(tipHeight uint32) uint32 {
	if tipHeight < e.rootHeight+e.k {
		return e.rootHeight
	}
	boundary := tipHeight - e.k
	if e.ceiling > 0 && boundary >= e.ceiling {
		boundary = e.ceiling - 1
	}
	return boundary
}

// limitBoundary stops the boundary short of height. It is called when
// a lineage rooted at height is opened.
func (e *CanonicityEngine) limitBoundary(height uint32) {
	if e.ceiling == 0 || height < e.ceiling {
		e.ceiling = height
	}
}

// OnNewBestTip computes the transitions caused by the best tip moving
// from oldTip to newTip. Blocks on newTip's chain that are at or below
// the new boundary become Canonical and their competitors become
// Orphaned. If the lowest common ancestor of the two tips is below the
// current boundary a canonical block would have to be orphaned and a
// FinalityViolationError is returned instead.
//
// Nothing is mutated. The result is ordered by ascending height.
func (e *CanonicityEngine) OnNewBestTip(oldTip, newTip types.ID) (types.CanonicityUpdate, error) {
	update, _, err := e.onNewBestTip(oldTip, newTip)
	return update, err
}

func (e *CanonicityEngine) onNewBestTip(oldTip, newTip types.ID) (types.CanonicityUpdate, types.ID, error) {
	tip, ok := e.tree.Get(newTip)
	if !ok {
		return nil, types.ID{}, AssertError("OnNewBestTip: new tip is not in the witness tree")
	}
	lcaID, err := e.tree.LowestCommonAncestor(oldTip, newTip)
	if err != nil {
		return nil, types.ID{}, err
	}
	lca, _ := e.tree.Get(lcaID)

	lo := e.boundary + 1
	if lca.Height < e.boundary {
		lo = lca.Height + 1
	}
	update, err := e.reconcile(newTip, lo, e.boundaryFor(tip.Height))
	return update, lcaID, err
}

// lateBlockUpdate orphans a block that arrived at or below the
// boundary without changing the best tip.
func (e *CanonicityEngine) lateBlockUpdate(id types.ID) (types.CanonicityUpdate, error) {
	s, ok := e.tree.Get(id)
	if !ok || s.Height > e.boundary {
		return nil, nil
	}
	return e.reconcile(e.selector.Tip(), s.Height, s.Height)
}

// reconcile returns the transitions that make heights lo through hi
// agree with tip's chain.
func (e *CanonicityEngine) reconcile(tip types.ID, lo, hi uint32) (types.CanonicityUpdate, error) {
	if lo > hi {
		return nil, nil
	}
	chain, err := e.tree.chainSegment(tip, lo, hi)
	if err != nil {
		return nil, err
	}
	var update types.CanonicityUpdate
	for h := lo; h <= hi; h++ {
		canonical := chain[h-lo]
		for _, id := range e.tree.NodesAtHeight(h) {
			want := types.Orphaned
			if id == canonical {
				want = types.Canonical
			}
			current, _ := e.tree.Status(id)
			if current == want {
				continue
			}
			if current == types.Canonical {
				return nil, FinalityViolationError{StateHash: id, Height: h, Tip: tip}
			}
			s, _ := e.tree.Get(id)
			update = append(update, types.CanonicityTransition{
				Height:     h,
				GlobalSlot: s.GlobalSlot,
				StateHash:  id,
				Status:     want,
			})
		}
	}
	update.Sort()
	return update, nil
}

// UpdateCanonicity persists the update and, only once the store has
// committed it, applies it to the in-memory statuses. A context that
// is already done aborts the update with no change.
func (e *CanonicityEngine) UpdateCanonicity(ctx context.Context, update types.CanonicityUpdate) error {
	if len(update) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	if err := e.store.UpdateCanonicity(ctx, update); err != nil {
		return err
	}
	e.metrics.observeCommit(time.Since(start))

	for _, t := range update {
		e.tree.setStatus(t.StateHash, t.Status)
	}
	e.metrics.countTransitions(update)
	return nil
}

// connection is a block's effect on its lineage, computed by
// prepare and made durable by commit.
type connection struct {
	blockID    types.ID
	oldTip     types.ID
	newTip     types.ID
	tipChanged bool
	reorg      bool
	update     types.CanonicityUpdate
}

// prepare selects the best tip after id was inserted into the tree
// and computes the resulting update. On error the selector is left
// unchanged.
func (e *CanonicityEngine) prepare(id types.ID) (*connection, error) {
	oldTip := e.selector.Tip()
	newTip, changed := e.selector.Select(e.tree, id)
	conn := &connection{
		blockID:    id,
		oldTip:     oldTip,
		newTip:     newTip,
		tipChanged: changed,
	}

	var err error
	if changed {
		var lca types.ID
		conn.update, lca, err = e.onNewBestTip(oldTip, newTip)
		conn.reorg = lca != oldTip
	} else {
		conn.update, err = e.lateBlockUpdate(id)
	}
	if err != nil {
		e.selector.setTip(oldTip)
		return nil, err
	}
	return conn, nil
}

// commit persists a prepared connection and advances the boundary.
func (e *CanonicityEngine) commit(ctx context.Context, conn *connection) error {
	if err := e.UpdateCanonicity(ctx, conn.update); err != nil {
		return err
	}
	if conn.tipChanged {
		tip, _ := e.tree.Get(conn.newTip)
		if b := e.boundaryFor(tip.Height); b > e.boundary {
			e.boundary = b
		}
	}
	return nil
}

// rollback undoes the tip selection of a prepared connection that
// could not be committed.
func (e *CanonicityEngine) rollback(conn *connection) {
	e.selector.setTip(conn.oldTip)
}

// catchUp brings every height from the root to the boundary in line
// with the best tip. It is used after the tree is rebuilt from the
// block store, when decisions that were not committed before a
// shutdown may be missing.
func (e *CanonicityEngine) catchUp(ctx context.Context) (types.CanonicityUpdate, error) {
	tip, _ := e.tree.Get(e.selector.Tip())
	hi := e.boundaryFor(tip.Height)
	if e.boundary > hi {
		// The threshold was raised since these blocks were decided.
		hi = e.boundary
	}
	update, err := e.reconcile(tip.StateHash, e.rootHeight+1, hi)
	if err != nil {
		return nil, err
	}
	if err := e.UpdateCanonicity(ctx, update); err != nil {
		return nil, err
	}
	e.boundary = hi
	return update, nil
}
