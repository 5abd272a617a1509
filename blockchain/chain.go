// Copyright (c) 2022 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package blockchain

import (
	"context"
	"fmt"
	"github.com/project-illium/idxd/params"
	"github.com/project-illium/idxd/types"
	"github.com/project-illium/idxd/types/blocks"
	"sync"
)

// lineage is the chain state of a single genesis root.
type lineage struct {
	genesis     types.ID
	genesisPrev *types.ID
	tree        *WitnessTree
	engine      *CanonicityEngine
}

// Blockchain tracks every genesis lineage it has seen. For each it
// keeps a witness tree of candidate blocks, selects the best tip and
// drives the canonicity engine.
//
// Blocks are processed one at a time. Queries may run concurrently
// with processing and never observe a partially applied update.
type Blockchain struct {
	params          *params.NetworkParams
	canonicityStore CanonicityStore
	blockStore      BlockStore
	metrics         *Metrics
	threshold       uint32

	lineages     map[types.ID]*lineage
	lineageOrder []types.ID

	notifications     []NotificationCallback
	notificationsLock sync.RWMutex

	// stateLock protects concurrent access to the chain state
	stateLock sync.RWMutex
}

// NewBlockchain returns a fully initialized blockchain. Any blocks
// already in the block store are replayed into the witness trees.
func NewBlockchain(opts ...Option) (*Blockchain, error) {
	var cfg config
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	threshold := cfg.params.CanonicalThreshold
	if cfg.threshold != nil {
		threshold = *cfg.threshold
	}

	b := &Blockchain{
		params:            cfg.params,
		canonicityStore:   cfg.canonicityStore,
		blockStore:        cfg.blockStore,
		metrics:           cfg.metrics,
		threshold:         threshold,
		lineages:          make(map[types.ID]*lineage),
		notificationsLock: sync.RWMutex{},
		stateLock:         sync.RWMutex{},
	}

	if err := b.init(context.Background()); err != nil {
		return nil, err
	}
	return b, nil
}

// init rebuilds the witness trees from the block store. Each node's
// status is seeded from the canonicity store, then any decisions
// that were not committed before the last shutdown are made.
func (b *Blockchain) init(ctx context.Context) error {
	b.stateLock.Lock()
	defer b.stateLock.Unlock()

	var replayed int
	err := b.blockStore.IterateBlocks(ctx, func(blk *blocks.Block) error {
		s := blk.Summary
		if s.IsGenesis() {
			if _, ok := b.lineages[s.StateHash]; ok {
				return nil
			}
			status, err := b.canonicityStore.GetBlockCanonicity(ctx, s.StateHash)
			if err != nil {
				return err
			}
			if status != types.Canonical {
				if err := b.canonicityStore.AddCanonicalBlock(ctx, s.Height, s.GlobalSlot, s.StateHash, s.GenesisStateHash, s.GenesisPrevStateHash); err != nil {
					return err
				}
			}
			b.openLineage(s)
			replayed++
			return nil
		}

		l, ok := b.lineages[s.GenesisStateHash]
		if !ok {
			log.Warn("Stored block has no known lineage", log.Args("hash", s.StateHash.String(), "genesis", s.GenesisStateHash.String()))
			return nil
		}
		if _, err := l.tree.Insert(s); err != nil {
			log.Warn("Stored block does not connect", log.Args("hash", s.StateHash.String(), "error", err))
			return nil
		}
		status, err := b.canonicityStore.GetBlockCanonicity(ctx, s.StateHash)
		if err != nil {
			l.tree.remove(s.StateHash)
			return err
		}
		l.tree.setStatus(s.StateHash, status)
		l.engine.selector.Select(l.tree, s.StateHash)
		if status == types.Canonical && s.Height > l.engine.boundary {
			l.engine.boundary = s.Height
		}
		replayed++
		return nil
	})
	if err != nil {
		return err
	}

	for _, genesis := range b.lineageOrder {
		l := b.lineages[genesis]
		update, err := l.engine.catchUp(ctx)
		if err != nil {
			return err
		}
		tip, _ := l.tree.Get(l.engine.BestTip())
		b.metrics.setBestTipHeight(genesis, tip.Height)
		log.Debug("Loaded lineage", log.Args("genesis", genesis.String(), "blocks", l.tree.Len(),
			"tip", tip.StateHash.String(), "height", tip.Height, "recovered", len(update)))
	}
	if replayed > 0 {
		log.Info("Replayed stored blocks", log.Args("blocks", replayed, "lineages", len(b.lineages)))
	}
	return nil
}

func (b *Blockchain) openLineage(root *blocks.BlockSummary) *lineage {
	tree := NewWitnessTree(root)
	l := &lineage{
		genesis:     root.StateHash,
		genesisPrev: root.GenesisPrevStateHash,
		tree:        tree,
		engine:      NewCanonicityEngine(tree, b.canonicityStore, b.threshold, b.metrics),
	}
	for _, other := range b.lineages {
		other.engine.limitBoundary(root.Height)
	}
	b.lineages[root.StateHash] = l
	b.lineageOrder = append(b.lineageOrder, root.StateHash)
	return l
}

// ProcessBlock connects the block to its lineage, re-selects the best
// tip and commits any resulting canonicity changes.
//
// A block whose parent is not yet known returns a RuleError with
// ErrMissingParent and may be processed again later. A block that
// would orphan a canonical block returns a FinalityViolationError.
// A genesis block at or below the finality boundary of a lineage
// already open returns a RuleError with ErrInvalidGenesis, since the
// canonical height and slot indices are shared by all lineages.
//
// Errors from the stores are returned unchanged and leave the chain
// state as it was before the call. The block is written to the block
// store before its canonicity update is committed, so if the commit
// fails the block can already be returned by GetBlock and counted by
// GetBlockCount while HasBlock reports false. Processing the block
// again, or restarting, makes the two agree.
func (b *Blockchain) ProcessBlock(ctx context.Context, blk *blocks.Block) (InsertOutcome, error) {
	if blk == nil || blk.Summary == nil {
		return Inserted, ruleError(ErrInvalidBlock, "block has no summary")
	}

	b.stateLock.Lock()
	defer b.stateLock.Unlock()

	s := blk.Summary
	if s.IsGenesis() {
		return b.processGenesis(ctx, blk)
	}

	l, ok := b.lineages[s.GenesisStateHash]
	if !ok {
		return Inserted, ruleError(ErrMissingParent, fmt.Sprintf("genesis %s of block %s is unknown",
			s.GenesisStateHash, s.StateHash))
	}
	outcome, err := l.tree.Insert(s)
	if err != nil || outcome == AlreadyPresent {
		return outcome, err
	}

	conn, err := l.engine.prepare(s.StateHash)
	if err != nil {
		l.tree.remove(s.StateHash)
		if fv, ok := err.(FinalityViolationError); ok {
			b.metrics.incFinalityViolations()
			log.Error("Finality violation", log.Args("block", s.StateHash.String(), "height", s.Height,
				"canonical", fv.StateHash.String(), "canonical height", fv.Height))
			b.sendNotification(NTFinalityViolation, fv)
		}
		return Inserted, err
	}
	if _, err := b.blockStore.AddBlock(ctx, blk); err != nil {
		l.engine.rollback(conn)
		l.tree.remove(s.StateHash)
		return Inserted, err
	}
	if err := l.engine.commit(ctx, conn); err != nil {
		l.engine.rollback(conn)
		l.tree.remove(s.StateHash)
		return Inserted, err
	}

	log.Debug("Connected block", log.Args("hash", s.StateHash.String(), "height", s.Height, "slot", s.GlobalSlot))
	b.sendNotification(NTBlockConnected, blk)
	if conn.tipChanged {
		if conn.reorg {
			b.metrics.incReorgs()
			log.Info("Best tip reorganized", log.Args("old", conn.oldTip.String(), "new", conn.newTip.String(), "height", s.Height))
		}
		b.metrics.setBestTipHeight(l.genesis, s.Height)
		b.sendNotification(NTBestTipChanged, &BestTipChange{
			GenesisStateHash: l.genesis,
			OldTip:           conn.oldTip,
			NewTip:           conn.newTip,
			Height:           s.Height,
			Reorg:            conn.reorg,
		})
	}
	if len(conn.update) > 0 {
		b.sendNotification(NTCanonicityUpdate, conn.update)
	}
	return Inserted, nil
}

func (b *Blockchain) processGenesis(ctx context.Context, blk *blocks.Block) (InsertOutcome, error) {
	s := blk.Summary
	if _, ok := b.lineages[s.StateHash]; ok {
		return AlreadyPresent, nil
	}
	for _, genesis := range b.lineageOrder {
		if boundary := b.lineages[genesis].engine.Boundary(); s.Height <= boundary {
			return Inserted, ruleError(ErrInvalidGenesis, fmt.Sprintf("genesis %s at height %d is at or below the finality boundary %d of lineage %s",
				s.StateHash, s.Height, boundary, genesis))
		}
	}
	if _, err := b.blockStore.AddBlock(ctx, blk); err != nil {
		return Inserted, err
	}
	if err := b.canonicityStore.AddCanonicalBlock(ctx, s.Height, s.GlobalSlot, s.StateHash, s.GenesisStateHash, s.GenesisPrevStateHash); err != nil {
		return Inserted, err
	}
	l := b.openLineage(s)

	log.Info("New genesis lineage", log.Args("genesis", s.StateHash.String(), "height", s.Height))
	b.metrics.setBestTipHeight(l.genesis, s.Height)
	b.sendNotification(NTBlockConnected, blk)
	b.sendNotification(NTBestTipChanged, &BestTipChange{
		GenesisStateHash: l.genesis,
		NewTip:           s.StateHash,
		Height:           s.Height,
	})
	return Inserted, nil
}

// CanonicalThreshold returns the number of blocks that must be built
// on a block before it becomes canonical.
func (b *Blockchain) CanonicalThreshold() uint32 {
	return b.threshold
}

// Params returns the network params the chain was created with.
func (b *Blockchain) Params() *params.NetworkParams {
	return b.params
}

// Lineages returns the genesis state hashes of the lineages in the
// order they were opened.
func (b *Blockchain) Lineages() []types.ID {
	b.stateLock.RLock()
	defer b.stateLock.RUnlock()

	return append([]types.ID(nil), b.lineageOrder...)
}

// BestTip returns the best tip of the lineage rooted at genesis.
func (b *Blockchain) BestTip(genesis types.ID) (*blocks.BlockSummary, bool) {
	b.stateLock.RLock()
	defer b.stateLock.RUnlock()

	l, ok := b.lineages[genesis]
	if !ok {
		return nil, false
	}
	return l.tree.Get(l.engine.BestTip())
}

// HasBlock reports whether the block is in any witness tree.
func (b *Blockchain) HasBlock(stateHash types.ID) bool {
	b.stateLock.RLock()
	defer b.stateLock.RUnlock()

	for _, l := range b.lineages {
		if _, ok := l.tree.Get(stateHash); ok {
			return true
		}
	}
	return false
}

// GetBlockCanonicity returns the canonicity of the block. Blocks in a
// witness tree are answered from memory, which includes Pending.
// Anything else falls back to the canonicity store.
func (b *Blockchain) GetBlockCanonicity(ctx context.Context, stateHash types.ID) (types.Canonicity, error) {
	b.stateLock.RLock()
	for _, l := range b.lineages {
		if status, ok := l.tree.Status(stateHash); ok {
			b.stateLock.RUnlock()
			return status, nil
		}
	}
	b.stateLock.RUnlock()

	return b.canonicityStore.GetBlockCanonicity(ctx, stateHash)
}

// GetCanonicalHashAtHeight returns the canonical block at the height.
// The bool is false, with no error, if nothing is canonical there yet.
func (b *Blockchain) GetCanonicalHashAtHeight(ctx context.Context, height uint32) (types.ID, bool, error) {
	return b.canonicityStore.GetCanonicalHashAtHeight(ctx, height)
}

// GetCanonicalHashAtSlot returns the canonical block at the global
// slot. The bool is false if nothing is canonical there.
func (b *Blockchain) GetCanonicalHashAtSlot(ctx context.Context, globalSlot uint32) (types.ID, bool, error) {
	return b.canonicityStore.GetCanonicalHashAtSlot(ctx, globalSlot)
}

// GetKnownGenesisStateHashes returns the genesis state hashes of every
// lineage ever seen, including ones from before a restart.
func (b *Blockchain) GetKnownGenesisStateHashes(ctx context.Context) ([]types.ID, error) {
	return b.canonicityStore.GetKnownGenesisStateHashes(ctx)
}

// GetKnownGenesisPrevStateHashes returns the known genesis prev state
// hashes.
func (b *Blockchain) GetKnownGenesisPrevStateHashes(ctx context.Context) ([]types.ID, error) {
	return b.canonicityStore.GetKnownGenesisPrevStateHashes(ctx)
}

func (b *Blockchain) GetBlock(ctx context.Context, stateHash types.ID) (*blocks.Block, error) {
	return b.blockStore.GetBlock(ctx, stateHash)
}

func (b *Blockchain) GetBlocksAtHeight(ctx context.Context, height uint32) ([]*blocks.Block, error) {
	return b.blockStore.GetBlocksAtHeight(ctx, height)
}

func (b *Blockchain) GetBlocksAtSlot(ctx context.Context, globalSlot uint32) ([]*blocks.Block, error) {
	return b.blockStore.GetBlocksAtSlot(ctx, globalSlot)
}

func (b *Blockchain) GetBlockCount(ctx context.Context) (uint64, error) {
	return b.blockStore.GetBlockCount(ctx)
}
