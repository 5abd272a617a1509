// Copyright (c) 2022 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package harness builds deterministic chains and forks of blocks
// and feeds them to a Blockchain for testing.
package harness

import (
	"context"
	"errors"
	"github.com/project-illium/idxd/blockchain"
	"github.com/project-illium/idxd/types"
	"github.com/project-illium/idxd/types/blocks"
)

type TestHarness struct {
	chain   *blockchain.Blockchain
	genesis *blocks.Block
	blocks  map[types.ID]*blocks.Block
}

func NewTestHarness(opts ...Option) (*TestHarness, error) {
	var cfg config
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	chainOpts := []blockchain.Option{
		blockchain.Params(cfg.params),
		blockchain.CanonicityStorage(cfg.canonicityStore),
		blockchain.BlockStorage(cfg.blockStore),
	}
	if cfg.threshold != nil {
		chainOpts = append(chainOpts, blockchain.CanonicalThreshold(*cfg.threshold))
	}
	chain, err := blockchain.NewBlockchain(chainOpts...)
	if err != nil {
		return nil, err
	}

	h := &TestHarness{
		chain:   chain,
		genesis: NewGenesisBlock(cfg.params.Name, cfg.genesisHeight, 0, nil),
		blocks:  make(map[types.ID]*blocks.Block),
	}
	if !cfg.noGenesis {
		if err := h.ProcessBlocks(h.genesis); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Blockchain returns the chain under test.
func (h *TestHarness) Blockchain() *blockchain.Blockchain {
	return h.chain
}

// Genesis returns the genesis block of the harness lineage.
func (h *TestHarness) Genesis() *blocks.Block {
	return h.genesis
}

// BestTip returns the best tip block of the harness lineage.
func (h *TestHarness) BestTip() (*blocks.Block, error) {
	tip, ok := h.chain.BestTip(h.genesis.ID())
	if !ok {
		return nil, errors.New("genesis lineage not found")
	}
	if blk, ok := h.blocks[tip.StateHash]; ok {
		return blk, nil
	}
	return h.chain.GetBlock(context.Background(), tip.StateHash)
}

// GenerateBlocks extends the best tip by n blocks.
func (h *TestHarness) GenerateBlocks(n int) ([]*blocks.Block, error) {
	tip, err := h.BestTip()
	if err != nil {
		return nil, err
	}
	blks := Branch(tip, n, "main")
	return blks, h.ProcessBlocks(blks...)
}

// ProcessBlocks processes the blocks in order and stops at the first
// error.
func (h *TestHarness) ProcessBlocks(blks ...*blocks.Block) error {
	for _, blk := range blks {
		if _, err := h.chain.ProcessBlock(context.Background(), blk); err != nil {
			return err
		}
		h.blocks[blk.ID()] = blk
	}
	return nil
}
