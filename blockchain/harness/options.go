// Copyright (c) 2022 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package harness

import (
	"errors"
	"github.com/project-illium/idxd/blockchain"
	"github.com/project-illium/idxd/params"
	"github.com/project-illium/idxd/store/memstore"
)

func DefaultOptions() Option {
	return func(cfg *config) error {
		cfg.params = &params.RegestParams
		cfg.canonicityStore = memstore.NewCanonicityStore()
		cfg.blockStore = memstore.NewBlockStore()
		cfg.genesisHeight = 1
		return nil
	}
}

// Option is configuration option function for the TestHarness
type Option func(cfg *config) error

func Params(params *params.NetworkParams) Option {
	return func(cfg *config) error {
		cfg.params = params
		return nil
	}
}

// CanonicalThreshold overrides the params' canonical threshold.
func CanonicalThreshold(k uint32) Option {
	return func(cfg *config) error {
		cfg.threshold = &k
		return nil
	}
}

// Stores replaces the in-memory stores.
func Stores(cs blockchain.CanonicityStore, bs blockchain.BlockStore) Option {
	return func(cfg *config) error {
		cfg.canonicityStore = cs
		cfg.blockStore = bs
		return nil
	}
}

// GenesisHeight is the height of the generated genesis block.
func GenesisHeight(height uint32) Option {
	return func(cfg *config) error {
		cfg.genesisHeight = height
		return nil
	}
}

// NoGenesis stops the harness from processing a genesis block when
// it is created. Useful when the stores already hold a chain.
func NoGenesis() Option {
	return func(cfg *config) error {
		cfg.noGenesis = true
		return nil
	}
}

type config struct {
	params          *params.NetworkParams
	canonicityStore blockchain.CanonicityStore
	blockStore      blockchain.BlockStore
	threshold       *uint32
	genesisHeight   uint32
	noGenesis       bool
}

func (cfg *config) validate() error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.params == nil {
		return errors.New("params is nil")
	}
	if cfg.canonicityStore == nil {
		return errors.New("canonicity store is nil")
	}
	if cfg.blockStore == nil {
		return errors.New("block store is nil")
	}
	return nil
}
