// Copyright (c) 2022 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/project-illium/idxd/params"
	"github.com/project-illium/idxd/store/memstore"
)

// DefaultOptions returns a blockchain configure option that fills in
// the default settings. You will almost certainly want to override
// some of the defaults, such as parameters and stores, etc.
func DefaultOptions() Option {
	return func(cfg *config) error {
		cfg.params = &params.RegestParams
		cfg.canonicityStore = memstore.NewCanonicityStore()
		cfg.blockStore = memstore.NewBlockStore()
		return nil
	}
}

// Option is configuration option function for the blockchain
type Option func(cfg *config) error

// Params identifies which chain parameters the chain is associated
// with.
//
// This option is required.
func Params(params *params.NetworkParams) Option {
	return func(cfg *config) error {
		cfg.params = params
		return nil
	}
}

// CanonicityStorage is where canonicity decisions are persisted.
//
// This option is required.
func CanonicityStorage(cs CanonicityStore) Option {
	return func(cfg *config) error {
		cfg.canonicityStore = cs
		return nil
	}
}

// BlockStorage is where connected blocks are persisted.
//
// This option is required.
func BlockStorage(bs BlockStore) Option {
	return func(cfg *config) error {
		cfg.blockStore = bs
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

// PrometheusMetrics records chain metrics. If this is not provided
// nothing is recorded.
func PrometheusMetrics(m *Metrics) Option {
	return func(cfg *config) error {
		cfg.metrics = m
		return nil
	}
}

// Config specifies the blockchain configuration.
type config struct {
	params          *params.NetworkParams
	canonicityStore CanonicityStore
	blockStore      BlockStore
	threshold       *uint32
	metrics         *Metrics
}

func (cfg *config) validate() error {
	if cfg == nil {
		return AssertError("NewBlockchain: blockchain config cannot be nil")
	}
	if cfg.params == nil {
		return AssertError("NewBlockchain: params cannot be nil")
	}
	if cfg.canonicityStore == nil {
		return AssertError("NewBlockchain: canonicity store cannot be nil")
	}
	if cfg.blockStore == nil {
		return AssertError("NewBlockchain: block store cannot be nil")
	}
	return nil
}
