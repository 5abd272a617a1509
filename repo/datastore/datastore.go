// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package datastore

import (
	badger "github.com/ipfs/go-ds-badger"
	"github.com/project-illium/idxd/repo"
	"github.com/project-illium/idxd/repo/mock"
	"os"
)

const defaultMaxTableSize = 256 << 20

// NewIdxdDatastore opens (or creates) the badger backed datastore in
// dataDir. If the WithInMemory option is used nothing is written to
// disk and dataDir is ignored.
func NewIdxdDatastore(dataDir string, opts ...Option) (repo.Datastore, error) {
	cfg := config{
		maxTableSize: defaultMaxTableSize,
	}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.inMemory {
		return mock.NewMapDatastore(), nil
	}

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		if err := os.MkdirAll(dataDir, 0700); err != nil {
			return nil, err
		}
	}

	badgerOpts := badger.DefaultOptions
	badgerOpts.MaxTableSize = cfg.maxTableSize
	badgerOpts.SyncWrites = cfg.syncWrites
	return badger.NewDatastore(dataDir, &badgerOpts)
}
