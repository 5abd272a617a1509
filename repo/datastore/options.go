// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package datastore

import (
	"errors"
)

// Option is configuration option function for the Datastore
type Option func(cfg *config) error

// WithSyncWrites makes every commit sync to disk before returning.
func WithSyncWrites(sync bool) Option {
	return func(cfg *config) error {
		cfg.syncWrites = sync
		return nil
	}
}

// WithMaxTableSize sets the badger max table size in bytes.
func WithMaxTableSize(size int64) Option {
	return func(cfg *config) error {
		if size <= 0 {
			return errors.New("max table size must be positive")
		}
		cfg.maxTableSize = size
		return nil
	}
}

// WithInMemory keeps the datastore in memory only.
func WithInMemory() Option {
	return func(cfg *config) error {
		cfg.inMemory = true
		return nil
	}
}

type config struct {
	syncWrites   bool
	inMemory     bool
	maxTableSize int64
}
