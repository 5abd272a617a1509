// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package memstore

import (
	"context"
	"github.com/project-illium/idxd/store"
	"github.com/project-illium/idxd/types"
	"sync"
)

// CanonicityStore is a map backed CanonicityStore. A write either
// applies fully or, when a write error is set, not at all.
type CanonicityStore struct {
	canonicity  map[types.ID]types.Canonicity
	heights     map[uint32]types.ID
	slots       map[uint32]types.ID
	genesis     []types.ID
	genesisPrev []types.ID
	commits     int
	writeErr    error
	mtx         sync.RWMutex
}

// NewCanonicityStore returns an empty CanonicityStore.
func NewCanonicityStore() *CanonicityStore {
	return &CanonicityStore{
		canonicity: make(map[types.ID]types.Canonicity),
		heights:    make(map[uint32]types.ID),
		slots:      make(map[uint32]types.ID),
		mtx:        sync.RWMutex{},
	}
}

// SetWriteError makes every following write fail with an IOError
// wrapping err. Passing nil restores normal operation.
func (s *CanonicityStore) SetWriteError(err error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.writeErr = err
}

// Commits returns the number of successful non-empty writes.
func (s *CanonicityStore) Commits() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.commits
}

func (s *CanonicityStore) AddCanonicalBlock(ctx context.Context, height, globalSlot uint32, stateHash, genesisStateHash types.ID, genesisPrevStateHash *types.ID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.writeErr != nil {
		return &store.IOError{Op: "add canonical block", Err: s.writeErr}
	}
	s.canonicity[stateHash] = types.Canonical
	s.heights[height] = stateHash
	s.slots[globalSlot] = stateHash
	s.genesis = appendUnique(s.genesis, genesisStateHash)
	if genesisPrevStateHash != nil {
		s.genesisPrev = appendUnique(s.genesisPrev, *genesisPrevStateHash)
	}
	s.commits++
	return nil
}

func (s *CanonicityStore) UpdateBlockCanonicities(ctx context.Context, batch types.BatchUpdate) error {
	if batch.IsEmpty() {
		return nil
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.writeErr != nil {
		return &store.IOError{Op: "update canonicities", Err: s.writeErr}
	}
	for _, ref := range batch.Unapply {
		s.canonicity[ref.StateHash] = types.Orphaned
		if s.heights[ref.Height] == ref.StateHash {
			delete(s.heights, ref.Height)
		}
		if s.slots[ref.GlobalSlot] == ref.StateHash {
			delete(s.slots, ref.GlobalSlot)
		}
	}
	for _, ref := range batch.Apply {
		s.canonicity[ref.StateHash] = types.Canonical
		s.heights[ref.Height] = ref.StateHash
		s.slots[ref.GlobalSlot] = ref.StateHash
	}
	s.commits++
	return nil
}

func (s *CanonicityStore) UpdateCanonicity(ctx context.Context, update types.CanonicityUpdate) error {
	return s.UpdateBlockCanonicities(ctx, update.ToBatch())
}

func (s *CanonicityStore) GetCanonicalHashAtHeight(ctx context.Context, height uint32) (types.ID, bool, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	id, ok := s.heights[height]
	return id, ok, nil
}

func (s *CanonicityStore) GetCanonicalHashAtSlot(ctx context.Context, globalSlot uint32) (types.ID, bool, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	id, ok := s.slots[globalSlot]
	return id, ok, nil
}

func (s *CanonicityStore) GetBlockCanonicity(ctx context.Context, stateHash types.ID) (types.Canonicity, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.canonicity[stateHash], nil
}

func (s *CanonicityStore) GetKnownGenesisStateHashes(ctx context.Context) ([]types.ID, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return append([]types.ID(nil), s.genesis...), nil
}

func (s *CanonicityStore) GetKnownGenesisPrevStateHashes(ctx context.Context) ([]types.ID, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return append([]types.ID(nil), s.genesisPrev...), nil
}

func appendUnique(ids []types.ID, id types.ID) []types.ID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
