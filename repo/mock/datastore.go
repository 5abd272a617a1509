// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package mock

import (
	"context"
	"errors"
	datastore "github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	"github.com/project-illium/idxd/repo"
	"sync"
)

var _ repo.Datastore = (*MapDatastore)(nil)

// MapDatastore is an in-memory repo.Datastore. Transactions buffer
// their writes and apply them under a single lock on commit, so a
// concurrent reader sees either none or all of a transaction.
//
// SetCommitError makes every following commit fail without applying
// anything, which lets tests exercise storage failures.
type MapDatastore struct {
	ds        *datastore.MapDatastore
	commitErr error
	mtx       sync.RWMutex
}

func NewMapDatastore() *MapDatastore {
	return &MapDatastore{
		ds:  datastore.NewMapDatastore(),
		mtx: sync.RWMutex{},
	}
}

// SetCommitError sets the error returned by transaction and batch
// commits. Passing nil restores normal operation.
func (ds *MapDatastore) SetCommitError(err error) {
	ds.mtx.Lock()
	defer ds.mtx.Unlock()
	ds.commitErr = err
}

func (ds *MapDatastore) Get(ctx context.Context, key datastore.Key) ([]byte, error) {
	ds.mtx.RLock()
	defer ds.mtx.RUnlock()
	return ds.ds.Get(ctx, key)
}

func (ds *MapDatastore) Has(ctx context.Context, key datastore.Key) (bool, error) {
	ds.mtx.RLock()
	defer ds.mtx.RUnlock()
	return ds.ds.Has(ctx, key)
}

func (ds *MapDatastore) GetSize(ctx context.Context, key datastore.Key) (int, error) {
	ds.mtx.RLock()
	defer ds.mtx.RUnlock()
	return ds.ds.GetSize(ctx, key)
}

func (ds *MapDatastore) Query(ctx context.Context, q query.Query) (query.Results, error) {
	ds.mtx.RLock()
	defer ds.mtx.RUnlock()
	return ds.ds.Query(ctx, q)
}

func (ds *MapDatastore) Put(ctx context.Context, key datastore.Key, value []byte) error {
	ds.mtx.Lock()
	defer ds.mtx.Unlock()
	return ds.ds.Put(ctx, key, value)
}

func (ds *MapDatastore) Delete(ctx context.Context, key datastore.Key) error {
	ds.mtx.Lock()
	defer ds.mtx.Unlock()
	return ds.ds.Delete(ctx, key)
}

func (ds *MapDatastore) Sync(ctx context.Context, prefix datastore.Key) error {
	return nil
}

func (ds *MapDatastore) Close() error {
	return nil
}

func (ds *MapDatastore) DiskUsage(ctx context.Context) (uint64, error) {
	return 0, nil
}

func (ds *MapDatastore) Batch(ctx context.Context) (datastore.Batch, error) {
	return ds.newTxn(false), nil
}

func (ds *MapDatastore) NewTransaction(ctx context.Context, readOnly bool) (datastore.Txn, error) {
	return ds.newTxn(readOnly), nil
}

func (ds *MapDatastore) newTxn(readOnly bool) *txn {
	return &txn{
		readOnly: readOnly,
		ds:       ds,
		ops:      make(map[datastore.Key][]byte),
	}
}

// txn buffers writes keyed by datastore key. A nil value marks a
// delete, so the last operation on a key wins.
type txn struct {
	readOnly bool
	ds       *MapDatastore
	ops      map[datastore.Key][]byte
}

func (t *txn) Get(ctx context.Context, key datastore.Key) (value []byte, err error) {
	if v, ok := t.ops[key]; ok {
		if v == nil {
			return nil, datastore.ErrNotFound
		}
		return v, nil
	}
	return t.ds.Get(ctx, key)
}

func (t *txn) Has(ctx context.Context, key datastore.Key) (exists bool, err error) {
	if v, ok := t.ops[key]; ok {
		return v != nil, nil
	}
	return t.ds.Has(ctx, key)
}

func (t *txn) GetSize(ctx context.Context, key datastore.Key) (size int, err error) {
	if v, ok := t.ops[key]; ok {
		if v == nil {
			return -1, datastore.ErrNotFound
		}
		return len(v), nil
	}
	return t.ds.GetSize(ctx, key)
}

// Query reads committed state only.
func (t *txn) Query(ctx context.Context, q query.Query) (query.Results, error) {
	return t.ds.Query(ctx, q)
}

func (t *txn) Put(ctx context.Context, key datastore.Key, value []byte) error {
	if t.readOnly {
		return errors.New("transaction is read only")
	}
	if value == nil {
		value = []byte{}
	}
	t.ops[key] = value
	return nil
}

func (t *txn) Delete(ctx context.Context, key datastore.Key) error {
	if t.readOnly {
		return errors.New("transaction is read only")
	}
	t.ops[key] = nil
	return nil
}

func (t *txn) Commit(ctx context.Context) error {
	t.ds.mtx.Lock()
	defer t.ds.mtx.Unlock()

	if t.ds.commitErr != nil {
		return t.ds.commitErr
	}
	for k, v := range t.ops {
		if v == nil {
			if err := t.ds.ds.Delete(ctx, k); err != nil {
				return err
			}
			continue
		}
		if err := t.ds.ds.Put(ctx, k, v); err != nil {
			return err
		}
	}
	t.ops = make(map[datastore.Key][]byte)
	return nil
}

func (t *txn) Discard(ctx context.Context) {
	t.ops = make(map[datastore.Key][]byte)
}
