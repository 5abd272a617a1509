// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package datastore

import (
	"context"
	"github.com/ipfs/go-datastore"
	"github.com/project-illium/idxd/repo/mock"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestNewIdxdDatastore(t *testing.T) {
	dir := t.TempDir()
	ds, err := NewIdxdDatastore(dir, WithSyncWrites(true))
	assert.NoError(t, err)

	key := datastore.NewKey("/idxd/test/")
	dbtx, err := ds.NewTransaction(context.Background(), false)
	assert.NoError(t, err)
	assert.NoError(t, dbtx.Put(context.Background(), key, []byte{0x01}))
	assert.NoError(t, dbtx.Commit(context.Background()))
	assert.NoError(t, ds.Close())

	// Reopen and make sure the value was persisted.
	ds, err = NewIdxdDatastore(dir)
	assert.NoError(t, err)
	defer ds.Close()
	val, err := ds.Get(context.Background(), key)
	assert.NoError(t, err)
	assert.Equal(t, []byte{0x01}, val)
}

func TestNewIdxdDatastoreInMemory(t *testing.T) {
	ds, err := NewIdxdDatastore("", WithInMemory())
	assert.NoError(t, err)
	_, ok := ds.(*mock.MapDatastore)
	assert.True(t, ok)

	_, err = NewIdxdDatastore("", WithInMemory(), WithMaxTableSize(0))
	assert.Error(t, err)
}
