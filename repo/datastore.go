// Copyright (c) 2022 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package repo

import (
	"github.com/ipfs/go-datastore"
)

// Datastore is the ordered key-value engine the indexer persists
// to. Any engine that offers transactions (for atomic batched
// writes) and ordered prefix queries satisfies it.
type Datastore interface {
	datastore.Datastore
	datastore.Batching
	datastore.PersistentDatastore
	datastore.TxnDatastore
}
