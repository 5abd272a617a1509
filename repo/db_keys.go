// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package repo

const (
	// BlockKeyPrefix is the datastore key prefix for storing serialized blocks by state hash.
	BlockKeyPrefix = "/idxd/block/"
	// BlockAtHeightKeyPrefix is the datastore key prefix for the height -> state hashes index.
	// Keys are of the form <prefix><zero padded height>/<state hash>.
	BlockAtHeightKeyPrefix = "/idxd/blockatheight/"
	// BlockAtSlotKeyPrefix is the datastore key prefix for the global slot -> state hashes index.
	// Keys are of the form <prefix><zero padded slot>/<state hash>.
	BlockAtSlotKeyPrefix = "/idxd/blockatslot/"
	// BlockCountKey is the datastore key for the number of stored blocks.
	BlockCountKey = "/idxd/blockcount/"
	// CanonicalHeightKeyPrefix is the datastore key prefix mapping heights to canonical state hashes.
	CanonicalHeightKeyPrefix = "/idxd/canonical/height/"
	// CanonicalSlotKeyPrefix is the datastore key prefix mapping global slots to canonical state hashes.
	CanonicalSlotKeyPrefix = "/idxd/canonical/slot/"
	// CanonicityKeyPrefix is the datastore key prefix mapping state hashes to their canonicity.
	CanonicityKeyPrefix = "/idxd/canonicity/"
	// KnownGenesisStateHashesKey is the datastore key for the ordered list of known genesis state hashes.
	KnownGenesisStateHashesKey = "/idxd/genesis/statehashes/"
	// KnownGenesisPrevStateHashesKey is the datastore key for the ordered list of known genesis prev state hashes.
	KnownGenesisPrevStateHashesKey = "/idxd/genesis/prevstatehashes/"
)
