// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"encoding/binary"
	"fmt"
	datastore "github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	"github.com/pkg/errors"
	"github.com/project-illium/idxd/repo"
	"github.com/project-illium/idxd/types"
	"github.com/project-illium/idxd/types/blocks"
	"strings"
)

func heightKey(prefix string, n uint32) string {
	return prefix + fmt.Sprintf("%010d", n)
}

func indexKey(prefix string, n uint32, id types.ID) datastore.Key {
	return datastore.NewKey(heightKey(prefix, n) + "/" + id.String())
}

func dsPutCanonicity(ctx context.Context, dbtx datastore.Txn, id types.ID, c types.Canonicity) error {
	return dbtx.Put(ctx, datastore.NewKey(repo.CanonicityKeyPrefix+id.String()), []byte{byte(c)})
}

func dsFetchCanonicity(ctx context.Context, ds datastore.Read, id types.ID) (types.Canonicity, error) {
	b, err := ds.Get(ctx, datastore.NewKey(repo.CanonicityKeyPrefix+id.String()))
	if errors.Is(err, datastore.ErrNotFound) {
		return types.Pending, nil
	} else if err != nil {
		return types.Pending, err
	}
	if len(b) != 1 {
		return types.Pending, fmt.Errorf("invalid canonicity record for %s", id)
	}
	return types.Canonicity(b[0]), nil
}

func dsPutCanonicalHash(ctx context.Context, dbtx datastore.Txn, prefix string, n uint32, id types.ID) error {
	return dbtx.Put(ctx, datastore.NewKey(heightKey(prefix, n)), id[:])
}

func dsFetchCanonicalHash(ctx context.Context, ds datastore.Read, prefix string, n uint32) (types.ID, bool, error) {
	b, err := ds.Get(ctx, datastore.NewKey(heightKey(prefix, n)))
	if errors.Is(err, datastore.ErrNotFound) {
		return types.ID{}, false, nil
	} else if err != nil {
		return types.ID{}, false, err
	}
	if len(b) != len(types.ID{}) {
		return types.ID{}, false, fmt.Errorf("invalid canonical hash record at %d", n)
	}
	return types.NewID(b), true, nil
}

// dsDeleteCanonicalHash removes the canonical entry at n only if
// it still points at id.
func dsDeleteCanonicalHash(ctx context.Context, dbtx datastore.Txn, prefix string, n uint32, id types.ID) error {
	current, ok, err := dsFetchCanonicalHash(ctx, dbtx, prefix, n)
	if err != nil {
		return err
	}
	if !ok || current != id {
		return nil
	}
	return dbtx.Delete(ctx, datastore.NewKey(heightKey(prefix, n)))
}

func dsFetchHashList(ctx context.Context, ds datastore.Read, key string) ([]types.ID, error) {
	b, err := ds.Get(ctx, datastore.NewKey(key))
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	idLen := len(types.ID{})
	if len(b)%idLen != 0 {
		return nil, fmt.Errorf("invalid hash list at %s", key)
	}
	ids := make([]types.ID, 0, len(b)/idLen)
	for i := 0; i < len(b); i += idLen {
		ids = append(ids, types.NewID(b[i:i+idLen]))
	}
	return ids, nil
}

// dsAppendHashList appends id to the list at key unless it is
// already present. Insertion order is preserved.
func dsAppendHashList(ctx context.Context, dbtx datastore.Txn, key string, id types.ID) error {
	ids, err := dsFetchHashList(ctx, dbtx, key)
	if err != nil {
		return err
	}
	ser := make([]byte, 0, (len(ids)+1)*len(id))
	for _, existing := range ids {
		if existing == id {
			return nil
		}
		ser = append(ser, existing[:]...)
	}
	ser = append(ser, id[:]...)
	return dbtx.Put(ctx, datastore.NewKey(key), ser)
}

func dsPutBlock(ctx context.Context, dbtx datastore.Txn, blk *blocks.Block) error {
	ser, err := blk.Serialize()
	if err != nil {
		return err
	}
	if err := dbtx.Put(ctx, datastore.NewKey(repo.BlockKeyPrefix+blk.ID().String()), ser); err != nil {
		return err
	}
	if err := dbtx.Put(ctx, indexKey(repo.BlockAtHeightKeyPrefix, blk.Summary.Height, blk.ID()), []byte{}); err != nil {
		return err
	}
	return dbtx.Put(ctx, indexKey(repo.BlockAtSlotKeyPrefix, blk.Summary.GlobalSlot, blk.ID()), []byte{})
}

func dsFetchBlock(ctx context.Context, ds datastore.Read, id types.ID) (*blocks.Block, error) {
	ser, err := ds.Get(ctx, datastore.NewKey(repo.BlockKeyPrefix+id.String()))
	if err != nil {
		return nil, err
	}
	blk := new(blocks.Block)
	if err := blk.Deserialize(ser); err != nil {
		return nil, err
	}
	return blk, nil
}

func dsBlockExists(ctx context.Context, ds datastore.Read, id types.ID) (bool, error) {
	return ds.Has(ctx, datastore.NewKey(repo.BlockKeyPrefix+id.String()))
}

// dsFetchIndexedIDs returns the state hashes stored under an index
// prefix in ascending key order.
func dsFetchIndexedIDs(ctx context.Context, ds datastore.Read, prefix string) ([]types.ID, error) {
	q := query.Query{
		Prefix:   prefix,
		KeysOnly: true,
		Orders:   []query.Order{query.OrderByKey{}},
	}
	results, err := ds.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer results.Close()

	var ids []types.ID
	for result, ok := results.NextSync(); ok; result, ok = results.NextSync() {
		if result.Error != nil {
			return nil, result.Error
		}
		s := result.Key[strings.LastIndex(result.Key, "/")+1:]
		id, err := types.NewIDFromString(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func dsFetchBlockCount(ctx context.Context, ds datastore.Read) (uint64, error) {
	b, err := ds.Get(ctx, datastore.NewKey(repo.BlockCountKey))
	if errors.Is(err, datastore.ErrNotFound) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	if len(b) != 8 {
		return 0, errors.New("invalid block count record")
	}
	return binary.BigEndian.Uint64(b), nil
}

func dsIncrementBlockCount(ctx context.Context, dbtx datastore.Txn) error {
	count, err := dsFetchBlockCount(ctx, dbtx)
	if err != nil {
		return err
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, count+1)
	return dbtx.Put(ctx, datastore.NewKey(repo.BlockCountKey), b)
}
