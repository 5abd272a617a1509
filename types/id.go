// Copyright (c) 2022 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package types

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"github.com/project-illium/idxd/params/hash"
)

var ErrIDStrSize = fmt.Errorf("ID string must be %v hex characters", hash.HashSize*2)

// ID identifies a block by its state hash. It is also used to
// identify a genesis lineage, in which case it is the state hash
// of the lineage's genesis block.
type ID [hash.HashSize]byte

// Compare returns 1 if id > target, -1 if id < target and
// 0 if id == target. Bytes are compared lexicographically.
func (id ID) Compare(target ID) int {
	return bytes.Compare(id[:], target[:])
}

// IsZero reports whether the ID is the all zero ID.
func (id ID) IsZero() bool {
	return id == ID{}
}

func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

func (id ID) Bytes() []byte {
	return id[:]
}

func (id *ID) SetBytes(data []byte) {
	copy(id[:], data)
}

// MarshalText encodes the ID as a hex string. encoding/json uses
// this for both map keys and values.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(data []byte) error {
	i, err := NewIDFromString(string(data))
	if err != nil {
		return err
	}
	*id = i
	return nil
}

func NewID(digest []byte) ID {
	var sh ID
	sh.SetBytes(digest)
	return sh
}

// NewIDFromString decodes a hex encoded state hash.
func NewIDFromString(id string) (ID, error) {
	if len(id) != hash.HashSize*2 {
		return ID{}, ErrIDStrSize
	}
	ret, err := hex.DecodeString(id)
	if err != nil {
		return ID{}, err
	}
	var newID ID
	newID.SetBytes(ret)
	return newID, nil
}

func NewIDFromData(data []byte) ID {
	var id ID
	hash := hash.HashFunc(data)
	id.SetBytes(hash)
	return id
}
