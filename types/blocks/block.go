// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package blocks

import (
	"errors"
	"github.com/project-illium/idxd/params/hash"
	"github.com/project-illium/idxd/types"
	"google.golang.org/protobuf/encoding/protowire"
)

var _ types.Serializable = (*Block)(nil)

const hashFieldSize = hash.HashSize

const (
	blockSummary protowire.Number = 1
	blockData    protowire.Number = 2
)

// Block is a block record as handed to the indexer. The summary
// drives the canonicity subsystem. Data holds the already
// deserialized record and is stored without interpretation.
type Block struct {
	Summary *BlockSummary
	Data    []byte
}

// ID returns the state hash of the block.
func (b *Block) ID() types.ID {
	return b.Summary.StateHash
}

func (b *Block) Serialize() ([]byte, error) {
	if b.Summary == nil {
		return nil, errors.New("block has no summary")
	}
	ser, err := b.Summary.Serialize()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(ser)+len(b.Data)+8)
	out = protowire.AppendTag(out, blockSummary, protowire.BytesType)
	out = protowire.AppendBytes(out, ser)
	if len(b.Data) > 0 {
		out = protowire.AppendTag(out, blockData, protowire.BytesType)
		out = protowire.AppendBytes(out, b.Data)
	}
	return out, nil
}

func (b *Block) Deserialize(data []byte) error {
	newBlock := Block{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		if typ != protowire.BytesType || (num != blockSummary && num != blockData) {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
			continue
		}
		v, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		if num == blockSummary {
			summary := &BlockSummary{}
			if err := summary.Deserialize(v); err != nil {
				return err
			}
			newBlock.Summary = summary
		} else {
			newBlock.Data = append([]byte(nil), v...)
		}
	}
	if newBlock.Summary == nil {
		return errors.New("block missing summary")
	}
	*b = newBlock
	return nil
}
