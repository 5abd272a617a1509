// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package blocks

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/project-illium/idxd/types"
	"google.golang.org/protobuf/encoding/protowire"
	"math"
)

var _ types.Serializable = (*BlockSummary)(nil)

// Field numbers for the BlockSummary wire encoding. New fields
// must use new numbers; decoders skip numbers they don't know.
const (
	summaryStateHash            protowire.Number = 1
	summaryParentHash           protowire.Number = 2
	summaryGenesisStateHash     protowire.Number = 3
	summaryGenesisPrevStateHash protowire.Number = 4
	summaryHeight               protowire.Number = 5
	summaryGlobalSlot           protowire.Number = 6
	summaryLastVRFOutput        protowire.Number = 7
)

// BlockSummary is the part of a block the canonicity subsystem
// needs. It is immutable once created.
type BlockSummary struct {
	StateHash            types.ID
	ParentHash           types.ID
	GenesisStateHash     types.ID
	GenesisPrevStateHash *types.ID
	Height               uint32
	GlobalSlot           uint32
	LastVRFOutput        []byte
}

type summaryJSON struct {
	StateHash            types.ID           `json:"state_hash"`
	ParentHash           types.ID           `json:"previous_state_hash"`
	GenesisStateHash     types.ID           `json:"genesis_state_hash"`
	GenesisPrevStateHash *types.ID          `json:"genesis_prev_state_hash,omitempty"`
	Height               uint32             `json:"blockchain_length"`
	GlobalSlot           uint32             `json:"global_slot_since_genesis"`
	LastVRFOutput        types.HexEncodable `json:"last_vrf_output,omitempty"`
}

// ID returns the state hash of the block.
func (s *BlockSummary) ID() types.ID {
	return s.StateHash
}

// IsGenesis reports whether the block is the root of its own
// genesis lineage.
func (s *BlockSummary) IsGenesis() bool {
	return s.StateHash == s.GenesisStateHash
}

func (s *BlockSummary) Serialize() ([]byte, error) {
	b := make([]byte, 0, 4*(hashFieldSize)+len(s.LastVRFOutput)+16)
	b = protowire.AppendTag(b, summaryStateHash, protowire.BytesType)
	b = protowire.AppendBytes(b, s.StateHash[:])
	b = protowire.AppendTag(b, summaryParentHash, protowire.BytesType)
	b = protowire.AppendBytes(b, s.ParentHash[:])
	b = protowire.AppendTag(b, summaryGenesisStateHash, protowire.BytesType)
	b = protowire.AppendBytes(b, s.GenesisStateHash[:])
	if s.GenesisPrevStateHash != nil {
		b = protowire.AppendTag(b, summaryGenesisPrevStateHash, protowire.BytesType)
		b = protowire.AppendBytes(b, s.GenesisPrevStateHash[:])
	}
	b = protowire.AppendTag(b, summaryHeight, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.Height))
	b = protowire.AppendTag(b, summaryGlobalSlot, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.GlobalSlot))
	if len(s.LastVRFOutput) > 0 {
		b = protowire.AppendTag(b, summaryLastVRFOutput, protowire.BytesType)
		b = protowire.AppendBytes(b, s.LastVRFOutput)
	}
	return b, nil
}

func (s *BlockSummary) Deserialize(data []byte) error {
	var newSummary BlockSummary
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		switch {
		case typ == protowire.BytesType && num != summaryLastVRFOutput && num <= summaryGenesisPrevStateHash:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			if len(v) != hashFieldSize {
				return fmt.Errorf("field %d: invalid hash length %d", num, len(v))
			}
			id := types.NewID(v)
			switch num {
			case summaryStateHash:
				newSummary.StateHash = id
			case summaryParentHash:
				newSummary.ParentHash = id
			case summaryGenesisStateHash:
				newSummary.GenesisStateHash = id
			case summaryGenesisPrevStateHash:
				newSummary.GenesisPrevStateHash = &id
			}
			data = data[n:]
		case typ == protowire.VarintType && (num == summaryHeight || num == summaryGlobalSlot):
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			if v > math.MaxUint32 {
				return fmt.Errorf("field %d: value %d overflows uint32", num, v)
			}
			if num == summaryHeight {
				newSummary.Height = uint32(v)
			} else {
				newSummary.GlobalSlot = uint32(v)
			}
			data = data[n:]
		case typ == protowire.BytesType && num == summaryLastVRFOutput:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			newSummary.LastVRFOutput = append([]byte(nil), v...)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	if newSummary.StateHash.IsZero() {
		return errors.New("block summary missing state hash")
	}
	*s = newSummary
	return nil
}

func (s *BlockSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(&summaryJSON{
		StateHash:            s.StateHash,
		ParentHash:           s.ParentHash,
		GenesisStateHash:     s.GenesisStateHash,
		GenesisPrevStateHash: s.GenesisPrevStateHash,
		Height:               s.Height,
		GlobalSlot:           s.GlobalSlot,
		LastVRFOutput:        s.LastVRFOutput,
	})
}

func (s *BlockSummary) UnmarshalJSON(data []byte) error {
	newSummary := &summaryJSON{}
	if err := json.Unmarshal(data, newSummary); err != nil {
		return err
	}
	*s = BlockSummary{
		StateHash:            newSummary.StateHash,
		ParentHash:           newSummary.ParentHash,
		GenesisStateHash:     newSummary.GenesisStateHash,
		GenesisPrevStateHash: newSummary.GenesisPrevStateHash,
		Height:               newSummary.Height,
		GlobalSlot:           newSummary.GlobalSlot,
		LastVRFOutput:        newSummary.LastVRFOutput,
	}
	return nil
}
