package blocks

import (
	"github.com/go-test/deep"
	"github.com/project-illium/idxd/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
	"testing"
)

func testSummary() *BlockSummary {
	prev := types.NewIDFromData([]byte("prev-genesis"))
	return &BlockSummary{
		StateHash:            types.NewIDFromData([]byte("block-7")),
		ParentHash:           types.NewIDFromData([]byte("block-6")),
		GenesisStateHash:     types.NewIDFromData([]byte("genesis")),
		GenesisPrevStateHash: &prev,
		Height:               7,
		GlobalSlot:           12,
		LastVRFOutput:        []byte{0xde, 0xad, 0xbe, 0xef},
	}
}

func TestBlockSerialize(t *testing.T) {
	blk := &Block{
		Summary: testSummary(),
		Data:    []byte(`{"protocol_state":{}}`),
	}
	ser, err := blk.Serialize()
	require.NoError(t, err)

	var blk2 Block
	require.NoError(t, blk2.Deserialize(ser))
	assert.Empty(t, deep.Equal(blk, &blk2))
	assert.Equal(t, blk.ID(), blk2.ID())
}

func TestBlockSummaryOptionalFields(t *testing.T) {
	s := testSummary()
	s.GenesisPrevStateHash = nil
	s.LastVRFOutput = nil

	ser, err := s.Serialize()
	require.NoError(t, err)

	var s2 BlockSummary
	require.NoError(t, s2.Deserialize(ser))
	assert.Nil(t, s2.GenesisPrevStateHash)
	assert.Nil(t, s2.LastVRFOutput)
	assert.Equal(t, s.Height, s2.Height)
	assert.Equal(t, s.GlobalSlot, s2.GlobalSlot)
}

func TestBlockSummarySkipsUnknownFields(t *testing.T) {
	s := testSummary()
	ser, err := s.Serialize()
	require.NoError(t, err)

	ser = protowire.AppendTag(ser, 42, protowire.VarintType)
	ser = protowire.AppendVarint(ser, 99)
	ser = protowire.AppendTag(ser, 43, protowire.BytesType)
	ser = protowire.AppendBytes(ser, []byte("future"))

	var s2 BlockSummary
	require.NoError(t, s2.Deserialize(ser))
	assert.Empty(t, deep.Equal(s, &s2))
}

func TestBlockSummaryDeserializeErrors(t *testing.T) {
	var s BlockSummary
	assert.Error(t, s.Deserialize([]byte{0xff}))

	// Hash fields must be exactly 32 bytes.
	b := protowire.AppendTag(nil, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte{0x01, 0x02})
	assert.Error(t, s.Deserialize(b))

	// A record without a state hash is rejected.
	b = protowire.AppendTag(nil, 5, protowire.VarintType)
	b = protowire.AppendVarint(b, 3)
	assert.Error(t, s.Deserialize(b))

	var blk Block
	assert.Error(t, blk.Deserialize(nil))
	_, err := (&Block{}).Serialize()
	assert.Error(t, err)
}

func TestBlockSummaryUnmarshalJSON(t *testing.T) {
	s := testSummary()
	serialized := `{
		"state_hash": "` + s.StateHash.String() + `",
		"previous_state_hash": "` + s.ParentHash.String() + `",
		"genesis_state_hash": "` + s.GenesisStateHash.String() + `",
		"genesis_prev_state_hash": "` + s.GenesisPrevStateHash.String() + `",
		"blockchain_length": 7,
		"global_slot_since_genesis": 12,
		"last_vrf_output": "deadbeef"
	}`

	var s2 BlockSummary
	require.NoError(t, s2.UnmarshalJSON([]byte(serialized)))
	assert.Empty(t, deep.Equal(s, &s2))
	assert.False(t, s2.IsGenesis())

	ser, err := s2.MarshalJSON()
	require.NoError(t, err)
	var s3 BlockSummary
	require.NoError(t, s3.UnmarshalJSON(ser))
	assert.Empty(t, deep.Equal(s, &s3))
}
