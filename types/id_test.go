// Copyright (c) 2022 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package types

import (
	"encoding/json"
	"github.com/stretchr/testify/assert"
	"testing"
)

const (
	testSerializedID = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
)

func TestNewIDFromString(t *testing.T) {
	id, err := NewIDFromString(testSerializedID)
	if err != nil {
		t.Error(err)
	}

	if id.String() != testSerializedID {
		t.Errorf("Expected %s, got %s", testSerializedID, id.String())
	}

	_, err = NewIDFromString(testSerializedID[:10])
	assert.ErrorIs(t, err, ErrIDStrSize)

	_, err = NewIDFromString("zz" + testSerializedID[2:])
	assert.Error(t, err)
}

func TestIDJSON(t *testing.T) {
	id, err := NewIDFromString(testSerializedID)
	assert.NoError(t, err)

	ser, err := json.Marshal(id)
	assert.NoError(t, err)
	assert.Equal(t, `"`+testSerializedID+`"`, string(ser))

	var id2 ID
	assert.NoError(t, json.Unmarshal(ser, &id2))
	assert.Equal(t, id, id2)
}

func TestIDCompare(t *testing.T) {
	a := ID{0x01}
	b := ID{0x02}
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
	assert.True(t, ID{}.IsZero())
	assert.False(t, a.IsZero())
}
