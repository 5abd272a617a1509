// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package types

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestCanonicityUpdateSort(t *testing.T) {
	u := CanonicityUpdate{
		{Height: 7, StateHash: ID{0x02}, Status: Orphaned},
		{Height: 5, StateHash: ID{0x09}, Status: Canonical},
		{Height: 7, StateHash: ID{0x01}, Status: Canonical},
		{Height: 6, StateHash: ID{0x03}, Status: Canonical},
	}
	u.Sort()

	assert.Equal(t, uint32(5), u[0].Height)
	assert.Equal(t, uint32(6), u[1].Height)
	assert.Equal(t, ID{0x01}, u[2].StateHash)
	assert.Equal(t, ID{0x02}, u[3].StateHash)
}

func TestCanonicityUpdateToBatch(t *testing.T) {
	u := CanonicityUpdate{
		{Height: 5, GlobalSlot: 9, StateHash: ID{0x05}, Status: Canonical},
		{Height: 5, GlobalSlot: 8, StateHash: ID{0x06}, Status: Orphaned},
		{Height: 6, GlobalSlot: 11, StateHash: ID{0x07}, Status: Canonical},
	}
	batch := u.ToBatch()
	assert.Equal(t, []BlockRef{
		{Height: 5, GlobalSlot: 9, StateHash: ID{0x05}},
		{Height: 6, GlobalSlot: 11, StateHash: ID{0x07}},
	}, batch.Apply)
	assert.Equal(t, []BlockRef{
		{Height: 5, GlobalSlot: 8, StateHash: ID{0x06}},
	}, batch.Unapply)
	assert.False(t, batch.IsEmpty())
	assert.True(t, CanonicityUpdate{}.ToBatch().IsEmpty())
}

func TestCanonicityString(t *testing.T) {
	assert.Equal(t, "Pending", Pending.String())
	assert.Equal(t, "Canonical", Canonical.String())
	assert.Equal(t, "Orphaned", Orphaned.String())
	assert.Equal(t, "Unknown Canonicity (9)", Canonicity(9).String())
}
