// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"github.com/project-illium/idxd/params/hash"
	"github.com/project-illium/idxd/types"
	"github.com/project-illium/idxd/types/blocks"
)

// Compare orders two candidate tips. It returns a positive number if
// a is the better tip, a negative number if b is, and zero only if
// they are the same block.
//
// The greater height wins. Equal heights are decided by the greater
// blake2b-256 digest of the last VRF output, then by the greater
// state hash. The result depends only on the two blocks so every
// instance converges on the same tip regardless of arrival order.
func Compare(a, b *blocks.BlockSummary) int {
	if a.Height != b.Height {
		if a.Height > b.Height {
			return 1
		}
		return -1
	}
	da := hash.VRFDigest(a.LastVRFOutput)
	db := hash.VRFDigest(b.LastVRFOutput)
	if c := bytes.Compare(da[:], db[:]); c != 0 {
		return c
	}
	return a.StateHash.Compare(b.StateHash)
}

// BestTipSelector caches the best tip of a lineage. Each new block
// is compared only against the incumbent.
type BestTipSelector struct {
	tip types.ID
}

// NewBestTipSelector returns a selector whose incumbent is tip.
func NewBestTipSelector(tip types.ID) *BestTipSelector {
	return &BestTipSelector{tip: tip}
}

// Tip returns the current best tip.
func (s *BestTipSelector) Tip() types.ID {
	return s.tip
}

// Select adopts candidate as the best tip if it beats the incumbent.
// It returns the best tip and whether it changed.
func (s *BestTipSelector) Select(tree *WitnessTree, candidate types.ID) (types.ID, bool) {
	c, ok := tree.Get(candidate)
	if !ok || candidate == s.tip {
		return s.tip, false
	}
	incumbent, ok := tree.Get(s.tip)
	if !ok || Compare(c, incumbent) > 0 {
		s.tip = candidate
		return s.tip, true
	}
	return s.tip, false
}

func (s *BestTipSelector) setTip(tip types.ID) {
	s.tip = tip
}
