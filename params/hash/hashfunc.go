// Copyright (c) 2022 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package hash

import (
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
)

const HashSize = 32

// HashFunc is the hash function used to derive state hash
// identifiers from arbitrary data.
func HashFunc(data []byte) []byte {
	h := blake2s.Sum256(data)
	return h[:]
}

// VRFDigest returns the blake2b-256 digest of a block's last VRF
// output. The digest, not the raw output, is what the fork choice
// rule compares when two tips have equal height.
func VRFDigest(vrfOutput []byte) [HashSize]byte {
	return blake2b.Sum256(vrfOutput)
}
