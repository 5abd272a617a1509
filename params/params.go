// Copyright (c) 2022 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package params

import (
	"fmt"
)

const (
	networkMainnet = "mainnet"
	networkDevnet  = "devnet"
	networkRegtest = "regtest"
)

type NetworkParams struct {
	// Name is a human-readable string to identify the params. It is
	// also the prefix of block summary file names for the network.
	Name string

	// CanonicalThreshold is the number of blocks that must be built
	// on top of a block before it is considered canonical.
	CanonicalThreshold uint32

	// CanonicalUpdateThreshold is how many blocks the best tip must
	// advance before the daemon logs an ingest progress line.
	CanonicalUpdateThreshold uint32
}

var MainnetParams = NetworkParams{
	Name:                     networkMainnet,
	CanonicalThreshold:       10,
	CanonicalUpdateThreshold: 500,
}

var DevnetParams = NetworkParams{
	Name:                     networkDevnet,
	CanonicalThreshold:       10,
	CanonicalUpdateThreshold: 100,
}

var RegestParams = NetworkParams{
	Name:                     networkRegtest,
	CanonicalThreshold:       2,
	CanonicalUpdateThreshold: 10,
}

// NetworkParamsFromName returns the params for the named network.
func NetworkParamsFromName(name string) (*NetworkParams, error) {
	switch name {
	case networkMainnet:
		return &MainnetParams, nil
	case networkDevnet:
		return &DevnetParams, nil
	case networkRegtest:
		return &RegestParams, nil
	default:
		return nil, fmt.Errorf("unknown network: %s", name)
	}
}
