// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package types

import (
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Serializable is implemented by records that are persisted to
// the datastore.
type Serializable interface {
	Serialize() ([]byte, error)
	Deserialize(data []byte) error
}

// HexEncodable is a byte slice that encodes to and from a hex
// string in JSON.
type HexEncodable []byte

func (h HexEncodable) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(h))
}

func (h *HexEncodable) UnmarshalJSON(data []byte) error {
	s := strings.TrimSuffix(strings.TrimPrefix(string(data), `"`), `"`)
	if s == "null" {
		*h = nil
		return nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*h = b
	return nil
}
