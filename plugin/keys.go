// keys.go - decode wire-format key material for the dispatcher.
// Copyright (C) 2019  David Anthony Stainton.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package plugin

import (
	"github.com/katzenpost/core/crypto/eddsa"
)

// decodePublicKey parses the raw 32-byte Ed25519 public key carried in a
// SpoolRequest, the inverse of the Bytes() encoding multispool.CreateSpool
// uses to fill that field.
func decodePublicKey(raw []byte) (*eddsa.PublicKey, error) {
	pub := new(eddsa.PublicKey)
	if err := pub.FromBytes(raw); err != nil {
		return nil, err
	}
	return pub, nil
}
