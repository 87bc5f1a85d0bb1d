// request.go - wire request/response envelopes for the multispool service.
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

// Package multispool is the wire-contract layer shared by a multispool
// client and the multispool plugin: the SpoolRequest/SpoolResponse
// envelopes of spec.md section 6, and the four builder functions a
// session-layer caller uses to construct a command -- the same shape
// session/remote_spool.go in the teacher's tree expects of a sibling
// "multispool" package (multispool.CreateSpool, multispool.PurgeSpool,
// multispool.AppendToSpool, multispool.ReadFromSpool,
// multispool.SpoolResponseFromBytes, multispool.SpoolIDSize), which this
// package now actually provides.
package multispool

import (
	"encoding/binary"

	"github.com/fxamacker/cbor/v2"
	"github.com/katzenpost/core/crypto/eddsa"

	"github.com/katzenpost/multispool/constants"
)

// Command codes, per spec.md section 4.4.
const (
	CommandCreate    uint8 = 0
	CommandPurge     uint8 = 1
	CommandAppend    uint8 = 2
	CommandRetrieve  uint8 = 3
	StatusOK               = "OK"
)

// SpoolIDSize is the length, in bytes, of a spool identifier.
const SpoolIDSize = constants.SpoolIDSize

// SpoolRequest is the binary map carried as a transport Request's Payload.
// Field names are preserved verbatim in the CBOR encoding (fxamacker/cbor
// encodes exported struct fields under their Go names by default, with no
// additional struct tags needed -- the same convention the teacher's
// cborplugin.Command uses for its own fields).
type SpoolRequest struct {
	Command   uint8
	SpoolID   [constants.SpoolIDSize]byte
	Signature [constants.SignatureSize]byte
	PublicKey [constants.PublicKeySize]byte
	MessageID [constants.MessageIDSize]byte
	Message   []byte
}

// Marshal CBOR-encodes the request.
func (r *SpoolRequest) Marshal() ([]byte, error) {
	return cbor.Marshal(r)
}

// UnmarshalSpoolRequest decodes a CBOR-encoded SpoolRequest.
func UnmarshalSpoolRequest(b []byte) (*SpoolRequest, error) {
	r := new(SpoolRequest)
	if err := cbor.Unmarshal(b, r); err != nil {
		return nil, err
	}
	return r, nil
}

// SpoolResponse is the binary map carried as a transport Response's
// Payload. SpoolID is a slice, not a fixed array, so a caller can return
// it directly as the []byte a session-layer CreateSpool result is
// expected to be.
type SpoolResponse struct {
	SpoolID []byte
	Message []byte
	Status  string
}

// Marshal CBOR-encodes the response.
func (r *SpoolResponse) Marshal() ([]byte, error) {
	return cbor.Marshal(r)
}

// SpoolResponseFromBytes decodes a CBOR-encoded SpoolResponse.
func SpoolResponseFromBytes(raw []byte) (SpoolResponse, error) {
	r := SpoolResponse{}
	err := cbor.Unmarshal(raw, &r)
	return r, err
}

func messageIDBytes(id uint32) [constants.MessageIDSize]byte {
	var b [constants.MessageIDSize]byte
	binary.BigEndian.PutUint32(b[:], id)
	return b
}

// CreateSpool builds and marshals the command requesting a new spool
// owned by privKey, self-certifying possession of the private key by
// signing the public key's own bytes (see auth.VerifySelf).
func CreateSpool(privKey *eddsa.PrivateKey) ([]byte, error) {
	pub := privKey.PublicKey()
	req := &SpoolRequest{
		Command: CommandCreate,
	}
	copy(req.PublicKey[:], pub.Bytes())
	copy(req.Signature[:], privKey.Sign(pub.Bytes()))
	return req.Marshal()
}

// PurgeSpool builds and marshals the command requesting destruction of
// spoolID, proving ownership by signing privKey's own public key bytes.
func PurgeSpool(spoolID [constants.SpoolIDSize]byte, privKey *eddsa.PrivateKey) ([]byte, error) {
	pub := privKey.PublicKey()
	req := &SpoolRequest{
		Command: CommandPurge,
		SpoolID: spoolID,
	}
	copy(req.PublicKey[:], pub.Bytes())
	copy(req.Signature[:], privKey.Sign(pub.Bytes()))
	return req.Marshal()
}

// AppendToSpool builds and marshals the command appending message to
// spoolID. Per spec.md section 9's drop-box reading, this path carries no
// signature: possession of the 96-bit random spoolID is the capability.
func AppendToSpool(spoolID [constants.SpoolIDSize]byte, message []byte) ([]byte, error) {
	req := &SpoolRequest{
		Command: CommandAppend,
		SpoolID: spoolID,
		Message: message,
	}
	return req.Marshal()
}

// ReadFromSpool builds and marshals the command retrieving messageID from
// spoolID, proving ownership by signing privKey's own public key bytes.
func ReadFromSpool(spoolID [constants.SpoolIDSize]byte, messageID uint32, privKey *eddsa.PrivateKey) ([]byte, error) {
	pub := privKey.PublicKey()
	req := &SpoolRequest{
		Command:   CommandRetrieve,
		SpoolID:   spoolID,
		MessageID: messageIDBytes(messageID),
	}
	copy(req.PublicKey[:], pub.Bytes())
	copy(req.Signature[:], privKey.Sign(pub.Bytes()))
	return req.Marshal()
}
