// request_test.go - wire envelope round-trip tests.
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

package multispool

import (
	"crypto/rand"
	"testing"

	"github.com/katzenpost/core/crypto/eddsa"
	"github.com/stretchr/testify/require"
)

func TestCreateSpoolRequestRoundTrip(t *testing.T) {
	require := require.New(t)

	privKey, err := eddsa.NewKeypair(rand.Reader)
	require.NoError(err)

	raw, err := CreateSpool(privKey)
	require.NoError(err)

	req, err := UnmarshalSpoolRequest(raw)
	require.NoError(err)
	require.Equal(CommandCreate, req.Command)
	require.Equal(privKey.PublicKey().Bytes(), req.PublicKey[:])
	require.True(privKey.PublicKey().Verify(req.Signature[:], req.PublicKey[:]))
}

func TestAppendToSpoolRequestCarriesNoSignature(t *testing.T) {
	require := require.New(t)

	var id [SpoolIDSize]byte
	copy(id[:], "012345678901")

	raw, err := AppendToSpool(id, []byte("hello"))
	require.NoError(err)

	req, err := UnmarshalSpoolRequest(raw)
	require.NoError(err)
	require.Equal(CommandAppend, req.Command)
	require.Equal(id, req.SpoolID)
	require.Equal([]byte("hello"), req.Message)
	var zeroSig [64]byte
	require.Equal(zeroSig, req.Signature)
}

func TestReadFromSpoolRequestEncodesMessageID(t *testing.T) {
	require := require.New(t)

	privKey, err := eddsa.NewKeypair(rand.Reader)
	require.NoError(err)
	var id [SpoolIDSize]byte
	copy(id[:], "012345678901")

	raw, err := ReadFromSpool(id, 7, privKey)
	require.NoError(err)

	req, err := UnmarshalSpoolRequest(raw)
	require.NoError(err)
	require.Equal(CommandRetrieve, req.Command)
	require.Equal(uint32(7), uint32(req.MessageID[0])<<24|uint32(req.MessageID[1])<<16|uint32(req.MessageID[2])<<8|uint32(req.MessageID[3]))
}

func TestSpoolResponseFromBytes(t *testing.T) {
	require := require.New(t)

	resp := &SpoolResponse{
		SpoolID: []byte("012345678901"),
		Message: []byte("payload"),
		Status:  StatusOK,
	}
	raw, err := resp.Marshal()
	require.NoError(err)

	decoded, err := SpoolResponseFromBytes(raw)
	require.NoError(err)
	require.Equal(resp.SpoolID, decoded.SpoolID)
	require.Equal(resp.Message, decoded.Message)
	require.Equal(StatusOK, decoded.Status)
}
