// dispatch_test.go - command dispatcher tests.
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
	"crypto/rand"
	"io/ioutil"
	"os"
	"testing"

	"github.com/katzenpost/core/crypto/eddsa"
	"github.com/stretchr/testify/require"

	multispool "github.com/katzenpost/multispool"
	"github.com/katzenpost/multispool/spool"
)

func newTestEngine(t *testing.T) *spool.MultiSpool {
	dir, err := ioutil.TempDir("", "multispool_plugin_test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	engine, err := spool.New(dir, 0)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestDispatchCreateAppendRetrieve(t *testing.T) {
	require := require.New(t)
	engine := newTestEngine(t)

	privKey, err := eddsa.NewKeypair(rand.Reader)
	require.NoError(err)

	createPayload, err := multispool.CreateSpool(privKey)
	require.NoError(err)
	resp, err := Dispatch(engine, &Request{ID: 1, Payload: createPayload, HasSURB: true})
	require.NoError(err)
	createResp, err := multispool.SpoolResponseFromBytes(resp.Payload)
	require.NoError(err)
	require.Equal(multispool.StatusOK, createResp.Status)
	require.Len(createResp.SpoolID, multispool.SpoolIDSize)

	var id [multispool.SpoolIDSize]byte
	copy(id[:], createResp.SpoolID)

	appendPayload, err := multispool.AppendToSpool(id, []byte("hello"))
	require.NoError(err)
	resp, err = Dispatch(engine, &Request{ID: 2, Payload: appendPayload, HasSURB: true})
	require.NoError(err)
	appendResp, err := multispool.SpoolResponseFromBytes(resp.Payload)
	require.NoError(err)
	require.Equal(multispool.StatusOK, appendResp.Status)

	readPayload, err := multispool.ReadFromSpool(id, 1, privKey)
	require.NoError(err)
	resp, err = Dispatch(engine, &Request{ID: 3, Payload: readPayload, HasSURB: true})
	require.NoError(err)
	readResp, err := multispool.SpoolResponseFromBytes(resp.Payload)
	require.NoError(err)
	require.Equal(multispool.StatusOK, readResp.Status)
	require.Equal([]byte("hello"), readResp.Message)
}

func TestDispatchRejectsRequestWithoutSURB(t *testing.T) {
	require := require.New(t)
	engine := newTestEngine(t)

	_, err := Dispatch(engine, &Request{ID: 1, Payload: []byte{}, HasSURB: false})
	require.Error(err)
}

func TestDispatchUnknownCommand(t *testing.T) {
	require := require.New(t)
	engine := newTestEngine(t)

	req := &multispool.SpoolRequest{Command: 255}
	payload, err := req.Marshal()
	require.NoError(err)

	resp, err := Dispatch(engine, &Request{ID: 1, Payload: payload, HasSURB: true})
	require.NoError(err)
	sresp, err := multispool.SpoolResponseFromBytes(resp.Payload)
	require.NoError(err)
	require.Equal("error: no such command", sresp.Status)
	require.Equal(make([]byte, multispool.SpoolIDSize), sresp.SpoolID)
}

func TestDispatchPurgeUnknownSpool(t *testing.T) {
	require := require.New(t)
	engine := newTestEngine(t)

	var id [multispool.SpoolIDSize]byte
	privKey, err := eddsa.NewKeypair(rand.Reader)
	require.NoError(err)
	payload, err := multispool.PurgeSpool(id, privKey)
	require.NoError(err)

	resp, err := Dispatch(engine, &Request{ID: 1, Payload: payload, HasSURB: true})
	require.NoError(err)
	sresp, err := multispool.SpoolResponseFromBytes(resp.Payload)
	require.NoError(err)
	require.Contains(sresp.Status, "error:")
}

func TestDispatchMalformedPayload(t *testing.T) {
	require := require.New(t)
	engine := newTestEngine(t)

	_, err := Dispatch(engine, &Request{ID: 1, Payload: []byte("not cbor"), HasSURB: true})
	require.Error(err)
}
