// dispatch.go - command dispatcher: decode a SpoolRequest, call MultiSpool.
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

// Package plugin is the command dispatcher and transport binding for the
// multispool engine: it decodes the CBOR multispool.SpoolRequest carried
// in a transport Request's Payload, routes it to one of MultiSpool's four
// operations, and encodes the result as a multispool.SpoolResponse. The
// dispatcher (Dispatch) is kept independent of the HTTP transport
// (Server) the same way the original kept its spool-engine dispatch core
// independent of which of its two bin/ entrypoints (cbor_spool_server.rs,
// grpc_spool_server.rs) called it, so a future transport binding could
// reuse Dispatch without change.
package plugin

import (
	"crypto/rand"

	"github.com/katzenpost/multispool/constants"
	"github.com/katzenpost/multispool/spool"

	multispool "github.com/katzenpost/multispool"
)

// Request is the transport envelope a caller delivers to the plugin, per
// spec.md section 6: ID identifies the request for the transport's own
// bookkeeping, Payload carries a marshaled multispool.SpoolRequest, and
// HasSURB records whether the transport has a reply path back to the
// caller. The dispatcher refuses to process a request with HasSURB
// false: a spool operation always produces a response, so a request with
// nowhere to deliver one is a caller error, not a spool error.
type Request struct {
	ID      uint64
	Payload []byte
	HasSURB bool
}

// Response is the transport envelope returned by Dispatch: Payload
// carries a marshaled multispool.SpoolResponse.
type Response struct {
	Payload []byte
}

// errNoSURBStatus is the message of the error Dispatch returns, with no
// Response, when a request arrives with no reply path.
const errNoSURBStatus = "error: request has no SURB"

// Dispatch decodes req.Payload as a multispool.SpoolRequest, routes it by
// Command to one of engine's four operations, and returns a Response
// whose Payload is a marshaled multispool.SpoolResponse. Dispatch never
// returns a non-nil error for a spool-level failure (a bad signature, an
// unknown spool, a full spool set): those are reported in the
// SpoolResponse's Status field, matching
// original_source/src/bin/cbor_spool_server.rs's request_handler, which
// always replies with a response object and never surfaces a transport
// fault for an application-level rejection. Dispatch returns a non-nil
// error only when req.Payload cannot be decoded at all or HasSURB is
// false, in which case there is no well-formed request to derive a
// SpoolID from for the response.
func Dispatch(engine *spool.MultiSpool, req *Request) (*Response, error) {
	if !req.HasSURB {
		return nil, New(errNoSURBStatus)
	}

	sreq, err := multispool.UnmarshalSpoolRequest(req.Payload)
	if err != nil {
		return nil, New("error: malformed request")
	}

	resp := dispatchSpoolRequest(engine, sreq)
	payload, err := resp.Marshal()
	if err != nil {
		return nil, err
	}
	return &Response{Payload: payload}, nil
}

func dispatchSpoolRequest(engine *spool.MultiSpool, req *multispool.SpoolRequest) *multispool.SpoolResponse {
	switch req.Command {
	case multispool.CommandCreate:
		return dispatchCreate(engine, req)
	case multispool.CommandPurge:
		return dispatchPurge(engine, req)
	case multispool.CommandAppend:
		return dispatchAppend(engine, req)
	case multispool.CommandRetrieve:
		return dispatchRetrieve(engine, req)
	default:
		return &multispool.SpoolResponse{SpoolID: make([]byte, constants.SpoolIDSize), Status: "error: no such command"}
	}
}

func dispatchCreate(engine *spool.MultiSpool, req *multispool.SpoolRequest) *multispool.SpoolResponse {
	publicKey, err := decodePublicKey(req.PublicKey[:])
	if err != nil {
		return &multispool.SpoolResponse{Status: "error: " + err.Error()}
	}
	id, err := engine.CreateSpool(publicKey, req.Signature[:], rand.Reader)
	if err != nil {
		return &multispool.SpoolResponse{Status: "error: " + err.Error()}
	}
	return &multispool.SpoolResponse{SpoolID: id[:], Status: multispool.StatusOK}
}

func dispatchPurge(engine *spool.MultiSpool, req *multispool.SpoolRequest) *multispool.SpoolResponse {
	if err := engine.PurgeSpool(req.SpoolID, req.Signature[:]); err != nil {
		return &multispool.SpoolResponse{SpoolID: req.SpoolID[:], Status: "error: " + err.Error()}
	}
	return &multispool.SpoolResponse{SpoolID: req.SpoolID[:], Status: multispool.StatusOK}
}

func dispatchAppend(engine *spool.MultiSpool, req *multispool.SpoolRequest) *multispool.SpoolResponse {
	if err := engine.AppendToSpool(req.SpoolID, req.Message); err != nil {
		return &multispool.SpoolResponse{SpoolID: req.SpoolID[:], Status: "error: " + err.Error()}
	}
	return &multispool.SpoolResponse{SpoolID: req.SpoolID[:], Status: multispool.StatusOK}
}

func dispatchRetrieve(engine *spool.MultiSpool, req *multispool.SpoolRequest) *multispool.SpoolResponse {
	messageID := decodeMessageID(req.MessageID)
	message, err := engine.ReadFromSpool(req.SpoolID, req.Signature[:], messageID)
	if err != nil {
		return &multispool.SpoolResponse{SpoolID: req.SpoolID[:], Status: "error: " + err.Error()}
	}
	return &multispool.SpoolResponse{SpoolID: req.SpoolID[:], Message: message, Status: multispool.StatusOK}
}

func decodeMessageID(b [constants.MessageIDSize]byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
