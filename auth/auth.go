// auth.go - spool engine identity verification.
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

// Package auth verifies the Ed25519 signatures that stand in for identity
// throughout the multispool engine. Unlike the teacher's auth package,
// which authenticates a remote peer against a PKI document
// (auth.ProviderAuthenticator.IsPeerValid fetches the peer's pinned link
// key from the mix PKI and compares it against the wire-handshake key),
// the spool engine has no PKI to consult: a spool's identity *is* the
// Ed25519 public key recorded for it at creation time, and every
// privileged request must prove possession of the matching private key
// by signing that key's own bytes. Same shape -- fetch key material,
// verify a signature, return a bool -- different source of truth.
package auth

import (
	"github.com/katzenpost/core/crypto/eddsa"
)

// VerifySelf reports whether signature is publicKey's own signature over
// its serialized bytes -- the self-certification check used by
// CreateSpool to prove the caller possesses the private half of the key
// it is registering.
func VerifySelf(publicKey *eddsa.PublicKey, signature []byte) bool {
	return publicKey.Verify(signature, publicKey.Bytes())
}

// VerifyOwner reports whether signature is publicKey's signature over its
// own serialized bytes -- the check PurgeSpool and ReadFromSpool run
// against the public key recorded for a spool at creation time. It is the
// same check as VerifySelf; it is named distinctly because the caller's
// intent differs (proving continued ownership of an existing spool,
// rather than proving possession at creation time).
func VerifyOwner(publicKey *eddsa.PublicKey, signature []byte) bool {
	return publicKey.Verify(signature, publicKey.Bytes())
}
