// multispool.go - MultiSpool: coordinates a SpoolSet and many Spools.
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

package spool

import (
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/katzenpost/core/crypto/eddsa"

	"github.com/katzenpost/multispool/auth"
	"github.com/katzenpost/multispool/constants"
)

// MultiSpool aggregates one SpoolSet and many Spools under a base
// directory, and authorizes operations against the owning public key
// recorded in the SpoolSet. All exported methods take the instance's
// mutex, per the coarse single-lock concurrency model: requests from
// multiple transport-handler goroutines serialize here rather than
// racing on the in-memory spool map.
type MultiSpool struct {
	mu sync.Mutex

	baseDir       string
	spoolSet      *SpoolSet
	spools        map[[constants.SpoolIDSize]byte]*Spool
	maxSpoolCount int
}

// spoolFileName returns the on-disk filename for a spool id, matching the
// original's spool.<base64url(spool_id)>.sled naming convention (adapted
// from a sled directory name to a single bbolt file name).
func spoolFileName(id [constants.SpoolIDSize]byte) string {
	return "spool." + base64.URLEncoding.EncodeToString(id[:]) + ".db"
}

func spoolPath(baseDir string, id [constants.SpoolIDSize]byte) string {
	return filepath.Join(baseDir, spoolFileName(id))
}

// New opens the SpoolSet at baseDir/spool_set.db, repairs it, and opens
// every spool it references, quarantining (removing from the set and from
// disk) any spool whose data is found corrupt. maxSpoolCount of 0 uses
// constants.DefaultMaxSpoolCount.
func New(baseDir string, maxSpoolCount int) (*MultiSpool, error) {
	if maxSpoolCount <= 0 {
		maxSpoolCount = constants.DefaultMaxSpoolCount
	}
	spoolSet, err := OpenSpoolSet(filepath.Join(baseDir, "spool_set.db"))
	if err != nil {
		return nil, err
	}
	ms := &MultiSpool{
		baseDir:       baseDir,
		spoolSet:      spoolSet,
		spools:        make(map[[constants.SpoolIDSize]byte]*Spool),
		maxSpoolCount: maxSpoolCount,
	}
	ids, err := spoolSet.Keys()
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		path := spoolPath(baseDir, id)
		s, err := Open(path)
		if err != nil {
			if Is(err, KindCorruptSpool) {
				if derr := spoolSet.Delete(id); derr != nil {
					return nil, derr
				}
				os.Remove(path)
				continue
			}
			return nil, err
		}
		ms.spools[id] = s
	}
	return ms, nil
}

// CreateSpool verifies that signature is a self-certification of
// publicKey (possession of the private key), draws a fresh random spool
// id from rng, and creates an empty spool owned by publicKey. The append
// path (AppendToSpool) performs no signature check of its own: spool ids
// are 96 bits of cryptographically random capability, so knowledge of the
// id is treated as sufficient to write to it (drop-box semantics), while
// create/purge/read require proof of the owning key.
func (m *MultiSpool) CreateSpool(publicKey *eddsa.PublicKey, signature []byte, rng io.Reader) ([constants.SpoolIDSize]byte, error) {
	var id [constants.SpoolIDSize]byte
	if !auth.VerifySelf(publicKey, signature) {
		return id, New(KindSignature, "self-certification signature does not verify")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	count, err := m.spoolSet.Count()
	if err != nil {
		return id, err
	}
	if count >= m.maxSpoolCount {
		return id, New(KindSpoolSetFull, "maximum spool count reached")
	}

	if _, err := io.ReadFull(rng, id[:]); err != nil {
		return id, Wrap(KindIO, err)
	}
	if has, err := m.spoolSet.Has(id); err != nil {
		return id, err
	} else if has {
		return id, New(KindIO, "spool id collision, retry")
	}

	path := spoolPath(m.baseDir, id)
	if _, err := os.Stat(path); err == nil {
		return id, New(KindIO, "spool file already exists, retry")
	}

	s, err := Open(path)
	if err != nil {
		return id, err
	}
	if err := m.spoolSet.Put(id, publicKey); err != nil {
		s.Close()
		os.Remove(path)
		return id, err
	}
	m.spools[id] = s
	return id, nil
}

// PurgeSpool verifies signature against the stored owning key, then
// destroys the spool's contents and removes it from both the in-memory
// map and the SpoolSet.
func (m *MultiSpool) PurgeSpool(id [constants.SpoolIDSize]byte, signature []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	publicKey, err := m.spoolSet.PublicKey(id)
	if err != nil {
		return New(KindNoSuchSpool, "no such spool")
	}
	if !auth.VerifyOwner(publicKey, signature) {
		return New(KindSignature, "purge signature does not verify")
	}

	s, ok := m.spools[id]
	if !ok {
		return New(KindNoSuchSpool, "no such spool")
	}
	if err := s.Purge(); err != nil {
		return err
	}
	path := s.Path()
	if err := s.Close(); err != nil {
		return Wrap(KindIO, err)
	}
	if err := removeFile(path); err != nil {
		return Wrap(KindIO, err)
	}
	if err := m.spoolSet.Delete(id); err != nil {
		return err
	}
	delete(m.spools, id)
	return nil
}

// AppendToSpool appends message to the named spool. See CreateSpool's
// doc comment for why this path is unauthenticated at the engine layer.
func (m *MultiSpool) AppendToSpool(id [constants.SpoolIDSize]byte, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.spools[id]
	if !ok {
		return New(KindNoSuchSpool, "no such spool")
	}
	return s.Append(message)
}

// ReadFromSpool verifies signature against the stored owning key, then
// returns the message at messageID.
func (m *MultiSpool) ReadFromSpool(id [constants.SpoolIDSize]byte, signature []byte, messageID uint32) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	publicKey, err := m.spoolSet.PublicKey(id)
	if err != nil {
		return nil, New(KindNoSuchSpool, "no such spool")
	}
	if !auth.VerifyOwner(publicKey, signature) {
		return nil, New(KindSignature, "read signature does not verify")
	}

	s, ok := m.spools[id]
	if !ok {
		return nil, New(KindNoSuchSpool, "no such spool")
	}
	return s.Read(messageID)
}

// Close releases every spool's and the spool set's backing database
// files. Intended for orderly process shutdown.
func (m *MultiSpool) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var first error
	for _, s := range m.spools {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	if err := m.spoolSet.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
