// spoolset.go - persistent directory of spool identifiers and owning keys.
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
	"github.com/katzenpost/core/crypto/eddsa"

	"github.com/katzenpost/multispool/constants"
	"github.com/katzenpost/multispool/store"
)

var (
	primaryTreeID = []byte("primary")
	metaTreeName  = []byte("meta_tree_id")
)

// SpoolSet is a set of (spoolID, publicKey) pairs, backed by two trees in
// one database: a primary tree storing spoolID -> empty, and a metadata
// tree storing spoolID -> public key bytes. The invariant that the two
// trees' key sets are equal is restored by repair after a partial crash.
type SpoolSet struct {
	db      *store.DB
	primary *store.KV
	meta    *store.KV
}

// OpenSpoolSet opens or creates the spool set's backing database at path
// and repairs any broken key-set-equality invariant left by a crash.
func OpenSpoolSet(path string) (*SpoolSet, error) {
	db, err := store.Open(path, constants.DatabaseConnectTimeout)
	if err != nil {
		return nil, Wrap(KindIO, err)
	}
	ss := &SpoolSet{
		db:      db,
		primary: db.Bucket(primaryTreeID),
		meta:    db.Bucket(metaTreeName),
	}
	if err := ss.repair(); err != nil {
		db.Close()
		return nil, err
	}
	return ss, nil
}

// repair restores the invariant that the primary and metadata trees carry
// exactly the same key set, by deleting any key present in only one tree.
func (ss *SpoolSet) repair() error {
	primaryKeys, err := ss.primary.Keys()
	if err != nil {
		return Wrap(KindStore, err)
	}
	metaKeys, err := ss.meta.Keys()
	if err != nil {
		return Wrap(KindStore, err)
	}
	metaSet := make(map[string]struct{}, len(metaKeys))
	for _, k := range metaKeys {
		metaSet[string(k)] = struct{}{}
	}
	primarySet := make(map[string]struct{}, len(primaryKeys))
	for _, k := range primaryKeys {
		primarySet[string(k)] = struct{}{}
	}
	for _, k := range primaryKeys {
		if _, ok := metaSet[string(k)]; !ok {
			if err := ss.primary.Delete(k); err != nil {
				return Wrap(KindStore, err)
			}
		}
	}
	for _, k := range metaKeys {
		if _, ok := primarySet[string(k)]; !ok {
			if err := ss.meta.Delete(k); err != nil {
				return Wrap(KindStore, err)
			}
		}
	}
	return nil
}

// Put records spoolID as owned by publicKey.
func (ss *SpoolSet) Put(spoolID [constants.SpoolIDSize]byte, publicKey *eddsa.PublicKey) error {
	if err := ss.primary.Put(spoolID[:], []byte{}); err != nil {
		return Wrap(KindStore, err)
	}
	if err := ss.meta.Put(spoolID[:], publicKey.Bytes()); err != nil {
		return Wrap(KindStore, err)
	}
	return nil
}

// Has reports whether spoolID is present.
func (ss *SpoolSet) Has(spoolID [constants.SpoolIDSize]byte) (bool, error) {
	found, err := ss.primary.Contains(spoolID[:])
	if err != nil {
		return false, Wrap(KindStore, err)
	}
	return found, nil
}

// Delete removes spoolID from both trees.
func (ss *SpoolSet) Delete(spoolID [constants.SpoolIDSize]byte) error {
	if err := ss.primary.Delete(spoolID[:]); err != nil {
		return Wrap(KindStore, err)
	}
	if err := ss.meta.Delete(spoolID[:]); err != nil {
		return Wrap(KindStore, err)
	}
	return nil
}

// Keys returns every spool id in the set, in byte-lexicographic order.
func (ss *SpoolSet) Keys() ([][constants.SpoolIDSize]byte, error) {
	raw, err := ss.primary.Keys()
	if err != nil {
		return nil, Wrap(KindStore, err)
	}
	out := make([][constants.SpoolIDSize]byte, 0, len(raw))
	for _, k := range raw {
		var id [constants.SpoolIDSize]byte
		copy(id[:], k)
		out = append(out, id)
	}
	return out, nil
}

// Count returns the number of spools currently tracked.
func (ss *SpoolSet) Count() (int, error) {
	keys, err := ss.Keys()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// PublicKey fetches and decodes the Ed25519 public key owning spoolID.
func (ss *SpoolSet) PublicKey(spoolID [constants.SpoolIDSize]byte) (*eddsa.PublicKey, error) {
	raw, found, err := ss.meta.Get(spoolID[:])
	if err != nil {
		return nil, Wrap(KindStore, err)
	}
	if !found {
		return nil, New(KindNoSuchSpool, "no such spool id")
	}
	pub := new(eddsa.PublicKey)
	if err := pub.FromBytes(raw); err != nil {
		return nil, Wrap(KindSignature, err)
	}
	return pub, nil
}

// Close releases the spool set's backing database file.
func (ss *SpoolSet) Close() error {
	return ss.db.Close()
}
