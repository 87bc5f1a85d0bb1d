// spool.go - persistent, append-only, per-recipient message spool.
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

// Package spool implements the Katzenpost multispool message store: a
// persistent, append-only, per-recipient Spool; the SpoolSet directory of
// spool identifiers and owning keys; and the MultiSpool engine that
// coordinates both under one base directory and authorizes operations via
// stored public keys.
package spool

import (
	"encoding/binary"
	"math"
	"os"

	"github.com/katzenpost/multispool/constants"
	"github.com/katzenpost/multispool/store"
)

// metaTreeID names the metadata sub-tree (META_TREE_ID in the original).
var metaTreeID = []byte("meta_tree_id")

// endKey is the fixed metadata key holding the spool's current highest
// sequence number (END_KEY in the original).
var endKey = []byte("key")

func be32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func parseBE32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

// endKeyMerge is the merge operator bound to endKey: it keeps END_KEY
// monotonically non-decreasing under concurrent or replayed merges,
// mirroring the original's increment_merge.
func endKeyMerge(old, new []byte) []byte {
	if old == nil {
		return new
	}
	o, n := parseBE32(old), parseBE32(new)
	if o >= n {
		return old
	}
	return new
}

// Spool is an ordered, gap-free sequence of messages at positions
// 1, 2, 3, .... Append stores each message as given; it does not check
// its length against constants.MessageSize. hasLastKey is false iff the
// spool is empty.
type Spool struct {
	path string
	db   *store.DB
	data *store.KV
	meta *store.KV

	lastKey    uint32
	hasLastKey bool
}

// Open opens or creates the spool's backing database at path, repairing
// any consistency violation left by a partial write before returning.
func Open(path string) (*Spool, error) {
	db, err := store.Open(path, constants.DatabaseConnectTimeout)
	if err != nil {
		return nil, Wrap(KindIO, err)
	}
	s := &Spool{
		path: path,
		db:   db,
		data: db.Bucket([]byte("data")),
		meta: db.Bucket(metaTreeID),
	}
	if err := s.ensureConsistency(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// ensureConsistency repairs the invariant that data contains exactly the
// keys {1, ..., lastKey} after a crash that dropped the metadata update
// for the final append (property 3 of the testable properties).
func (s *Spool) ensureConsistency() error {
	raw, found, err := s.meta.Get(endKey)
	if err != nil {
		return Wrap(KindStore, err)
	}
	var k uint32
	if found {
		k = parseBE32(raw)
		if found, err := s.data.Contains(be32(k)); err != nil {
			return Wrap(KindStore, err)
		} else if !found {
			return New(KindCorruptSpool, "end key present but data tree is empty")
		}
	} else {
		// Fresh spool, or one whose first append reached the data tree
		// but not the metadata tree. Any other data without a recorded
		// end is corrupt.
		keys, err := s.data.Keys()
		if err != nil {
			return Wrap(KindStore, err)
		}
		if len(keys) == 0 {
			return nil
		}
		if parseBE32(keys[0]) != 1 {
			return New(KindCorruptSpool, "end key absent but data tree does not start at 1")
		}
	}
	for {
		found, err := s.data.Contains(be32(k + 1))
		if err != nil {
			return Wrap(KindStore, err)
		}
		if !found {
			break
		}
		k++
	}
	if err := s.meta.Put(endKey, be32(k)); err != nil {
		return Wrap(KindStore, err)
	}
	s.lastKey = k
	s.hasLastKey = true
	return nil
}

// LastKey returns the largest sequence number written, and whether the
// spool is non-empty.
func (s *Spool) LastKey() (uint32, bool) {
	return s.lastKey, s.hasLastKey
}

// Append writes message as the next sequential entry in the spool.
func (s *Spool) Append(message []byte) error {
	next := uint32(1)
	if s.hasLastKey {
		if s.lastKey == math.MaxUint32 {
			return New(KindSpoolFull, "sequence number space exhausted")
		}
		next = s.lastKey + 1
	}
	if err := s.data.Put(be32(next), message); err != nil {
		return Wrap(KindStore, err)
	}
	if err := s.meta.Merge(endKey, be32(next), endKeyMerge); err != nil {
		return Wrap(KindStore, err)
	}
	s.lastKey = next
	s.hasLastKey = true
	return nil
}

// Read returns the exact bytes stored at messageID, or KindNoSuchMessage
// if absent.
func (s *Spool) Read(messageID uint32) ([]byte, error) {
	v, found, err := s.data.Get(be32(messageID))
	if err != nil {
		return nil, Wrap(KindStore, err)
	}
	if !found {
		return nil, New(KindNoSuchMessage, "no such message")
	}
	return v, nil
}

// Purge clears every message and resets the spool to the empty state.
// hasLastKey resets to false (fresh-spool semantics), so the next append
// starts the sequence over at position 1.
func (s *Spool) Purge() error {
	if err := s.db.DropBucket(metaTreeID); err != nil {
		return Wrap(KindStore, err)
	}
	if err := s.data.Clear(); err != nil {
		return Wrap(KindStore, err)
	}
	s.lastKey = 0
	s.hasLastKey = false
	return nil
}

// Close releases the spool's backing database file.
func (s *Spool) Close() error {
	return s.db.Close()
}

// Path returns the spool's backing database file path.
func (s *Spool) Path() string {
	return s.path
}

// removeFile deletes the spool's on-disk database file. Called by
// MultiSpool.PurgeSpool after Purge -- the
// Spool itself only ever manages tree contents, never its own directory
// entry, matching the ownership split in DATA MODEL (MultiSpool owns
// removing the on-disk directory).
func removeFile(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
