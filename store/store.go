// store.go - ordered key/value store abstraction backed by bbolt.
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

// Package store provides the ordered key/value store capability the spool
// engine is built on: get/put/delete/clear/iterate/contains-key plus a
// merge-operator hook, bound to github.com/coreos/bbolt the way the
// teacher's storage package binds the same durable, write-ahead-logged
// embedded database to its egress/ingress message stores.
package store

import (
	"time"

	bolt "github.com/coreos/bbolt"
)

// MergeFunc resolves a conflict between the value currently stored at a
// key (old, nil if absent) and a newly proposed value, returning the value
// that should be kept. It must be pure and side-effect free; it may run
// again on repair.
type MergeFunc func(old, new []byte) []byte

// KV is a single named bucket ("tree", in the embedded-store vocabulary
// this system's original implementation used) inside a DB.
type KV struct {
	db     *DB
	bucket []byte
}

// Get returns a copy of the value stored at key, or (nil, false) if the
// key is absent.
func (t *KV) Get(key []byte) ([]byte, bool, error) {
	var out []byte
	var found bool
	err := t.db.bolt.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(t.bucket)
		if b == nil {
			return nil
		}
		v := b.Get(key)
		if v == nil {
			return nil
		}
		found = true
		out = append([]byte(nil), v...)
		return nil
	})
	return out, found, err
}

// Contains reports whether key is present.
func (t *KV) Contains(key []byte) (bool, error) {
	_, found, err := t.Get(key)
	return found, err
}

// Put writes value at key, overwriting any prior value.
func (t *KV) Put(key, value []byte) error {
	return t.db.bolt.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(t.bucket)
		if err != nil {
			return err
		}
		return b.Put(key, value)
	})
}

// Delete removes key, if present.
func (t *KV) Delete(key []byte) error {
	return t.db.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(t.bucket)
		if b == nil {
			return nil
		}
		return b.Delete(key)
	})
}

// Clear drops every key in the bucket.
func (t *KV) Clear() error {
	return t.db.bolt.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(t.bucket) == nil {
			return nil
		}
		return tx.DeleteBucket(t.bucket)
	})
}

// ForEach calls fn for every (key, value) pair in byte-lexicographic key
// order, stopping early if fn returns an error.
func (t *KV) ForEach(fn func(key, value []byte) error) error {
	return t.db.bolt.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(t.bucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if err := fn(k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Merge applies fn against the current value at key (nil if absent) and
// the proposed new value, inside the same write transaction, storing
// whatever fn returns. This is the store package's equivalent of sled's
// merge operator: the original implementation relies on the embedded
// store invoking a registered merge function at write time, which bbolt
// has no native hook for, so the merge is applied here by the caller
// inside one Update transaction instead -- the visible behavior (atomic
// read-resolve-write under the single writer lock) is identical.
func (t *KV) Merge(key, new []byte, fn MergeFunc) error {
	return t.db.bolt.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(t.bucket)
		if err != nil {
			return err
		}
		old := b.Get(key)
		resolved := fn(old, new)
		return b.Put(key, resolved)
	})
}

// Keys returns every key in the bucket, by-lexicographic order, copied out
// of the transaction.
func (t *KV) Keys() ([][]byte, error) {
	keys := make([][]byte, 0)
	err := t.ForEach(func(k, _ []byte) error {
		keys = append(keys, append([]byte(nil), k...))
		return nil
	})
	return keys, err
}

// DB is a single embedded database file, opened once and shared by every
// KV bucket ("tree") carved out of it.
type DB struct {
	bolt *bolt.DB
	path string
}

// Open opens (creating if necessary) the bbolt database at path, with the
// teacher's DatabaseConnectTimeout applied to the file lock wait.
func Open(path string, timeout time.Duration) (*DB, error) {
	b, err := bolt.Open(path, 0600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, err
	}
	return &DB{bolt: b, path: path}, nil
}

// Bucket returns (creating on first write) the named KV bucket within db.
func (d *DB) Bucket(name []byte) *KV {
	return &KV{db: d, bucket: append([]byte(nil), name...)}
}

// HasBucket reports whether name has been created yet.
func (d *DB) HasBucket(name []byte) (bool, error) {
	found := false
	err := d.bolt.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(name) != nil
		return nil
	})
	return found, err
}

// DropBucket permanently removes a bucket and all its keys.
func (d *DB) DropBucket(name []byte) error {
	return d.bolt.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(name) == nil {
			return nil
		}
		return tx.DeleteBucket(name)
	})
}

// Path returns the filesystem path the database was opened from.
func (d *DB) Path() string {
	return d.path
}

// Close releases the database file and its lock.
func (d *DB) Close() error {
	return d.bolt.Close()
}
