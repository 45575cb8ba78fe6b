// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

// Package bbolt provides a sublevel.Store backed by a single bbolt bucket.
package bbolt

import (
	"bytes"
	"context"
	"os"

	"go.etcd.io/bbolt"

	sublevel "github.com/daotl/go-sublevel"
	key "github.com/daotl/go-sublevel/key"
	"github.com/daotl/go-sublevel/query"
)

var defaultBucket = []byte("sublevel")

// Store is a sublevel.Store over one bucket of a bbolt db.
type Store struct {
	db     *bbolt.DB
	bucket []byte
}

var _ sublevel.Store = (*Store)(nil)

// NewStore opens the bbolt file at path and creates bucket if needed. A nil
// bucket selects the default one.
//
// Sync is decided by opts.NoSync for the whole db, bbolt has no per-write
// switch.
func NewStore(path string, opts *bbolt.Options, bucket []byte) (*Store, error) {
	db, err := bbolt.Open(path, os.FileMode(0640), opts)
	if err != nil {
		return nil, err
	}
	if bucket == nil {
		bucket = defaultBucket
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		db.Close() // nolint:errcheck
		return nil, err
	}
	return &Store{db: db, bucket: bucket}, nil
}

func mapErr(err error) error {
	if err == bbolt.ErrDatabaseNotOpen {
		return sublevel.ErrClosed
	}
	return err
}

func (s *Store) Put(ctx context.Context, k key.Key, value []byte, opts sublevel.Options) error {
	return mapErr(s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Put(k, value)
	}))
}

// Get seeks instead of using Bucket.Get, so empty values are told apart from
// missing keys.
func (s *Store) Get(ctx context.Context, k key.Key, opts sublevel.Options) ([]byte, error) {
	var result []byte
	if err := s.db.View(func(tx *bbolt.Tx) error {
		ck, v := tx.Bucket(s.bucket).Cursor().Seek(k)
		if ck == nil || !bytes.Equal(ck, k) {
			return sublevel.ErrNotFound
		}
		result = copyBytes(v)
		return nil
	}); err != nil {
		return nil, mapErr(err)
	}
	return result, nil
}

func (s *Store) Delete(ctx context.Context, k key.Key, opts sublevel.Options) error {
	return mapErr(s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Delete(k)
	}))
}

// Write applies ops in one read-write transaction.
func (s *Store) Write(ctx context.Context, ops []sublevel.Op, opts sublevel.Options) error {
	return mapErr(s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for _, op := range ops {
			var err error
			switch op.Type {
			case sublevel.OpPut:
				err = b.Put(op.Key, op.Value)
			case sublevel.OpDel:
				err = b.Delete(op.Key)
			}
			if err != nil {
				return err
			}
		}
		return nil
	}))
}

// Iterate holds a read-only transaction open until the iterator is closed.
// Close every iterator before writing through the same Store from the same
// goroutine: a write that needs to grow the file waits for the mmap lock that
// open read transactions hold, and blocks forever.
func (s *Store) Iterate(ctx context.Context, r query.Range, reverse bool, opts sublevel.Options) (query.Iterator, error) {
	tx, err := s.db.Begin(false)
	if err != nil {
		return query.Iterator{}, mapErr(err)
	}
	return iterateCursor(tx.Bucket(s.bucket).Cursor(), r, reverse, tx.Rollback), nil
}

func iterateCursor(cursor *bbolt.Cursor, r query.Range, reverse bool, closef func() error) query.Iterator {
	start, end := []byte(r.Start), []byte(r.End)

	first := func() ([]byte, []byte) {
		if len(start) == 0 {
			return cursor.First()
		}
		return cursor.Seek(start)
	}
	next := cursor.Next
	validate := func(k []byte) bool {
		return k != nil && (len(end) == 0 || bytes.Compare(k, end) <= 0)
	}
	if reverse {
		first = func() ([]byte, []byte) {
			if len(end) == 0 {
				return cursor.Last()
			}
			k, v := cursor.Seek(end)
			switch {
			case k == nil:
				return cursor.Last()
			case bytes.Compare(k, end) > 0:
				return cursor.Prev()
			default:
				return k, v
			}
		}
		next = cursor.Prev
		validate = func(k []byte) bool {
			return k != nil && (len(start) == 0 || bytes.Compare(k, start) >= 0)
		}
	}

	started, done := false, false
	return query.Iterator{
		Next: func() (query.Result, bool) {
			if done {
				return query.Result{}, false
			}
			var k, v []byte
			if !started {
				k, v = first()
				started = true
			} else {
				k, v = next()
			}
			if !validate(k) {
				done = true
				return query.Result{}, false
			}
			return query.Result{Entry: toEntry(k, v)}, true
		},
		Close: func() error {
			done = true
			if closef == nil {
				return nil
			}
			f := closef
			closef = nil
			return f()
		},
	}
}

// Close is used to close the underlying db.
func (s *Store) Close() error {
	return s.db.Close()
}
