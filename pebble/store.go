// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

// Package pebble provides a sublevel.Store backed by CockroachDB's Pebble.
package pebble

import (
	"context"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	sublevel "github.com/daotl/go-sublevel"
	key "github.com/daotl/go-sublevel/key"
	logging "github.com/daotl/go-sublevel/log"
	"github.com/daotl/go-sublevel/query"
)

var log = logging.Logger("sublevel/pebble")

// Options extends cockroachdb/pebble.Options
type Options struct {
	pebble.Options

	// SyncWrites is the default for writes whose sublevel.Options leave Sync
	// unset.
	//
	// The default value is true.
	SyncWrites bool
}

// Store is a sublevel.Store over a Pebble database.
type Store struct {
	db         *pebble.DB
	syncWrites bool

	closeLk sync.RWMutex
	closed  bool
}

var _ sublevel.Store = (*Store)(nil)

// NewStore opens a Pebble store.
//
// for path == "", an in memory filesystem will be used
func NewStore(path string, opts *Options) (*Store, error) {
	if opts == nil {
		opts = &Options{SyncWrites: true}
	}
	popts := opts.Options
	if path == "" {
		popts.FS = vfs.NewMem()
	}
	if popts.Logger == nil {
		popts.Logger = log
	}

	db, err := pebble.Open(path, &popts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble database: %w", err)
	}
	return &Store{db: db, syncWrites: opts.SyncWrites}, nil
}

func (s *Store) writeOptions(opts sublevel.Options) *pebble.WriteOptions {
	if opts.SyncWrites(s.syncWrites) {
		return pebble.Sync
	}
	return pebble.NoSync
}

// Pebble panics on use after close, so every access checks closed under
// closeLk first.

func (s *Store) Put(ctx context.Context, k key.Key, value []byte, opts sublevel.Options) error {
	s.closeLk.RLock()
	defer s.closeLk.RUnlock()
	if s.closed {
		return sublevel.ErrClosed
	}
	return s.db.Set(k, value, s.writeOptions(opts))
}

func (s *Store) Get(ctx context.Context, k key.Key, opts sublevel.Options) ([]byte, error) {
	s.closeLk.RLock()
	defer s.closeLk.RUnlock()
	if s.closed {
		return nil, sublevel.ErrClosed
	}
	value, closer, err := s.db.Get(k)
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, sublevel.ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	return copyBytes(value), nil
}

func (s *Store) Delete(ctx context.Context, k key.Key, opts sublevel.Options) error {
	s.closeLk.RLock()
	defer s.closeLk.RUnlock()
	if s.closed {
		return sublevel.ErrClosed
	}
	return s.db.Delete(k, s.writeOptions(opts))
}

// Write commits ops as one pebble.Batch.
func (s *Store) Write(ctx context.Context, ops []sublevel.Op, opts sublevel.Options) error {
	s.closeLk.RLock()
	defer s.closeLk.RUnlock()
	if s.closed {
		return sublevel.ErrClosed
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	for _, op := range ops {
		var err error
		switch op.Type {
		case sublevel.OpPut:
			err = batch.Set(op.Key, op.Value, nil)
		case sublevel.OpDel:
			err = batch.Delete(op.Key, nil)
		}
		if err != nil {
			return err
		}
	}
	return batch.Commit(s.writeOptions(opts))
}

// Iterate scans r over an implicit snapshot. Pebble upper bounds are
// exclusive, so the inclusive end bound is turned into its immediate
// successor.
func (s *Store) Iterate(ctx context.Context, r query.Range, reverse bool, opts sublevel.Options) (query.Iterator, error) {
	s.closeLk.RLock()
	defer s.closeLk.RUnlock()
	if s.closed {
		return query.Iterator{}, sublevel.ErrClosed
	}

	iopts := &pebble.IterOptions{}
	if len(r.Start) > 0 {
		iopts.LowerBound = r.Start.Clone()
	}
	if len(r.End) > 0 {
		iopts.UpperBound = append(r.End.Clone(), 0x00)
	}
	iter, err := s.db.NewIterWithContext(ctx, iopts)
	if err != nil {
		return query.Iterator{}, err
	}

	first, next := iter.First, iter.Next
	if reverse {
		first, next = iter.Last, iter.Prev
	}
	started, done := false, false
	return query.Iterator{
		Next: func() (query.Result, bool) {
			if done {
				return query.Result{}, false
			}
			var ok bool
			if !started {
				ok = first()
				started = true
			} else {
				ok = next()
			}
			if !ok {
				done = true
				if err := iter.Error(); err != nil {
					return query.Result{Error: err}, true
				}
				return query.Result{}, false
			}
			v, err := iter.ValueAndErr()
			if err != nil {
				done = true
				return query.Result{Error: err}, true
			}
			return query.Result{Entry: query.Entry{
				Key:   key.New(copyBytes(iter.Key())),
				Value: copyBytes(v),
				Size:  len(v),
			}}, true
		},
		Close: func() error {
			if iter == nil {
				return nil
			}
			done = true
			err := iter.Close()
			iter = nil
			return err
		},
	}, nil
}

// Flush flushes the memtable to stable storage.
func (s *Store) Flush() error {
	s.closeLk.RLock()
	defer s.closeLk.RUnlock()
	if s.closed {
		return sublevel.ErrClosed
	}
	return s.db.Flush()
}

// Close closes the database. Iterators must be closed before.
func (s *Store) Close() error {
	s.closeLk.Lock()
	defer s.closeLk.Unlock()
	if s.closed {
		return sublevel.ErrClosed
	}
	s.closed = true
	return s.db.Close()
}

func copyBytes(src []byte) []byte {
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}
