// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

// Package leveldb provides a sublevel.Store backed by syndtr/goleveldb.
package leveldb

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	sublevel "github.com/daotl/go-sublevel"
	key "github.com/daotl/go-sublevel/key"
	logging "github.com/daotl/go-sublevel/log"
	"github.com/daotl/go-sublevel/query"
)

var log = logging.Logger("sublevel/leveldb")

// Options extends syndtr/goleveldb/opt.Options
type Options struct {
	opt.Options

	// SyncWrites is whether to sync underlying writes from the OS buffer cache
	// through to actual disk. It is the default for writes whose
	// sublevel.Options leave Sync unset.
	//
	// The default value is true.
	SyncWrites bool
}

// Store is a sublevel.Store over a LevelDB database.
type Store struct {
	DB         *leveldb.DB
	path       string
	syncWrites bool
	closeLk    sync.RWMutex
}

var _ sublevel.Store = (*Store)(nil)

// NewStore opens a LevelDB store.
//
// for path == "", an in memory backend will be chosen
func NewStore(path string, opts *Options) (*Store, error) {
	if opts == nil {
		opts = &Options{SyncWrites: true}
	}
	nopts := opts.Options

	var (
		db  *leveldb.DB
		err error
	)
	if path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), &nopts)
	} else {
		db, err = leveldb.OpenFile(path, &nopts)
		if errors.IsCorrupted(err) && !nopts.GetReadOnly() {
			log.Warnw("database corrupted, recovering", "path", path, "error", err)
			db, err = leveldb.RecoverFile(path, &nopts)
		}
	}
	if err != nil {
		return nil, err
	}

	return &Store{DB: db, path: path, syncWrites: opts.SyncWrites}, nil
}

func (s *Store) writeOptions(opts sublevel.Options) *opt.WriteOptions {
	return &opt.WriteOptions{Sync: opts.SyncWrites(s.syncWrites)}
}

func readOptions(opts sublevel.Options) *opt.ReadOptions {
	return &opt.ReadOptions{DontFillCache: !opts.FillsCache(true)}
}

func mapErr(err error) error {
	switch err {
	case leveldb.ErrNotFound:
		return sublevel.ErrNotFound
	case leveldb.ErrClosed:
		return sublevel.ErrClosed
	default:
		return err
	}
}

func (s *Store) Put(ctx context.Context, k key.Key, value []byte, opts sublevel.Options) error {
	s.closeLk.RLock()
	defer s.closeLk.RUnlock()
	return mapErr(s.DB.Put(k, value, s.writeOptions(opts)))
}

func (s *Store) Get(ctx context.Context, k key.Key, opts sublevel.Options) ([]byte, error) {
	s.closeLk.RLock()
	defer s.closeLk.RUnlock()
	val, err := s.DB.Get(k, readOptions(opts))
	if err != nil {
		return nil, mapErr(err)
	}
	return val, nil
}

func (s *Store) Delete(ctx context.Context, k key.Key, opts sublevel.Options) error {
	s.closeLk.RLock()
	defer s.closeLk.RUnlock()
	return mapErr(s.DB.Delete(k, s.writeOptions(opts)))
}

// Write commits ops as one leveldb.Batch.
func (s *Store) Write(ctx context.Context, ops []sublevel.Op, opts sublevel.Options) error {
	b := new(leveldb.Batch)
	for _, op := range ops {
		switch op.Type {
		case sublevel.OpPut:
			b.Put(op.Key, op.Value)
		case sublevel.OpDel:
			b.Delete(op.Key)
		}
	}
	s.closeLk.RLock()
	defer s.closeLk.RUnlock()
	return mapErr(s.DB.Write(b, s.writeOptions(opts)))
}

// Iterate scans r over an implicit snapshot. LevelDB limits are exclusive,
// so the inclusive end bound is turned into its immediate successor.
func (s *Store) Iterate(ctx context.Context, r query.Range, reverse bool, opts sublevel.Options) (query.Iterator, error) {
	s.closeLk.RLock()
	defer s.closeLk.RUnlock()

	rnge := &util.Range{}
	if len(r.Start) > 0 {
		rnge.Start = r.Start
	}
	if len(r.End) > 0 {
		rnge.Limit = append(r.End.Clone(), 0x00)
	}

	i := s.DB.NewIterator(rnge, readOptions(opts))
	done := false
	next := i.Next
	if reverse {
		next = func() bool {
			next = i.Prev
			return i.Last()
		}
	}
	return query.Iterator{
		Next: func() (query.Result, bool) {
			s.closeLk.RLock()
			defer s.closeLk.RUnlock()
			if done {
				return query.Result{}, false
			}
			if !next() {
				done = true
				if err := i.Error(); err != nil {
					return query.Result{Error: mapErr(err)}, true
				}
				return query.Result{}, false
			}
			return query.Result{Entry: query.Entry{
				Key:   key.New(i.Key()).Clone(),
				Value: copyBytes(i.Value()),
				Size:  len(i.Value()),
			}}, true
		},
		Close: func() error {
			s.closeLk.RLock()
			defer s.closeLk.RUnlock()
			i.Release()
			return nil
		},
	}, nil
}

// DiskUsage returns the current disk size used by this levelDB.
// For in-mem stores, it will return 0.
func (s *Store) DiskUsage() (uint64, error) {
	s.closeLk.RLock()
	defer s.closeLk.RUnlock()
	if s.path == "" { // in-mem
		return 0, nil
	}

	var du uint64
	err := filepath.Walk(s.path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		du += uint64(info.Size())
		return nil
	})
	if err != nil {
		return 0, err
	}
	return du, nil
}

// LevelDB needs to be closed.
func (s *Store) Close() error {
	s.closeLk.Lock()
	defer s.closeLk.Unlock()
	return s.DB.Close()
}

func copyBytes(src []byte) []byte {
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}
