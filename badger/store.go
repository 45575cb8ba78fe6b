// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

// Package badger provides a sublevel.Store backed by Badger v3.
package badger

import (
	"context"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"

	sublevel "github.com/daotl/go-sublevel"
	key "github.com/daotl/go-sublevel/key"
	logging "github.com/daotl/go-sublevel/log"
	"github.com/daotl/go-sublevel/query"
)

var log = logging.Logger("sublevel/badger")

// Options are the badger store options, reexported here for convenience.
type Options struct {
	// Please refer to the Badger docs to see what this is for
	GcDiscardRatio float64

	// Interval between GC cycles
	//
	// If zero, the store will perform no automatic garbage collection.
	GcInterval time.Duration

	// Sleep time between rounds of a single GC cycle.
	//
	// If zero, the store will only perform one round of GC per
	// GcInterval.
	GcSleep time.Duration

	badger.Options
}

// DefaultOptions are the default options for the badger store.
var DefaultOptions Options

func init() {
	DefaultOptions = Options{
		GcDiscardRatio: 0.2,
		GcInterval:     15 * time.Minute,
		GcSleep:        10 * time.Second,
		Options:        badger.DefaultOptions(""),
	}
	// This is to optimize the store for big blocks
	DefaultOptions.Options.ValueThreshold = 1024
	// Badger prints at info level by default, route it through our logger.
	DefaultOptions.Options.Logger = &compatLogger{SugaredLogger: log}
}

// Store is a sublevel.Store over a Badger database.
type Store struct {
	DB *badger.DB

	closeLk   sync.RWMutex
	closed    bool
	closeOnce sync.Once
	closing   chan struct{}
	gcDone    chan struct{}

	gcDiscardRatio float64
	gcSleep        time.Duration
	gcInterval     time.Duration
}

var _ sublevel.Store = (*Store)(nil)

// NewStore opens a Badger store.
//
// for path == "", an in memory backend will be chosen
func NewStore(path string, options *Options) (*Store, error) {
	var opt badger.Options
	var gcDiscardRatio float64
	var gcSleep time.Duration
	var gcInterval time.Duration
	if options == nil {
		options = &DefaultOptions
	}
	opt = options.Options
	gcDiscardRatio = options.GcDiscardRatio
	gcSleep = options.GcSleep
	gcInterval = options.GcInterval

	if gcSleep <= 0 {
		// If gcSleep is 0, we don't perform multiple rounds of GC per
		// cycle.
		gcSleep = gcInterval
	}

	if path == "" {
		opt = opt.WithInMemory(true)
		opt.Dir, opt.ValueDir = "", ""
		// value log GC is not supported in memory mode
		gcInterval = 0
	} else {
		opt.Dir, opt.ValueDir = path, path
	}

	db, err := badger.Open(opt)
	if err != nil {
		return nil, err
	}

	s := &Store{
		DB:             db,
		closing:        make(chan struct{}),
		gcDone:         make(chan struct{}),
		gcDiscardRatio: gcDiscardRatio,
		gcSleep:        gcSleep,
		gcInterval:     gcInterval,
	}

	// Start the GC process if requested.
	if s.gcInterval > 0 {
		go s.periodicGC()
	} else {
		close(s.gcDone)
	}

	return s, nil
}

// Keep scheduling GC's AFTER `gcInterval` has passed since the previous GC
func (s *Store) periodicGC() {
	defer close(s.gcDone)

	gcTimeout := time.NewTimer(s.gcInterval)
	defer gcTimeout.Stop()

	for {
		select {
		case <-gcTimeout.C:
			switch err := s.gcOnce(); err {
			case badger.ErrNoRewrite, badger.ErrRejected:
				// No rewrite means we've fully garbage collected.
				// Rejected means someone else is running a GC
				// or we're closing.
				gcTimeout.Reset(s.gcInterval)
			case nil:
				gcTimeout.Reset(s.gcSleep)
			case sublevel.ErrClosed:
				return
			default:
				log.Errorw("error during a GC cycle", "error", err)
				// Not much we can do on a random error but log it and continue.
				gcTimeout.Reset(s.gcInterval)
			}
		case <-s.closing:
			return
		}
	}
}

func (s *Store) gcOnce() error {
	s.closeLk.RLock()
	defer s.closeLk.RUnlock()
	if s.closed {
		return sublevel.ErrClosed
	}
	log.Debugw("running GC round")
	return s.DB.RunValueLogGC(s.gcDiscardRatio)
}

// CollectGarbage runs value log GC rounds until there is nothing left to
// rewrite.
func (s *Store) CollectGarbage(ctx context.Context) (err error) {
	// The idea is to keep calling DB.RunValueLogGC() till Badger no longer
	// has any log files to GC(which would be indicated by an error, please
	// refer to Badger GC docs).
	for err == nil {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = s.gcOnce()
	}
	if err == badger.ErrNoRewrite {
		err = nil
	}
	return err
}

func mapErr(err error) error {
	switch err {
	case badger.ErrKeyNotFound:
		return sublevel.ErrNotFound
	case badger.ErrDBClosed:
		return sublevel.ErrClosed
	default:
		return err
	}
}

// update runs fn in a read-write transaction and syncs afterwards when opts
// ask for it and the db does not sync every write already.
func (s *Store) update(opts sublevel.Options, fn func(txn *badger.Txn) error) error {
	s.closeLk.RLock()
	defer s.closeLk.RUnlock()
	if s.closed {
		return sublevel.ErrClosed
	}
	if err := s.DB.Update(fn); err != nil {
		return mapErr(err)
	}
	if opts.SyncWrites(false) && !s.DB.Opts().SyncWrites && !s.DB.Opts().InMemory {
		return mapErr(s.DB.Sync())
	}
	return nil
}

func (s *Store) Put(ctx context.Context, k key.Key, value []byte, opts sublevel.Options) error {
	return s.update(opts, func(txn *badger.Txn) error {
		return txn.Set(k, value)
	})
}

func (s *Store) Get(ctx context.Context, k key.Key, opts sublevel.Options) (value []byte, err error) {
	s.closeLk.RLock()
	defer s.closeLk.RUnlock()
	if s.closed {
		return nil, sublevel.ErrClosed
	}
	err = s.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, mapErr(err)
	}
	return value, nil
}

func (s *Store) Delete(ctx context.Context, k key.Key, opts sublevel.Options) error {
	return s.update(opts, func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
}

// Write applies ops in one transaction. Badger rejects transactions that
// outgrow its limits with badger.ErrTxnTooBig, the ops are then not applied.
func (s *Store) Write(ctx context.Context, ops []sublevel.Op, opts sublevel.Options) error {
	return s.update(opts, func(txn *badger.Txn) error {
		for _, op := range ops {
			var err error
			switch op.Type {
			case sublevel.OpPut:
				err = txn.Set(op.Key, op.Value)
			case sublevel.OpDel:
				err = txn.Delete(op.Key)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Iterate holds a read-only transaction open until the iterator is closed.
func (s *Store) Iterate(ctx context.Context, r query.Range, reverse bool, opts sublevel.Options) (query.Iterator, error) {
	s.closeLk.RLock()
	defer s.closeLk.RUnlock()
	if s.closed {
		return query.Iterator{}, sublevel.ErrClosed
	}

	txn := s.DB.NewTransaction(false)
	it := txn.NewIterator(badger.IteratorOptions{
		PrefetchValues: true,
		PrefetchSize:   100,
		Reverse:        reverse,
	})

	first := func() {
		if len(r.Start) == 0 {
			it.Rewind()
			return
		}
		it.Seek(r.Start)
	}
	inRange := func(k key.Key) bool {
		return len(r.End) == 0 || k.Compare(r.End) <= 0
	}
	if reverse {
		// in reverse mode Seek finds the largest key <= the sought one
		first = func() {
			if len(r.End) == 0 {
				it.Rewind()
				return
			}
			it.Seek(r.End)
		}
		inRange = func(k key.Key) bool {
			return len(r.Start) == 0 || k.Compare(r.Start) >= 0
		}
	}

	started, done := false, false
	return query.Iterator{
		Next: func() (query.Result, bool) {
			s.closeLk.RLock()
			defer s.closeLk.RUnlock()
			if done {
				return query.Result{}, false
			}
			if s.closed {
				done = true
				return query.Result{Error: sublevel.ErrClosed}, true
			}
			if !started {
				first()
				started = true
			} else {
				it.Next()
			}
			if !it.Valid() {
				done = true
				return query.Result{}, false
			}
			item := it.Item()
			k := key.New(item.KeyCopy(nil))
			if !inRange(k) {
				done = true
				return query.Result{}, false
			}
			v, err := item.ValueCopy(nil)
			if err != nil {
				done = true
				return query.Result{Error: err}, true
			}
			return query.Result{Entry: query.Entry{Key: k, Value: v, Size: len(v)}}, true
		},
		Close: func() error {
			s.closeLk.RLock()
			defer s.closeLk.RUnlock()
			if it != nil {
				it.Close()
				txn.Discard()
				it = nil
			}
			done = true
			return nil
		},
	}, nil
}

// Close stops the GC loop and closes the database.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
	})
	<-s.gcDone
	s.closeLk.Lock()
	defer s.closeLk.Unlock()
	if s.closed {
		return sublevel.ErrClosed
	}
	s.closed = true
	return s.DB.Close()
}

// compatLogger adapts a zap logger to badger.Logger.
type compatLogger struct {
	*zap.SugaredLogger
}

// Warningf is required by the badger.Logger interface.
func (l *compatLogger) Warningf(format string, args ...interface{}) {
	l.Warnf(format, args...)
}

var _ badger.Logger = (*compatLogger)(nil)
