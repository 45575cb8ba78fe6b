// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

// Package retrystore provides a sublevel.Store wrapper which
// allows to retry operations.
package retrystore

import (
	"context"
	"time"

	xerrors "golang.org/x/xerrors"

	sublevel "github.com/daotl/go-sublevel"
	key "github.com/daotl/go-sublevel/key"
	logging "github.com/daotl/go-sublevel/log"
	"github.com/daotl/go-sublevel/query"
)

var log = logging.Logger("sublevel/retrystore")

// Store wraps a sublevel.Store with a user-provided TempErrFunc -which
// determines if an error is a temporal error and thus, worth retrying-, an
// amount of Retries -which specify how many times to retry an operation after
// a temporal error- and a base Delay, which is multiplied by the current
// retry and performs a pause before attempting the operation again.
//
// Retries stop early when the context of the operation is done.
type Store struct {
	TempErrFunc func(error) bool
	Retries     int
	Delay       time.Duration

	sublevel.Store
}

var _ sublevel.Store = (*Store)(nil)

var errFmtString = "ran out of retries trying to get past temporary error: %w"

func (s *Store) runOp(ctx context.Context, name string, op func() error) error {
	err := op()
	if err == nil || !s.TempErrFunc(err) {
		return err
	}

	for i := 0; i < s.Retries; i++ {
		log.Warnw("retrying after temporary error", "op", name, "attempt", i+1, "error", err)
		select {
		case <-time.After(time.Duration(i+1) * s.Delay):
		case <-ctx.Done():
			return xerrors.Errorf("%s interrupted while retrying: %w", name, ctx.Err())
		}

		err = op()
		if err == nil || !s.TempErrFunc(err) {
			return err
		}
	}

	return xerrors.Errorf(errFmtString, err)
}

// Get retrieves a value given a key.
func (s *Store) Get(ctx context.Context, k key.Key, opts sublevel.Options) ([]byte, error) {
	var val []byte
	err := s.runOp(ctx, "get", func() error {
		var err error
		val, err = s.Store.Get(ctx, k, opts)
		return err
	})
	return val, err
}

// Put stores a key/value.
func (s *Store) Put(ctx context.Context, k key.Key, val []byte, opts sublevel.Options) error {
	return s.runOp(ctx, "put", func() error {
		return s.Store.Put(ctx, k, val, opts)
	})
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, k key.Key, opts sublevel.Options) error {
	return s.runOp(ctx, "delete", func() error {
		return s.Store.Delete(ctx, k, opts)
	})
}

// Write retries the atomic write as a whole.
func (s *Store) Write(ctx context.Context, ops []sublevel.Op, opts sublevel.Options) error {
	return s.runOp(ctx, "write", func() error {
		return s.Store.Write(ctx, ops, opts)
	})
}

// Iterate retries opening the iterator. Errors while iterating are passed
// through.
func (s *Store) Iterate(ctx context.Context, r query.Range, reverse bool, opts sublevel.Options) (query.Iterator, error) {
	var it query.Iterator
	err := s.runOp(ctx, "iterate", func() error {
		var err error
		it, err = s.Store.Iterate(ctx, r, reverse, opts)
		return err
	})
	return it, err
}
