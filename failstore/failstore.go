// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

// Package failstore implements a sublevel.Store which can be used to inject
// errors into any store operation.
package failstore

import (
	"context"

	sublevel "github.com/daotl/go-sublevel"
	key "github.com/daotl/go-sublevel/key"
	"github.com/daotl/go-sublevel/query"
)

// Store implements sublevel.Store and calls errfunc before every operation
// with the operation name. A non-nil error fails the operation without
// reaching the child store.
type Store struct {
	child   sublevel.Store
	errfunc func(string) error
}

var _ sublevel.Store = (*Store)(nil)

// NewFailstore returns a new store with the given error function.
// The error function will be called with different strings depending
// on the store operation.
//
// The following is a list of operation names:
//   put
//   get
//   delete
//   write
//   iterate
//   iterate.next
//   close
func NewFailstore(c sublevel.Store, efunc func(string) error) *Store {
	return &Store{
		child:   c,
		errfunc: efunc,
	}
}

func (s *Store) Put(ctx context.Context, k key.Key, value []byte, opts sublevel.Options) error {
	if err := s.errfunc("put"); err != nil {
		return err
	}
	return s.child.Put(ctx, k, value, opts)
}

func (s *Store) Get(ctx context.Context, k key.Key, opts sublevel.Options) ([]byte, error) {
	if err := s.errfunc("get"); err != nil {
		return nil, err
	}
	return s.child.Get(ctx, k, opts)
}

func (s *Store) Delete(ctx context.Context, k key.Key, opts sublevel.Options) error {
	if err := s.errfunc("delete"); err != nil {
		return err
	}
	return s.child.Delete(ctx, k, opts)
}

func (s *Store) Write(ctx context.Context, ops []sublevel.Op, opts sublevel.Options) error {
	if err := s.errfunc("write"); err != nil {
		return err
	}
	return s.child.Write(ctx, ops, opts)
}

// Iterate fails up front on "iterate" and yields an error result on
// "iterate.next".
func (s *Store) Iterate(ctx context.Context, r query.Range, reverse bool, opts sublevel.Options) (query.Iterator, error) {
	if err := s.errfunc("iterate"); err != nil {
		return query.Iterator{}, err
	}
	it, err := s.child.Iterate(ctx, r, reverse, opts)
	if err != nil {
		return query.Iterator{}, err
	}
	next := it.Next
	it.Next = func() (query.Result, bool) {
		if err := s.errfunc("iterate.next"); err != nil {
			return query.Result{Error: err}, true
		}
		return next()
	}
	return it, nil
}

func (s *Store) Close() error {
	if err := s.errfunc("close"); err != nil {
		return err
	}
	return s.child.Close()
}
