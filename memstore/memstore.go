// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

// Package memstore provides an in-memory ordered sublevel.Store backed by a
// copy-on-write B-tree.
package memstore

import (
	"context"
	"sync"

	"github.com/google/btree"

	sublevel "github.com/daotl/go-sublevel"
	key "github.com/daotl/go-sublevel/key"
	"github.com/daotl/go-sublevel/query"
)

const degree = 32

type item struct {
	key   key.Key
	value []byte
}

func itemLess(a, b item) bool {
	return a.key.Less(b.key)
}

// Store is an in-memory sublevel.Store. Scans iterate over a snapshot taken
// when the scan starts, so concurrent writes never affect a running scan.
type Store struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[item]
}

var _ sublevel.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{tree: btree.NewG[item](degree, itemLess)}
}

// Len returns the number of keys in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

func (s *Store) Put(ctx context.Context, k key.Key, value []byte, opts sublevel.Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.ReplaceOrInsert(item{key: k.Clone(), value: copyBytes(value)})
	return nil
}

func (s *Store) Get(ctx context.Context, k key.Key, opts sublevel.Options) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.tree.Get(item{key: k})
	if !ok {
		return nil, sublevel.ErrNotFound
	}
	return copyBytes(it.value), nil
}

func (s *Store) Delete(ctx context.Context, k key.Key, opts sublevel.Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.Delete(item{key: k})
	return nil
}

// Write applies ops under one lock, so readers see all of them or none.
func (s *Store) Write(ctx context.Context, ops []sublevel.Op, opts sublevel.Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range ops {
		switch op.Type {
		case sublevel.OpPut:
			s.tree.ReplaceOrInsert(item{key: op.Key.Clone(), value: copyBytes(op.Value)})
		case sublevel.OpDel:
			s.tree.Delete(item{key: op.Key})
		}
	}
	return nil
}

func (s *Store) Iterate(ctx context.Context, r query.Range, reverse bool, opts sublevel.Options) (query.Iterator, error) {
	s.mu.Lock()
	snap := s.tree.Clone()
	s.mu.Unlock()

	c := &cursor{tree: snap, rng: r, reverse: reverse}
	return query.Iterator{
		Next: c.next,
		Close: func() error {
			c.tree = nil
			return nil
		},
	}, nil
}

func (s *Store) Close() error {
	return nil
}

// cursor walks a snapshot one item at a time, re-seeking from the last key
// returned.
type cursor struct {
	tree    *btree.BTreeG[item]
	rng     query.Range
	reverse bool
	started bool
	last    key.Key
}

func (c *cursor) next() (query.Result, bool) {
	if c.tree == nil {
		return query.Result{}, false
	}

	var (
		found bool
		cur   item
	)
	take := func(it item) bool {
		if c.started && it.key.Equal(c.last) {
			return true
		}
		cur, found = it, true
		return false
	}

	switch {
	case !c.reverse && !c.started:
		c.tree.AscendGreaterOrEqual(item{key: c.rng.Start}, take)
	case !c.reverse:
		c.tree.AscendGreaterOrEqual(item{key: c.last}, take)
	case !c.started && len(c.rng.End) == 0:
		c.tree.Descend(take)
	case !c.started:
		c.tree.DescendLessOrEqual(item{key: c.rng.End}, take)
	default:
		c.tree.DescendLessOrEqual(item{key: c.last}, take)
	}
	c.started = true

	if !found || !c.rng.Contains(cur.key) {
		c.tree = nil
		return query.Result{}, false
	}
	c.last = cur.key
	return query.Result{Entry: query.Entry{
		Key:   cur.key.Clone(),
		Value: copyBytes(cur.value),
		Size:  len(cur.value),
	}}, true
}

func copyBytes(src []byte) []byte {
	if src == nil {
		return nil
	}
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}
