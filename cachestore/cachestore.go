// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

// Package cachestore provides a sublevel.Store wrapper keeping recently read
// values in an LRU cache.
package cachestore

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	sublevel "github.com/daotl/go-sublevel"
	key "github.com/daotl/go-sublevel/key"
)

// Store serves Get from an LRU cache filled on misses. Writes go to the
// wrapped store first and evict the touched keys afterwards. Scans always go
// to the wrapped store.
//
// Reads with Options.FillCache set to false do not populate the cache.
type Store struct {
	sublevel.Store

	// mu orders cache fills against evictions, so a fill never re-inserts a
	// value a concurrent write has replaced.
	mu    sync.RWMutex
	cache *lru.Cache[string, []byte]
}

var _ sublevel.Store = (*Store)(nil)

// New wraps s with a cache holding up to size values.
func New(s sublevel.Store, size int) (*Store, error) {
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &Store{Store: s, cache: cache}, nil
}

// Len returns the number of cached values.
func (s *Store) Len() int {
	return s.cache.Len()
}

func (s *Store) Get(ctx context.Context, k key.Key, opts sublevel.Options) ([]byte, error) {
	if v, ok := s.cache.Get(string(k)); ok {
		return copyBytes(v), nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	v, err := s.Store.Get(ctx, k, opts)
	if err != nil {
		return nil, err
	}
	if opts.FillsCache(true) {
		s.cache.Add(string(k), copyBytes(v))
	}
	return v, nil
}

func (s *Store) Put(ctx context.Context, k key.Key, value []byte, opts sublevel.Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.cache.Remove(string(k))
	return s.Store.Put(ctx, k, value, opts)
}

func (s *Store) Delete(ctx context.Context, k key.Key, opts sublevel.Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.cache.Remove(string(k))
	return s.Store.Delete(ctx, k, opts)
}

// Write evicts every key touched by ops, whether the write succeeded or not.
func (s *Store) Write(ctx context.Context, ops []sublevel.Op, opts sublevel.Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		for _, op := range ops {
			s.cache.Remove(string(op.Key))
		}
	}()
	return s.Store.Write(ctx, ops, opts)
}

// Close purges the cache and closes the wrapped store.
func (s *Store) Close() error {
	s.cache.Purge()
	return s.Store.Close()
}

func copyBytes(src []byte) []byte {
	if src == nil {
		return nil
	}
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}
