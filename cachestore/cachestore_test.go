// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package cachestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sublevel "github.com/daotl/go-sublevel"
	"github.com/daotl/go-sublevel/failstore"
	key "github.com/daotl/go-sublevel/key"
	"github.com/daotl/go-sublevel/memstore"
	"github.com/daotl/go-sublevel/storetest"
)

var bg = context.Background()

func TestSuite(t *testing.T) {
	storetest.SubtestAll(t, func(t *testing.T) sublevel.Store {
		s, err := New(memstore.New(), 16)
		require.NoError(t, err)
		return s
	})
}

func TestGetServedFromCache(t *testing.T) {
	var gets int
	fs := failstore.NewFailstore(memstore.New(), func(op string) error {
		if op == "get" {
			gets++
		}
		return nil
	})
	s, err := New(fs, 2)
	require.NoError(t, err)

	k := key.FromString("a")
	require.NoError(t, s.Put(bg, k, []byte("1"), sublevel.Options{}))

	for i := 0; i < 3; i++ {
		v, err := s.Get(bg, k, sublevel.Options{})
		require.NoError(t, err)
		assert.Equal(t, "1", string(v))
	}
	assert.Equal(t, 1, gets)

	// returned values are copies
	v, _ := s.Get(bg, k, sublevel.Options{})
	v[0] = 'x'
	v, _ = s.Get(bg, k, sublevel.Options{})
	assert.Equal(t, "1", string(v))

	// writes evict
	require.NoError(t, s.Put(bg, k, []byte("2"), sublevel.Options{}))
	assert.Equal(t, 0, s.Len())
	v, err = s.Get(bg, k, sublevel.Options{})
	require.NoError(t, err)
	assert.Equal(t, "2", string(v))

	require.NoError(t, s.Write(bg, []sublevel.Op{{Type: sublevel.OpDel, Key: k}}, sublevel.Options{}))
	_, err = s.Get(bg, k, sublevel.Options{})
	assert.Equal(t, sublevel.ErrNotFound, err)
	assert.Equal(t, 0, s.Len())
}

func TestFillCacheOption(t *testing.T) {
	s, err := New(memstore.New(), 8)
	require.NoError(t, err)
	db := sublevel.Wrap(s, &sublevel.Options{FillCache: sublevel.Bool(false)})
	items, err := db.Sublevel("items", nil)
	require.NoError(t, err)

	require.NoError(t, items.Put(bg, key.FromString("a"), []byte("1"), nil))
	_, err = items.Get(bg, key.FromString("a"), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	_, err = items.Get(bg, key.FromString("a"), &sublevel.Options{FillCache: sublevel.Bool(true)})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Close())
	assert.Equal(t, 0, s.Len())
}

func TestInvalidSize(t *testing.T) {
	_, err := New(memstore.New(), 0)
	assert.Error(t, err)
}
