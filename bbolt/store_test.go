// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package bbolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	sublevel "github.com/daotl/go-sublevel"
	key "github.com/daotl/go-sublevel/key"
	"github.com/daotl/go-sublevel/query"
	"github.com/daotl/go-sublevel/storetest"
)

var bg = context.Background()

func newStore(t *testing.T) *Store {
	s, err := NewStore(filepath.Join(t.TempDir(), "bolt"), nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close() // nolint:errcheck
	})
	return s
}

func Test_NewStore(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"Success", filepath.Join(t.TempDir(), "bolt"), false},
		{"Fail", filepath.Join(t.TempDir(), "missing", "dir", "bolt"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStore(tt.path, nil, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewStore() err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				require.NoError(t, s.Close())
			}
		})
	}
}

func TestSuite(t *testing.T) {
	storetest.SubtestAll(t, func(t *testing.T) sublevel.Store {
		return newStore(t)
	})
}

func TestEmptyValue(t *testing.T) {
	s := newStore(t)
	k := key.FromString("empty")
	require.NoError(t, s.Put(bg, k, []byte{}, sublevel.Options{}))

	v, err := s.Get(bg, k, sublevel.Options{})
	require.NoError(t, err)
	assert.Len(t, v, 0)

	_, err = s.Get(bg, key.FromString("empt"), sublevel.Options{})
	assert.Equal(t, sublevel.ErrNotFound, err)
}

func TestCustomBucket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bolt")
	s, err := NewStore(path, &bbolt.Options{NoSync: true}, []byte("other"))
	require.NoError(t, err)
	require.NoError(t, s.Put(bg, key.FromString("a"), []byte("1"), sublevel.Options{}))

	err = s.db.View(func(tx *bbolt.Tx) error {
		assert.Nil(t, tx.Bucket(defaultBucket))
		assert.Equal(t, []byte("1"), tx.Bucket([]byte("other")).Get([]byte("a")))
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Get(bg, key.FromString("a"), sublevel.Options{})
	assert.Equal(t, sublevel.ErrClosed, err)
}

func TestIterateReverseSeekPastEnd(t *testing.T) {
	s := newStore(t)
	for _, k := range []string{"a", "c", "e"} {
		require.NoError(t, s.Put(bg, key.FromString(k), nil, sublevel.Options{}))
	}

	cases := []struct {
		end    string
		expect []string
	}{
		{"z", []string{"e", "c", "a"}},
		{"d", []string{"c", "a"}},
		{"c", []string{"c", "a"}},
		{"0", nil},
	}
	for _, c := range cases {
		it, err := s.Iterate(bg, query.Range{End: key.FromString(c.end)}, true, sublevel.Options{})
		require.NoError(t, err)
		es, err := query.ResultsFromIterator(query.Query{}, it).Rest()
		require.NoError(t, err)
		got := key.KeySlice(query.EntryKeys(es)).Strings()
		if len(c.expect) == 0 {
			assert.Empty(t, got, "end %q", c.end)
		} else {
			assert.Equal(t, c.expect, got, "end %q", c.end)
		}
	}
}

func TestGrowAfterIteratorClose(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Put(bg, key.FromString("a"), []byte("1"), sublevel.Options{}))

	it, err := s.Iterate(bg, query.Range{}, false, sublevel.Options{})
	require.NoError(t, err)
	res, ok := it.Next()
	require.True(t, ok)
	require.NoError(t, res.Error)
	require.NoError(t, it.Close())

	// enough data to make bbolt grow and remap the file
	val := make([]byte, 4096)
	ops := make([]sublevel.Op, 0, 1024)
	for i := 0; i < cap(ops); i++ {
		ops = append(ops, sublevel.Op{Type: sublevel.OpPut, Key: key.Random(), Value: val})
	}
	require.NoError(t, s.Write(bg, ops, sublevel.Options{}))
}
