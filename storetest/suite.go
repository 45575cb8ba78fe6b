// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

// Package storetest is a conformance suite for sublevel.Store adapters.
package storetest

import (
	"context"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	sublevel "github.com/daotl/go-sublevel"
	key "github.com/daotl/go-sublevel/key"
	"github.com/daotl/go-sublevel/query"
)

// Factory returns a fresh, empty store. It should register its own cleanup
// with t.Cleanup.
type Factory func(t *testing.T) sublevel.Store

// BasicSubtests is a list of all basic tests.
var BasicSubtests = []func(t *testing.T, s sublevel.Store){
	SubtestBasicPutGet,
	SubtestNotFounds,
	SubtestBinaryKeys,
	SubtestWriteAtomicOrder,
	SubtestIterateOrder,
	SubtestIterateBounds,
	SubtestIterateCopies,
	SubtestSublevels,
}

var bg = context.Background()

func getFunctionName(i interface{}) string {
	return runtime.FuncForPC(reflect.ValueOf(i).Pointer()).Name()
}

// SubtestAll runs all the basic subtests, each against a fresh store.
func SubtestAll(t *testing.T, newStore Factory) {
	for _, f := range BasicSubtests {
		name := getFunctionName(f)
		name = name[strings.LastIndex(name, ".")+1:]
		t.Run(name, func(t *testing.T) {
			f(t, newStore(t))
		})
	}
}

func put(t *testing.T, s sublevel.Store, kvs ...string) {
	t.Helper()
	for i := 0; i+1 < len(kvs); i += 2 {
		require.NoError(t, s.Put(bg, key.FromString(kvs[i]), []byte(kvs[i+1]), sublevel.Options{}))
	}
}

func scan(t *testing.T, s sublevel.Store, r query.Range, reverse bool) []string {
	t.Helper()
	it, err := s.Iterate(bg, r, reverse, sublevel.Options{})
	require.NoError(t, err)
	es, err := query.ResultsFromIterator(query.Query{Range: r, Reverse: reverse}, it).Rest()
	require.NoError(t, err)
	return key.KeySlice(query.EntryKeys(es)).Strings()
}

func rng(start, end string) query.Range {
	var r query.Range
	if start != "" {
		r.Start = key.FromString(start)
	}
	if end != "" {
		r.End = key.FromString(end)
	}
	return r
}

func SubtestBasicPutGet(t *testing.T, s sublevel.Store) {
	k := key.FromString("foo")
	require.NoError(t, s.Put(bg, k, []byte("bar"), sublevel.Options{}))

	v, err := s.Get(bg, k, sublevel.Options{})
	require.NoError(t, err)
	require.Equal(t, "bar", string(v))

	require.NoError(t, s.Put(bg, k, []byte("baz"), sublevel.Options{Sync: sublevel.Bool(true)}))
	v, err = s.Get(bg, k, sublevel.Options{FillCache: sublevel.Bool(false)})
	require.NoError(t, err)
	require.Equal(t, "baz", string(v))

	require.NoError(t, s.Delete(bg, k, sublevel.Options{}))
	_, err = s.Get(bg, k, sublevel.Options{})
	require.Equal(t, sublevel.ErrNotFound, err)
}

func SubtestNotFounds(t *testing.T, s sublevel.Store) {
	k := key.FromString("notreal")

	_, err := s.Get(bg, k, sublevel.Options{})
	require.Equal(t, sublevel.ErrNotFound, err)

	// deleting an absent key is not an error
	require.NoError(t, s.Delete(bg, k, sublevel.Options{}))

	require.Empty(t, scan(t, s, query.Range{}, false))
}

func SubtestBinaryKeys(t *testing.T, s sublevel.Store) {
	keys := []string{"\x00a/\x01k", "\x00a/\x00b/\x01k", "\x00a/\x01\xff", "\x00ab/\x01k", "\xff\xff"}
	for _, k := range keys {
		put(t, s, k, k)
	}
	for _, k := range keys {
		v, err := s.Get(bg, key.FromString(k), sublevel.Options{})
		require.NoError(t, err)
		require.Equal(t, k, string(v))
	}
	require.Equal(t, []string{
		"\x00a/\x00b/\x01k",
		"\x00a/\x01\xff",
		"\x00a/\x01k",
		"\x00ab/\x01k",
		"\xff\xff",
	}, scan(t, s, query.Range{}, false))
}

func SubtestWriteAtomicOrder(t *testing.T, s sublevel.Store) {
	put(t, s, "keep", "1", "gone", "1")
	require.NoError(t, s.Write(bg, []sublevel.Op{
		{Type: sublevel.OpPut, Key: key.FromString("a"), Value: []byte("1")},
		{Type: sublevel.OpPut, Key: key.FromString("a"), Value: []byte("2")},
		{Type: sublevel.OpPut, Key: key.FromString("b"), Value: []byte("1")},
		{Type: sublevel.OpDel, Key: key.FromString("b")},
		{Type: sublevel.OpDel, Key: key.FromString("gone")},
	}, sublevel.Options{}))

	v, err := s.Get(bg, key.FromString("a"), sublevel.Options{})
	require.NoError(t, err)
	require.Equal(t, "2", string(v))
	require.Equal(t, []string{"a", "keep"}, scan(t, s, query.Range{}, false))

	require.NoError(t, s.Write(bg, nil, sublevel.Options{}))
}

func SubtestIterateOrder(t *testing.T, s sublevel.Store) {
	put(t, s, "b", "2", "a", "1", "d", "4", "c", "3")

	require.Equal(t, []string{"a", "b", "c", "d"}, scan(t, s, query.Range{}, false))
	require.Equal(t, []string{"d", "c", "b", "a"}, scan(t, s, query.Range{}, true))

	it, err := s.Iterate(bg, query.Range{}, false, sublevel.Options{})
	require.NoError(t, err)
	es, err := query.ResultsFromIterator(query.Query{}, it).Rest()
	require.NoError(t, err)
	require.Len(t, es, 4)
	require.Equal(t, "1", string(es[0].Value))
	require.Equal(t, 1, es[0].Size)
}

func SubtestIterateBounds(t *testing.T, s sublevel.Store) {
	put(t, s, "a", "", "b", "", "ba", "", "c", "", "d", "")

	cases := []struct {
		start, end string
		reverse    bool
		expect     []string
	}{
		{"b", "c", false, []string{"b", "ba", "c"}},
		{"b", "c", true, []string{"c", "ba", "b"}},
		{"b", "", false, []string{"b", "ba", "c", "d"}},
		{"", "b", false, []string{"a", "b"}},
		{"", "b", true, []string{"b", "a"}},
		{"bb", "", true, []string{"d", "c"}},
		{"a0", "b0", false, []string{"b", "ba"}},
		{"x", "z", false, nil},
		{"x", "z", true, nil},
	}
	for _, c := range cases {
		got := scan(t, s, rng(c.start, c.end), c.reverse)
		if len(c.expect) == 0 {
			require.Empty(t, got, "range [%q, %q] reverse=%v", c.start, c.end, c.reverse)
			continue
		}
		require.Equal(t, c.expect, got, "range [%q, %q] reverse=%v", c.start, c.end, c.reverse)
	}
}

func SubtestIterateCopies(t *testing.T, s sublevel.Store) {
	put(t, s, "a", "1", "b", "2")

	it, err := s.Iterate(bg, query.Range{}, false, sublevel.Options{})
	require.NoError(t, err)
	res := query.ResultsFromIterator(query.Query{}, it)
	r1, ok := res.NextSync()
	require.True(t, ok)
	r1.Key[0] = 'z'
	r1.Value[0] = 'z'
	require.NoError(t, res.Close())

	v, err := s.Get(bg, key.FromString("a"), sublevel.Options{})
	require.NoError(t, err)
	require.Equal(t, "1", string(v))
	require.Equal(t, []string{"a", "b"}, scan(t, s, query.Range{}, false))
}

// SubtestSublevels runs the namespace scenarios on top of the store.
func SubtestSublevels(t *testing.T, s sublevel.Store) {
	db := sublevel.Wrap(s, nil)
	items, err := sublevel.New(db, "items", nil)
	require.NoError(t, err)
	users, err := db.Sublevel("users", nil)
	require.NoError(t, err)
	posts, err := items.Sublevel("posts", nil)
	require.NoError(t, err)

	require.NoError(t, items.Batch(bg, []sublevel.Op{
		{Type: sublevel.OpPut, Key: key.FromString("foo"), Value: []byte("bar")},
		{Type: sublevel.OpPut, Key: key.FromString("foz"), Value: []byte("baz"), Prefix: users},
		{Type: sublevel.OpPut, Key: key.FromString("delete"), Value: []byte("me")},
		{Type: sublevel.OpDel, Key: key.FromString("delete")},
	}, nil))
	require.NoError(t, posts.Put(bg, key.FromString("foo"), []byte("post"), nil))
	require.NoError(t, items.Put(bg, key.FromString("\xff"), []byte("high"), nil))

	read := func(db sublevel.Database, reverse bool) []string {
		res, err := db.ReadStream(bg, &sublevel.StreamOptions{Reverse: reverse})
		require.NoError(t, err)
		es, err := res.Rest()
		require.NoError(t, err)
		var kvs []string
		for _, e := range es {
			kvs = append(kvs, e.Key.String()+"="+string(e.Value))
		}
		return kvs
	}

	require.Equal(t, []string{"foo=bar", "\xff=high"}, read(items, false))
	require.Equal(t, []string{"\xff=high", "foo=bar"}, read(items, true))
	require.Equal(t, []string{"foz=baz"}, read(users, false))
	require.Equal(t, []string{"foo=post"}, read(posts, false))

	v, err := posts.Get(bg, key.FromString("foo"), nil)
	require.NoError(t, err)
	require.Equal(t, "post", string(v))
}
