// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	sublevel "github.com/daotl/go-sublevel"
	key "github.com/daotl/go-sublevel/key"
	"github.com/daotl/go-sublevel/query"
	"github.com/daotl/go-sublevel/storetest"
)

func TestSuite(t *testing.T) {
	storetest.SubtestAll(t, func(t *testing.T) sublevel.Store {
		return New()
	})
}

func TestScanSeesSnapshot(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, s.Put(ctx, key.FromString(k), []byte(k), sublevel.Options{}))
	}

	it, err := s.Iterate(ctx, query.Range{}, false, sublevel.Options{})
	require.NoError(t, err)
	res := query.ResultsFromIterator(query.Query{}, it)

	r, ok := res.NextSync()
	require.True(t, ok)
	require.Equal(t, "a", r.Key.String())

	require.NoError(t, s.Delete(ctx, key.FromString("b"), sublevel.Options{}))
	require.NoError(t, s.Put(ctx, key.FromString("bb"), nil, sublevel.Options{}))

	rest, err := res.Rest()
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c"}, key.KeySlice(query.EntryKeys(rest)).Strings())
	require.Equal(t, 3, s.Len())
}
