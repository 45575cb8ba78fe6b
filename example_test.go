// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package sublevel_test

import (
	"context"
	"fmt"

	sublevel "github.com/daotl/go-sublevel"
	key "github.com/daotl/go-sublevel/key"
	"github.com/daotl/go-sublevel/memstore"
)

func Example() {
	ctx := context.Background()

	db := sublevel.Wrap(memstore.New(), nil)
	items, _ := sublevel.New(db, "items", nil)
	posts, _ := items.Sublevel("posts", nil)

	k := key.FromString("foo")
	if err := posts.Put(ctx, k, []byte("bar"), nil); err != nil {
		panic(err)
	}
	fmt.Printf("posts.Put %s bar\n", k)

	v, _ := posts.Get(ctx, k, nil)
	fmt.Printf("posts.Get %s -> %s\n", k, v)

	res, _ := db.KeyStream(ctx, nil)
	es, _ := res.Rest()
	for _, e := range es {
		fmt.Printf("db key %q\n", e.Key)
	}
	// Output:
	// posts.Put foo bar
	// posts.Get foo -> bar
	// db key "\x00items/\x00posts/\x01foo"
}
