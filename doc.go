// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

// Package sublevel splits one ordered key-value store into hierarchical,
// independently addressable key spaces ("sublevels").
//
// Wrap a Store to get the root Database, then derive sublevels from it. Every
// sublevel owns a byte prefix composed from its ancestors' prefixes, and
// transparently prefixes keys on the way in and strips them on the way out:
//
//  import (
//    "context"
//
//    sublevel "github.com/daotl/go-sublevel"
//    key "github.com/daotl/go-sublevel/key"
//    "github.com/daotl/go-sublevel/memstore"
//  )
//
//  func main() {
//    ctx := context.Background()
//    db := sublevel.Wrap(memstore.New(), nil)
//    items, _ := sublevel.New(db, "items", nil)
//    posts, _ := items.Sublevel("posts", nil)
//
//    posts.Put(ctx, key.FromString("foo"), []byte("bar"), nil)
//    v, _ := posts.Get(ctx, key.FromString("foo"), nil) // v == "bar"
//
//    // and, in the underlying store:
//    v2, _ := db.Get(ctx, key.FromString("\x00items/\x00posts/\x01foo"), nil) // v2 == "bar"
//  }
//
// Key layout: a path component is encoded as 0x00 + name + '/', a sublevel's
// prefix is the concatenation of the components from the root down, and a
// user key k is stored as prefix + 0x01 + k. Since 0x00 sorts before 0x01,
// the keys of nested sublevels never interleave with a sublevel's own keys.
package sublevel
