// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package sublevel_test

import (
	"errors"
	"fmt"

	. "gopkg.in/check.v1"

	sublevel "github.com/daotl/go-sublevel"
	"github.com/daotl/go-sublevel/failstore"
)

func (s *SublevelSuite) TestWriteStream(c *C) {
	s.db.WriteStreamBatchSize = 2
	items := s.sub(c, s.db, "items")
	users := s.sub(c, s.db, "users")
	c.Assert(items.Put(bg, k("gone"), []byte("x"), nil), IsNil)

	ws, err := items.WriteStream(bg, nil)
	c.Assert(err, IsNil)

	c.Assert(ws.Write(bg, sublevel.Op{Key: k("a"), Value: []byte("1")}), IsNil)
	c.Check(s.store.Len(), Equals, 1)
	c.Assert(ws.Write(bg, sublevel.Op{Type: sublevel.OpPut, Key: k("b"), Value: []byte("2")}), IsNil)
	// a full buffer is committed
	c.Check(s.store.Len(), Equals, 3)

	c.Assert(ws.Write(bg, sublevel.Op{Type: sublevel.OpDel, Key: k("gone")}), IsNil)
	c.Assert(ws.Write(bg, sublevel.Op{Key: k("u"), Value: []byte("3"), Prefix: users}), IsNil)
	c.Assert(ws.Write(bg, sublevel.Op{Key: k("c"), Value: []byte("4")}), IsNil)
	c.Assert(ws.Close(bg), IsNil)

	c.Check(collect(c)(items.ReadStream(bg, nil)), DeepEquals, []string{"a=1", "b=2", "c=4"})
	c.Check(collect(c)(users.ReadStream(bg, nil)), DeepEquals, []string{"u=3"})

	c.Check(ws.Write(bg, sublevel.Op{Key: k("d")}), Equals, sublevel.ErrClosed)
	c.Check(ws.Close(bg), Equals, sublevel.ErrClosed)
}

func (s *SublevelSuite) TestWriteStreamInvalidOp(c *C) {
	ws, err := s.db.WriteStream(bg, nil)
	c.Assert(err, IsNil)
	err = ws.Write(bg, sublevel.Op{Type: "merge", Key: k("a")})
	c.Check(errors.Is(err, sublevel.ErrInvalidOp), Equals, true)
	c.Assert(ws.Close(bg), IsNil)
	c.Check(s.store.Len(), Equals, 0)
}

func (s *SublevelSuite) TestWriteStreamStickyError(c *C) {
	failErr := fmt.Errorf("disk on fire")
	fs := failstore.NewFailstore(s.store, func(op string) error {
		if op == "write" {
			return failErr
		}
		return nil
	})
	db := sublevel.Wrap(fs, nil)
	db.WriteStreamBatchSize = 1
	items, err := db.Sublevel("items", nil)
	c.Assert(err, IsNil)

	ws, err := items.WriteStream(bg, nil)
	c.Assert(err, IsNil)
	c.Check(ws.Write(bg, sublevel.Op{Key: k("a")}), Equals, failErr)
	c.Check(ws.Write(bg, sublevel.Op{Key: k("b")}), Equals, failErr)
	c.Check(ws.Close(bg), Equals, failErr)
	c.Check(s.store.Len(), Equals, 0)
}

func (s *SublevelSuite) TestStoreErrorsPassThrough(c *C) {
	failErr := fmt.Errorf("store unavailable")
	var failing string
	fs := failstore.NewFailstore(s.store, func(op string) error {
		if op == failing {
			return failErr
		}
		return nil
	})
	items, err := sublevel.Wrap(fs, nil).Sublevel("items", nil)
	c.Assert(err, IsNil)
	c.Assert(items.Put(bg, k("a"), []byte("1"), nil), IsNil)

	failing = "put"
	c.Check(items.Put(bg, k("b"), nil, nil), Equals, failErr)
	failing = "get"
	_, err = items.Get(bg, k("a"), nil)
	c.Check(err, Equals, failErr)
	_, err = items.Has(bg, k("a"), nil)
	c.Check(err, Equals, failErr)
	failing = "delete"
	c.Check(items.Delete(bg, k("a"), nil), Equals, failErr)
	failing = "write"
	c.Check(items.Batch(bg, []sublevel.Op{{Type: sublevel.OpDel, Key: k("a")}}, nil), Equals, failErr)
	failing = "iterate"
	_, err = items.ReadStream(bg, nil)
	c.Check(err, Equals, failErr)

	failing = "iterate.next"
	res, err := items.KeyStream(bg, nil)
	c.Assert(err, IsNil)
	_, err = res.Rest()
	c.Check(err, Equals, failErr)
}

func (s *SublevelSuite) TestWriteStreamCopiesRecords(c *C) {
	items := s.sub(c, s.db, "items")
	ws, err := items.WriteStream(bg, nil)
	c.Assert(err, IsNil)

	kb := []byte("a")
	vb := []byte("a")
	for _, b := range []byte("abc") {
		kb[0], vb[0] = b, b
		c.Assert(ws.Write(bg, sublevel.Op{Key: kb, Value: vb}), IsNil)
	}
	// nothing committed yet, the buffer holds its own copies
	c.Check(s.store.Len(), Equals, 0)
	c.Assert(ws.Close(bg), IsNil)

	c.Check(collect(c)(items.ReadStream(bg, nil)), DeepEquals, []string{"a=a", "b=b", "c=c"})
}
