// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package bbolt

import (
	key "github.com/daotl/go-sublevel/key"
	"github.com/daotl/go-sublevel/query"
)

func copyBytes(src []byte) []byte {
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}

func toEntry(k []byte, v []byte) query.Entry {
	return query.Entry{
		Key:   key.New(copyBytes(k)),
		Value: copyBytes(v),
		Size:  len(v),
	}
}
