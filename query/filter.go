// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package query

import (
	"bytes"
	"fmt"

	key "github.com/daotl/go-sublevel/key"
)

// Filter is an object that tests result entries.
type Filter interface {
	// Filter returns whether an entry passes the filter
	Filter(e Entry) bool
}

// Op is a comparison operator
type Op string

var (
	Equal              = Op("==")
	NotEqual           = Op("!=")
	GreaterThan        = Op(">")
	GreaterThanOrEqual = Op(">=")
	LessThan           = Op("<")
	LessThanOrEqual    = Op("<=")
)

func compare(op Op, cmp int) bool {
	switch op {
	case Equal:
		return cmp == 0
	case NotEqual:
		return cmp != 0
	case LessThan:
		return cmp < 0
	case LessThanOrEqual:
		return cmp <= 0
	case GreaterThan:
		return cmp > 0
	case GreaterThanOrEqual:
		return cmp >= 0
	default:
		panic(fmt.Errorf("unknown operation: %s", op))
	}
}

// FilterValueCompare compares entry values byte-wise against Value.
type FilterValueCompare struct {
	Op    Op
	Value []byte
}

func (f FilterValueCompare) Filter(e Entry) bool {
	return compare(f.Op, bytes.Compare(e.Value, f.Value))
}

func (f FilterValueCompare) String() string {
	return fmt.Sprintf("VALUE %s %q", f.Op, string(f.Value))
}

// FilterKeyCompare compares entry keys against Key.
type FilterKeyCompare struct {
	Op  Op
	Key key.Key
}

func (f FilterKeyCompare) Filter(e Entry) bool {
	return compare(f.Op, e.Key.Compare(f.Key))
}

func (f FilterKeyCompare) String() string {
	return fmt.Sprintf("KEY %s %q", f.Op, f.Key)
}

// FilterKeyPrefix passes entries whose key starts with Prefix, the prefix
// itself excluded.
type FilterKeyPrefix struct {
	Prefix key.Key
}

func (f FilterKeyPrefix) Filter(e Entry) bool {
	return f.Prefix.IsAncestorOf(e.Key)
}

func (f FilterKeyPrefix) String() string {
	return fmt.Sprintf("PREFIX(%q)", f.Prefix)
}

// FilterKeyRange passes entries whose key lies within Range.
type FilterKeyRange struct {
	Range Range
}

func (f FilterKeyRange) Filter(e Entry) bool {
	return f.Range.Contains(e.Key)
}

func (f FilterKeyRange) String() string {
	return fmt.Sprintf("RANGE%s", f.Range)
}
