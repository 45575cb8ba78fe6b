// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

// Package query describes range scans over an ordered key-value store and the
// lazy result sequences they produce.
package query

import (
	"fmt"

	key "github.com/daotl/go-sublevel/key"
)

// Range bounds a scan. Both bounds are inclusive, an empty bound is
// unbounded on that side.
type Range struct {
	Start key.Key
	End   key.Key
}

// Contains reports whether k lies within the range.
func (r Range) Contains(k key.Key) bool {
	if len(r.Start) > 0 && k.Less(r.Start) {
		return false
	}
	if len(r.End) > 0 && r.End.Less(k) {
		return false
	}
	return true
}

func (r Range) String() string {
	return fmt.Sprintf("[%q, %q]", r.Start, r.End)
}

// FixRange orders the bounds of r ascending. Stores see ascending bounds
// regardless of iteration order; Reverse is carried separately.
func FixRange(r Range) Range {
	if len(r.Start) > 0 && len(r.End) > 0 && r.End.Less(r.Start) {
		r.Start, r.End = r.End, r.Start
	}
	return r
}

/*
Query represents a scan over the key space.

	Range      bounds the scan (inclusive, either side optional)
	Reverse    iterates from the upper bound down
	KeysOnly   only return keys
	ValuesOnly only return values
	Filters    drop entries that do not pass every filter
	Limit      stop after this many results (0 means no limit)

Filters and Limit are applied after the store has produced the entries in
order, so they see exactly what the caller sees.
*/
type Query struct {
	Range      Range
	Reverse    bool
	KeysOnly   bool
	ValuesOnly bool
	Filters    []Filter
	Limit      int
}

// String returns a string representation of the Query for debugging/validation
// purposes. Do not use it for SQL queries.
func (q Query) String() string {
	s := "SELECT keys"
	if !q.KeysOnly {
		s += ",vals"
	}
	s += " RANGE " + q.Range.String()
	if q.Reverse {
		s += " REVERSE"
	}
	for i, f := range q.Filters {
		if i == 0 {
			s += " FILTER ["
		} else {
			s += ", "
		}
		s += fmt.Sprintf("%s", f)
		if i == len(q.Filters)-1 {
			s += "]"
		}
	}
	if q.Limit > 0 {
		s += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	return s
}

// Entry is a query result entry.
type Entry struct {
	Key   key.Key
	Value []byte
	// Size is the size of the value in bytes, set even when the value is not
	// returned.
	Size int
}

// Result is a special entry that includes an error, so that the client
// may be warned about internal errors. If Error is non-nil, Entry must be
// empty.
type Result struct {
	Entry

	Error error
}

// EntryKeys returns the keys of the given entries.
func EntryKeys(e []Entry) []key.Key {
	ks := make([]key.Key, len(e))
	for i, e := range e {
		ks[i] = e.Key
	}
	return ks
}
