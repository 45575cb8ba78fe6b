// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package sublevel

import (
	"strings"

	key "github.com/daotl/go-sublevel/key"
	"github.com/daotl/go-sublevel/query"
)

// Reserved bytes of the key layout. They are fixed at compile time.
const (
	// NamespaceMarker starts every path component of a prefix.
	NamespaceMarker byte = 0x00
	// KeyBoundary separates a prefix from the user key.
	KeyBoundary byte = 0x01
	// PathSeparator terminates every path component of a prefix.
	PathSeparator byte = '/'
	// HighValue is the default upper bound of a range.
	HighValue byte = 0xff
)

var reservedPathBytes = string([]byte{NamespaceMarker, KeyBoundary})

// ValidatePath returns ErrInvalidPath if path contains a reserved byte.
func ValidatePath(path string) error {
	if strings.ContainsAny(path, reservedPathBytes) {
		return ErrInvalidPath
	}
	return nil
}

// composePrefix appends the path component for path to parent.
func composePrefix(parent key.Key, path string) key.Key {
	seg := make(key.Key, 0, len(path)+2)
	seg = append(seg, NamespaceMarker)
	seg = append(seg, path...)
	seg = append(seg, PathSeparator)
	return parent.Child(seg)
}

// Prefixer maps namespace-relative keys to store-level keys.
type Prefixer interface {
	PrefixKey(k key.Key) key.Key
}

// rangeTranslator holds the key and range rewriting of one prefix.
type rangeTranslator struct {
	prefix key.Key
}

// PrefixKey returns prefix + KeyBoundary + k.
func (t rangeTranslator) PrefixKey(k key.Key) key.Key {
	pk := make([]byte, len(t.prefix)+1+len(k))
	n := copy(pk, t.prefix)
	pk[n] = KeyBoundary
	copy(pk[n+1:], k)
	return pk
}

// PrefixRange translates a namespace-relative range into store-level bounds.
// A missing start defaults to the lowest key of the namespace, a missing end
// to prefix + KeyBoundary + HighValue. Store range normalisation must be
// applied to the result, not to the input.
func (t rangeTranslator) PrefixRange(r query.Range) query.Range {
	start, end := r.Start, r.End
	if len(start) == 0 {
		start = key.Empty
	}
	if len(end) == 0 {
		end = key.Key{HighValue}
	}
	return query.Range{
		Start: t.PrefixKey(start),
		End:   t.PrefixKey(end),
	}
}

// StripPrefix removes prefix + KeyBoundary from a store-level key.
//
// Warning: will panic if the prefix is not found. This is to avoid insidious
// data inconsistency errors.
func (t rangeTranslator) StripPrefix(k key.Key) key.Key {
	rest := k.TrimPrefix(t.prefix)
	if len(rest) != len(k)-len(t.prefix) || len(rest) == 0 || rest[0] != KeyBoundary {
		panic("expected prefix not found")
	}
	return rest[1:]
}

func (t rangeTranslator) stripEntry(e query.Entry) query.Entry {
	e.Key = t.StripPrefix(e.Key)
	return e
}
