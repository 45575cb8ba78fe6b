// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

// Package key provides the Key type, an opaque byte string ordered
// lexicographically, along with some utility functions around it.
package key

import (
	"bytes"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// Empty is the zero-length key.
var Empty = Key{}

// Key is the unique identifier of a record in an ordered key-value store.
// Keys compare byte-wise, the same way the underlying stores order them.
type Key []byte

// New constructs a Key from a byte slice without copying it.
func New(b []byte) Key {
	return Key(b)
}

// FromString constructs a Key from s.
func FromString(s string) Key {
	return Key(s)
}

// String gets the string value of Key.
func (k Key) String() string {
	return string(k)
}

// Hex returns the hex encoding of Key, handy for logging binary keys.
func (k Key) Hex() string {
	return hex.EncodeToString(k)
}

// Bytes returns a copy of the underlying byte slice of Key.
func (k Key) Bytes() []byte {
	if k == nil {
		return nil
	}
	bs := make([]byte, len(k))
	copy(bs, k)
	return bs
}

// Clone returns a Key backed by its own copy of the bytes.
func (k Key) Clone() Key {
	return Key(k.Bytes())
}

// Equal checks equality of two keys.
func (k Key) Equal(k2 Key) bool {
	return bytes.Equal(k, k2)
}

// Compare returns -1, 0 or +1 as k sorts before, equal to or after k2.
func (k Key) Compare(k2 Key) int {
	return bytes.Compare(k, k2)
}

// Less checks whether this key is sorted lower than another.
func (k Key) Less(k2 Key) bool {
	return bytes.Compare(k, k2) < 0
}

// Child returns the `child` Key of this Key.
//   Key({{BYTES1}}).Child(Key({{BYTES2}}))
//   Key({{BYTES1 || BYTES2}})
// The result never aliases either operand.
func (k Key) Child(k2 Key) Key {
	kb := make([]byte, len(k)+len(k2))
	copy(kb, k)
	copy(kb[len(k):], k2)
	return kb
}

// IsAncestorOf returns whether this key is a prefix of `other` (excluding equals).
func (k Key) IsAncestorOf(other Key) bool {
	return len(other) > len(k) && bytes.HasPrefix(other, k)
}

// HasPrefix returns whether this key contains another as a prefix (including equals).
func (k Key) HasPrefix(prefix Key) bool {
	return bytes.HasPrefix(k, prefix)
}

// TrimPrefix returns a new key equals to this key without the provided leading prefix key.
// If k doesn't start with prefix, this key is returned unchanged.
func (k Key) TrimPrefix(prefix Key) Key {
	return bytes.TrimPrefix(k, prefix)
}

// Random returns a randomly (uuid) generated key.
//   Random()
//   Key("f98719ea086343f7b71f32ea9d9d521d")
func Random() Key {
	return Key(strings.Replace(uuid.New().String(), "-", "", -1))
}

// StrsToKeys converts a string slice to a Key slice.
func StrsToKeys(strs []string) []Key {
	keys := make([]Key, len(strs))
	for i, s := range strs {
		keys[i] = FromString(s)
	}
	return keys
}

// KeySlice attaches the methods of sort.Interface to []Key,
// sorting in increasing order.
type KeySlice []Key

func (p KeySlice) Len() int           { return len(p) }
func (p KeySlice) Less(i, j int) bool { return p[i].Less(p[j]) }
func (p KeySlice) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }

// Strings returns the string values of all keys in the slice.
func (p KeySlice) Strings() []string {
	strs := make([]string, len(p))
	for i, k := range p {
		strs[i] = k.String()
	}
	return strs
}
