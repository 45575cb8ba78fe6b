// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package sublevel

import "github.com/daotl/go-sublevel/query"

// Options configures store operations. A nil field is unset and inherits the
// value from the level above: per-call options over sublevel options over the
// parent's options.
type Options struct {
	// Sync makes writes fsync before returning, for stores that distinguish.
	Sync *bool
	// FillCache makes reads populate the store's block cache, for stores that
	// have one.
	FillCache *bool
}

// Bool returns a pointer to b, for filling Options fields.
func Bool(b bool) *bool {
	return &b
}

// Merge returns a copy of o where every field set in override wins.
func (o Options) Merge(override *Options) Options {
	if override == nil {
		return o
	}
	if override.Sync != nil {
		o.Sync = override.Sync
	}
	if override.FillCache != nil {
		o.FillCache = override.FillCache
	}
	return o
}

// SyncWrites reports whether writes should be synced, def when unset.
func (o Options) SyncWrites(def bool) bool {
	if o.Sync == nil {
		return def
	}
	return *o.Sync
}

// FillsCache reports whether reads should fill the cache, def when unset.
func (o Options) FillsCache(def bool) bool {
	if o.FillCache == nil {
		return def
	}
	return *o.FillCache
}

// StreamOptions configures ReadStream, KeyStream and ValueStream.
type StreamOptions struct {
	// Range bounds the scan, both sides inclusive and optional. Keys are
	// relative to the Database the stream is created on.
	Range query.Range
	// Reverse iterates from the upper bound down.
	Reverse bool
	// Limit caps the number of records, 0 means no limit.
	Limit int
	// Filters drop records not passing every filter. They see keys relative
	// to the Database the stream is created on.
	Filters []query.Filter
	// Options are per-call store options.
	Options *Options
}
