// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package sublevel

import (
	"context"

	key "github.com/daotl/go-sublevel/key"
	"github.com/daotl/go-sublevel/query"
)

/*
Database is the operation set shared by the root adapter (DB) and every
Sublevel, so sublevels nest uniformly over either.

Keys passed to a Database are relative to it, keys it hands out are relative
to it as well. Errors of the underlying Store are passed through unchanged.
*/
type Database interface {
	Prefixer

	// Parent returns the Database this one was derived from, nil for the root.
	Parent() Database
	// Prefix returns the composed store-level prefix, empty for the root.
	Prefix() key.Key
	// Options returns the default options of this Database.
	Options() Options

	// Sublevel derives a child sublevel named name.
	Sublevel(name string, opts *Options) (*Sublevel, error)

	Put(ctx context.Context, k key.Key, value []byte, opts *Options) error
	// Get returns ErrNotFound if k is absent.
	Get(ctx context.Context, k key.Key, opts *Options) ([]byte, error)
	Has(ctx context.Context, k key.Key, opts *Options) (bool, error)
	Delete(ctx context.Context, k key.Key, opts *Options) error

	// Batch writes ops atomically and in order.
	Batch(ctx context.Context, ops []Op, opts *Options) error
	// NewBatch returns a chainable batch committed by Batch.Write.
	NewBatch(ctx context.Context) (Batch, error)

	// ReadStream scans key/value records.
	ReadStream(ctx context.Context, so *StreamOptions) (query.Results, error)
	// KeyStream scans keys only.
	KeyStream(ctx context.Context, so *StreamOptions) (query.Results, error)
	// ValueStream scans values only.
	ValueStream(ctx context.Context, so *StreamOptions) (query.Results, error)
	// WriteStream returns a stream writing records in batches.
	WriteStream(ctx context.Context, opts *Options) (WriteStream, error)
}

// OpType is the type of a batch operation.
type OpType string

const (
	OpPut OpType = "put"
	OpDel OpType = "del"
)

// Op is a single batch operation.
type Op struct {
	Type  OpType
	Key   key.Key
	Value []byte
	// Prefix, if set, keys the operation through another Database (or any
	// Prefixer) instead of the one Batch is called on. It lets one batch
	// touch several namespaces atomically. Stores never see it set.
	Prefix Prefixer
}

// Batch is a chainable batch. Put and Del queue operations, Write commits
// them atomically.
type Batch interface {
	Put(k key.Key, value []byte) Batch
	Del(k key.Key) Batch
	// Len returns the number of queued operations.
	Len() int
	// Reset drops all queued operations.
	Reset()
	Write(ctx context.Context, opts *Options) error
}

// WriteStream accepts records and writes them to the store in batches. An
// empty Op.Type is a put.
type WriteStream interface {
	Write(ctx context.Context, op Op) error
	// Close flushes buffered records. Writes after Close fail with ErrClosed.
	Close(ctx context.Context) error
}

// Store is the ordered key-value store the root adapter wraps. Keys reaching
// a Store are final store-level keys.
type Store interface {
	Put(ctx context.Context, k key.Key, value []byte, opts Options) error
	// Get returns ErrNotFound if k is absent.
	Get(ctx context.Context, k key.Key, opts Options) ([]byte, error)
	Delete(ctx context.Context, k key.Key, opts Options) error
	// Write applies ops atomically, in order.
	Write(ctx context.Context, ops []Op, opts Options) error
	// Iterate scans the keys within r (both bounds inclusive, either optional)
	// in ascending order, or descending if reverse.
	Iterate(ctx context.Context, r query.Range, reverse bool, opts Options) (query.Iterator, error)
	Close() error
}

// RangeFixer is implemented by stores with their own range normalisation.
// The root adapter applies it to every scan range after prefix translation,
// query.FixRange is used otherwise.
type RangeFixer interface {
	FixRange(r query.Range) query.Range
}
