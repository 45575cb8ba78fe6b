// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package sublevel

import (
	"context"
	"fmt"

	key "github.com/daotl/go-sublevel/key"
	logging "github.com/daotl/go-sublevel/log"
	"github.com/daotl/go-sublevel/query"
)

var log = logging.Logger("sublevel")

// DefaultWriteStreamBatchSize is the number of records a root write stream
// buffers before committing them as one batch.
const DefaultWriteStreamBatchSize = 128

// DB is the root Database. It wraps a Store and hands out keys unprefixed.
type DB struct {
	store   Store
	options Options

	// WriteStreamBatchSize overrides DefaultWriteStreamBatchSize if positive.
	WriteStreamBatchSize int
}

var _ Database = (*DB)(nil)

// Wrap wraps a given store as the root Database.
func Wrap(store Store, opts *Options) *DB {
	if store == nil {
		panic("store (sublevel.Store) is nil")
	}
	return &DB{store: store, options: Options{}.Merge(opts)}
}

// Store returns the wrapped store.
func (d *DB) Store() Store {
	return d.store
}

func (d *DB) Parent() Database {
	return nil
}

func (d *DB) Prefix() key.Key {
	return key.Empty
}

func (d *DB) Options() Options {
	return d.options
}

// PrefixKey returns k unchanged, root keys are store keys.
func (d *DB) PrefixKey(k key.Key) key.Key {
	return k
}

// Sublevel derives a top-level sublevel.
func (d *DB) Sublevel(name string, opts *Options) (*Sublevel, error) {
	return New(d, name, opts)
}

func (d *DB) Put(ctx context.Context, k key.Key, value []byte, opts *Options) error {
	return d.store.Put(ctx, k, value, d.options.Merge(opts))
}

func (d *DB) Get(ctx context.Context, k key.Key, opts *Options) ([]byte, error) {
	return d.store.Get(ctx, k, d.options.Merge(opts))
}

func (d *DB) Has(ctx context.Context, k key.Key, opts *Options) (bool, error) {
	return getBackedHas(ctx, d, k, opts)
}

func (d *DB) Delete(ctx context.Context, k key.Key, opts *Options) error {
	return d.store.Delete(ctx, k, d.options.Merge(opts))
}

// Batch writes ops in one atomic store write. Ops carrying a Prefix are keyed
// through it.
func (d *DB) Batch(ctx context.Context, ops []Op, opts *Options) error {
	resolved, err := resolveOps(d, ops)
	if err != nil {
		return err
	}
	return d.store.Write(ctx, resolved, d.options.Merge(opts))
}

// NewBatch returns the native chainable batch of the root.
func (d *DB) NewBatch(ctx context.Context) (Batch, error) {
	return &dbBatch{db: d}, nil
}

func (d *DB) ReadStream(ctx context.Context, so *StreamOptions) (query.Results, error) {
	return d.scan(ctx, so, false, false)
}

func (d *DB) KeyStream(ctx context.Context, so *StreamOptions) (query.Results, error) {
	return d.scan(ctx, so, true, false)
}

func (d *DB) ValueStream(ctx context.Context, so *StreamOptions) (query.Results, error) {
	return d.scan(ctx, so, false, true)
}

// fixRange applies the store's range normalisation.
func (d *DB) fixRange(r query.Range) query.Range {
	if f, ok := d.store.(RangeFixer); ok {
		return f.FixRange(r)
	}
	return query.FixRange(r)
}

func (d *DB) scan(ctx context.Context, so *StreamOptions, keysOnly, valuesOnly bool) (query.Results, error) {
	if so == nil {
		so = &StreamOptions{}
	}
	q := query.Query{
		Range:      d.fixRange(so.Range),
		Reverse:    so.Reverse,
		KeysOnly:   keysOnly,
		ValuesOnly: valuesOnly,
		Filters:    so.Filters,
		Limit:      so.Limit,
	}
	it, err := d.store.Iterate(ctx, q.Range, q.Reverse, d.options.Merge(so.Options))
	if err != nil {
		return nil, err
	}
	res := query.NaiveQueryApply(q, query.ResultsFromIterator(q, it))
	return project(res, keysOnly, valuesOnly), nil
}

// project drops the value or the key of every entry.
func project(res query.Results, keysOnly, valuesOnly bool) query.Results {
	switch {
	case keysOnly:
		return query.ResultsWithTransform(res, func(e query.Entry) query.Entry {
			e.Value = nil
			return e
		})
	case valuesOnly:
		return query.ResultsWithTransform(res, func(e query.Entry) query.Entry {
			e.Key = nil
			return e
		})
	default:
		return res
	}
}

// WriteStream returns the native write stream of the root.
func (d *DB) WriteStream(ctx context.Context, opts *Options) (WriteStream, error) {
	size := d.WriteStreamBatchSize
	if size <= 0 {
		size = DefaultWriteStreamBatchSize
	}
	return newBatchWriteStream(d.store, d.options.Merge(opts), size), nil
}

// Close closes the wrapped store.
func (d *DB) Close() error {
	return d.store.Close()
}

// Top walks the parents of db up to the root.
func Top(db Database) Database {
	for {
		p := db.Parent()
		if p == nil {
			return db
		}
		db = p
	}
}

// resolveOps keys every op through its own Prefix or through p, and returns
// the store-level ops. The input slice is left untouched.
func resolveOps(p Prefixer, ops []Op) ([]Op, error) {
	resolved := make([]Op, len(ops))
	for i, op := range ops {
		if op.Type != OpPut && op.Type != OpDel {
			return nil, fmt.Errorf("%w: %q at index %d", ErrInvalidOp, op.Type, i)
		}
		prefixer := p
		if op.Prefix != nil {
			prefixer = op.Prefix
		}
		resolved[i] = Op{Type: op.Type, Key: prefixer.PrefixKey(op.Key), Value: op.Value}
	}
	return resolved, nil
}

// getBackedHas provides a default Has implementation based on Get.
func getBackedHas(ctx context.Context, db Database, k key.Key, opts *Options) (bool, error) {
	_, err := db.Get(ctx, k, opts)
	switch err {
	case nil:
		return true, nil
	case ErrNotFound:
		return false, nil
	default:
		return false, err
	}
}

// dbBatch collects operations for one atomic store write.
type dbBatch struct {
	db  *DB
	ops []Op
}

// Put queues a put of copies of k and value.
func (b *dbBatch) Put(k key.Key, value []byte) Batch {
	b.ops = append(b.ops, Op{Type: OpPut, Key: k.Clone(), Value: copyValue(value)})
	return b
}

func (b *dbBatch) Del(k key.Key) Batch {
	b.ops = append(b.ops, Op{Type: OpDel, Key: k.Clone()})
	return b
}

func (b *dbBatch) Len() int {
	return len(b.ops)
}

func (b *dbBatch) Reset() {
	b.ops = nil
}

func (b *dbBatch) Write(ctx context.Context, opts *Options) error {
	log.Debugw("committing batch", "ops", len(b.ops))
	return b.db.Batch(ctx, b.ops, opts)
}

// copyValue copies v, keeping nil as nil.
func copyValue(v []byte) []byte {
	if v == nil {
		return nil
	}
	c := make([]byte, len(v))
	copy(c, v)
	return c
}
