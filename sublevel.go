// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package sublevel

import (
	"context"

	key "github.com/daotl/go-sublevel/key"
	"github.com/daotl/go-sublevel/query"
)

// Sublevel is a namespace over its parent Database. Its prefix and options
// are fixed at construction, so a Sublevel is safe for concurrent use as
// long as the store is.
type Sublevel struct {
	rangeTranslator

	parent  Database
	top     Database
	path    string
	options Options
}

var _ Database = (*Sublevel)(nil)

// New creates a sublevel named path under parent. An empty path is allowed.
// Options are merged over the parent's. It fails with ErrInvalidPath if path
// contains a reserved byte.
func New(parent Database, path string, opts *Options) (*Sublevel, error) {
	if parent == nil {
		panic("parent (sublevel.Database) is nil")
	}
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	s := &Sublevel{
		rangeTranslator: rangeTranslator{prefix: composePrefix(parent.Prefix(), path)},
		parent:          parent,
		top:             Top(parent),
		path:            path,
		options:         parent.Options().Merge(opts),
	}
	log.Debugw("created sublevel", "path", path, "prefix", s.prefix.Hex())
	return s, nil
}

// Sublevel derives a child sublevel named name.
func (s *Sublevel) Sublevel(name string, opts *Options) (*Sublevel, error) {
	return New(s, name, opts)
}

func (s *Sublevel) Parent() Database {
	return s.parent
}

// Top returns the root Database.
func (s *Sublevel) Top() Database {
	return s.top
}

// Path returns the segment the sublevel was created with.
func (s *Sublevel) Path() string {
	return s.path
}

// Prefix returns a copy of the composed prefix.
func (s *Sublevel) Prefix() key.Key {
	return s.prefix.Clone()
}

func (s *Sublevel) Options() Options {
	return s.options
}

func (s *Sublevel) Put(ctx context.Context, k key.Key, value []byte, opts *Options) error {
	o := s.options.Merge(opts)
	return s.top.Put(ctx, s.PrefixKey(k), value, &o)
}

func (s *Sublevel) Get(ctx context.Context, k key.Key, opts *Options) ([]byte, error) {
	o := s.options.Merge(opts)
	return s.top.Get(ctx, s.PrefixKey(k), &o)
}

func (s *Sublevel) Has(ctx context.Context, k key.Key, opts *Options) (bool, error) {
	return getBackedHas(ctx, s, k, opts)
}

func (s *Sublevel) Delete(ctx context.Context, k key.Key, opts *Options) error {
	o := s.options.Merge(opts)
	return s.top.Delete(ctx, s.PrefixKey(k), &o)
}

// Batch writes ops atomically through the root. Ops without a Prefix are
// keyed into this sublevel.
func (s *Sublevel) Batch(ctx context.Context, ops []Op, opts *Options) error {
	resolved, err := resolveOps(s, ops)
	if err != nil {
		return err
	}
	o := s.options.Merge(opts)
	log.Debugw("submitting batch", "path", s.path, "ops", len(resolved))
	return s.top.Batch(ctx, resolved, &o)
}

// NewBatch returns a chainable batch keying every operation into this
// sublevel before handing it to the root's batch.
func (s *Sublevel) NewBatch(ctx context.Context) (Batch, error) {
	b, err := s.top.NewBatch(ctx)
	if err != nil {
		return nil, err
	}
	return &prefixedBatch{Batch: b, sub: s}, nil
}

func (s *Sublevel) ReadStream(ctx context.Context, so *StreamOptions) (query.Results, error) {
	return s.scan(ctx, so, false, false)
}

func (s *Sublevel) KeyStream(ctx context.Context, so *StreamOptions) (query.Results, error) {
	return s.scan(ctx, so, true, false)
}

func (s *Sublevel) ValueStream(ctx context.Context, so *StreamOptions) (query.Results, error) {
	return s.scan(ctx, so, false, true)
}

// scan translates the range, delegates to the root and strips prefixes from
// the keys coming back. Filters run on stripped keys, so they are applied
// here instead of in the root.
func (s *Sublevel) scan(ctx context.Context, so *StreamOptions, keysOnly, valuesOnly bool) (query.Results, error) {
	if so == nil {
		so = &StreamOptions{}
	}
	o := s.options.Merge(so.Options)
	inner := &StreamOptions{
		Range:   s.PrefixRange(so.Range),
		Reverse: so.Reverse,
		Options: &o,
	}
	if len(so.Filters) == 0 {
		inner.Limit = so.Limit
		switch {
		case valuesOnly:
			return s.top.ValueStream(ctx, inner)
		case keysOnly:
			res, err := s.top.KeyStream(ctx, inner)
			if err != nil {
				return nil, err
			}
			return query.ResultsWithTransform(res, s.stripEntry), nil
		}
	}

	res, err := s.top.ReadStream(ctx, inner)
	if err != nil {
		return nil, err
	}
	res = query.ResultsWithTransform(res, s.stripEntry)
	res = query.NaiveQueryApply(query.Query{Filters: so.Filters, Limit: so.Limit}, res)
	return project(res, keysOnly, valuesOnly), nil
}

// WriteStream returns the root's write stream with a stage keying every
// record into this sublevel in front of it.
func (s *Sublevel) WriteStream(ctx context.Context, opts *Options) (WriteStream, error) {
	o := s.options.Merge(opts)
	ws, err := s.top.WriteStream(ctx, &o)
	if err != nil {
		return nil, err
	}
	return &prefixedWriteStream{WriteStream: ws, sub: s}, nil
}

// prefixedBatch keys operations into a sublevel before queuing them.
type prefixedBatch struct {
	Batch
	sub *Sublevel
}

func (b *prefixedBatch) Put(k key.Key, value []byte) Batch {
	b.Batch.Put(b.sub.PrefixKey(k), value)
	return b
}

func (b *prefixedBatch) Del(k key.Key) Batch {
	b.Batch.Del(b.sub.PrefixKey(k))
	return b
}

// prefixedWriteStream keys records into a sublevel before forwarding them.
type prefixedWriteStream struct {
	WriteStream
	sub *Sublevel
}

func (w *prefixedWriteStream) Write(ctx context.Context, op Op) error {
	var p Prefixer = w.sub
	if op.Prefix != nil {
		p = op.Prefix
	}
	op.Key = p.PrefixKey(op.Key)
	op.Prefix = nil
	return w.WriteStream.Write(ctx, op)
}
