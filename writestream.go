// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package sublevel

import (
	"context"
	"fmt"
	"sync"
)

// batchWriteStream buffers records and commits them to the store in batches
// of size records. The first failed commit poisons the stream.
type batchWriteStream struct {
	mu     sync.Mutex
	store  Store
	opts   Options
	size   int
	buf    []Op
	err    error
	closed bool
}

func newBatchWriteStream(store Store, opts Options, size int) *batchWriteStream {
	return &batchWriteStream{
		store: store,
		opts:  opts,
		size:  size,
		buf:   make([]Op, 0, size),
	}
}

func (w *batchWriteStream) Write(ctx context.Context, op Op) error {
	if op.Type == "" {
		op.Type = OpPut
	}
	if op.Type != OpPut && op.Type != OpDel {
		return fmt.Errorf("%w: %q", ErrInvalidOp, op.Type)
	}
	if op.Prefix != nil {
		op.Key = op.Prefix.PrefixKey(op.Key)
		op.Prefix = nil
	}
	// Buffered records must not alias the caller's slices.
	op.Key = op.Key.Clone()
	op.Value = copyValue(op.Value)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.err != nil {
		return w.err
	}
	w.buf = append(w.buf, op)
	if len(w.buf) >= w.size {
		return w.flush(ctx)
	}
	return nil
}

// flush commits the buffer. w.mu must be held.
func (w *batchWriteStream) flush(ctx context.Context) error {
	if len(w.buf) == 0 {
		return nil
	}
	if err := w.store.Write(ctx, w.buf, w.opts); err != nil {
		log.Errorw("write stream flush failed", "ops", len(w.buf), "err", err)
		w.err = err
		return err
	}
	w.buf = make([]Op, 0, w.size)
	return nil
}

func (w *batchWriteStream) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.closed = true
	if w.err != nil {
		return w.err
	}
	return w.flush(ctx)
}
