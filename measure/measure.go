// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

// Package measure provides a sublevel.Store wrapper that records Prometheus
// metrics and OpenTelemetry spans for every store operation.
package measure

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	sublevel "github.com/daotl/go-sublevel"
	key "github.com/daotl/go-sublevel/key"
	"github.com/daotl/go-sublevel/query"
)

const instrumentationName = "github.com/daotl/go-sublevel/measure"

// Result label values.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Options configures the wrapper.
type Options struct {
	// Name is attached to every metric as the "store" label.
	Name string
	// Registerer receives the metrics, prometheus.DefaultRegisterer if nil.
	Registerer prometheus.Registerer
	// TracerProvider creates the tracer, the global provider if nil.
	TracerProvider trace.TracerProvider
}

// Store wraps a sublevel.Store and measures it.
type Store struct {
	sublevel.Store

	tracer   trace.Tracer
	ops      *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	batchOps prometheus.Histogram
	scanned  prometheus.Histogram
}

var _ sublevel.Store = (*Store)(nil)

// New wraps s. Registering the metrics twice under the same name on one
// registerer panics.
func New(s sublevel.Store, opts Options) *Store {
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	labels := prometheus.Labels{"store": opts.Name}
	factory := promauto.With(reg)

	return &Store{
		Store:  s,
		tracer: tp.Tracer(instrumentationName),
		ops: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "sublevel_store_ops_total",
			Help:        "Number of store operations by operation and result",
			ConstLabels: labels,
		}, []string{"op", "result"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "sublevel_store_op_duration_seconds",
			Help:        "Latency of store operations",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"op"}),
		batchOps: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "sublevel_store_batch_ops",
			Help:        "Number of operations per atomic write",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1, 4, 8),
		}),
		scanned: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "sublevel_store_scanned_entries",
			Help:        "Number of entries yielded per iteration",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}

func resultOf(err error) string {
	switch err {
	case nil:
		return ResultOK
	case sublevel.ErrNotFound:
		return ResultNotFound
	default:
		return ResultError
	}
}

// record ends span and observes the outcome of op.
func (s *Store) record(span trace.Span, op string, start time.Time, err error) {
	s.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	s.ops.WithLabelValues(op, resultOf(err)).Inc()
	if err != nil && err != sublevel.ErrNotFound {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Store) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	ctx, span := s.tracer.Start(ctx, "sublevel.store."+op, trace.WithAttributes(attrs...))
	return ctx, span, time.Now()
}

func (s *Store) Put(ctx context.Context, k key.Key, value []byte, opts sublevel.Options) (err error) {
	ctx, span, start := s.start(ctx, "put", attribute.Int("key.len", len(k)), attribute.Int("value.len", len(value)))
	defer func() { s.record(span, "put", start, err) }()
	return s.Store.Put(ctx, k, value, opts)
}

func (s *Store) Get(ctx context.Context, k key.Key, opts sublevel.Options) (value []byte, err error) {
	ctx, span, start := s.start(ctx, "get", attribute.Int("key.len", len(k)))
	defer func() { s.record(span, "get", start, err) }()
	return s.Store.Get(ctx, k, opts)
}

func (s *Store) Delete(ctx context.Context, k key.Key, opts sublevel.Options) (err error) {
	ctx, span, start := s.start(ctx, "delete", attribute.Int("key.len", len(k)))
	defer func() { s.record(span, "delete", start, err) }()
	return s.Store.Delete(ctx, k, opts)
}

func (s *Store) Write(ctx context.Context, ops []sublevel.Op, opts sublevel.Options) (err error) {
	ctx, span, start := s.start(ctx, "write", attribute.Int("ops", len(ops)))
	defer func() { s.record(span, "write", start, err) }()
	s.batchOps.Observe(float64(len(ops)))
	return s.Store.Write(ctx, ops, opts)
}

// Iterate measures opening the iterator. The span stays open until the
// iterator is closed and carries the number of entries yielded.
func (s *Store) Iterate(ctx context.Context, r query.Range, reverse bool, opts sublevel.Options) (query.Iterator, error) {
	ctx, span, start := s.start(ctx, "iterate", attribute.Bool("reverse", reverse))
	it, err := s.Store.Iterate(ctx, r, reverse, opts)
	if err != nil {
		s.record(span, "iterate", start, err)
		return it, err
	}

	var (
		n       int
		iterErr error
		closed  bool
	)
	next := it.Next
	closeIt := it.Close
	it.Next = func() (query.Result, bool) {
		res, ok := next()
		if ok {
			if res.Error != nil {
				iterErr = res.Error
			} else {
				n++
			}
		}
		return res, ok
	}
	it.Close = func() error {
		err := closeIt()
		if closed {
			return err
		}
		closed = true
		s.scanned.Observe(float64(n))
		span.SetAttributes(attribute.Int("entries", n))
		if iterErr == nil {
			iterErr = err
		}
		s.record(span, "iterate", start, iterErr)
		return err
	}
	return it, nil
}
