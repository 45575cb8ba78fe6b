// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package query

// Results is a lazy, finite, ordered sequence of query results. It is not
// restartable: once drained or closed, a new query must be issued.
type Results interface {
	// Query returns the query that produced these results.
	Query() Query
	// NextSync returns the next result, false once the sequence is exhausted.
	NextSync() (Result, bool)
	// Rest drains the remaining results and closes the sequence. It returns
	// the first error encountered.
	Rest() ([]Entry, error)
	// Close releases the underlying iterator. It is safe to call more than once.
	Close() error
}

// Iterator is the pull interface stores hand out for range scans.
type Iterator struct {
	Next  func() (Result, bool)
	Close func() error
}

type results struct {
	query  Query
	it     Iterator
	done   bool
	closed bool
	err    error
}

// ResultsFromIterator wraps an Iterator as Results for q.
func ResultsFromIterator(q Query, iter Iterator) Results {
	if iter.Close == nil {
		iter.Close = noopClose
	}
	return &results{query: q, it: iter}
}

// ResultsWithEntries returns Results over a fixed slice of entries.
func ResultsWithEntries(q Query, entries []Entry) Results {
	i := 0
	return ResultsFromIterator(q, Iterator{
		Next: func() (Result, bool) {
			if i >= len(entries) {
				return Result{}, false
			}
			e := entries[i]
			i++
			return Result{Entry: e}, true
		},
	})
}

func noopClose() error {
	return nil
}

func (r *results) Query() Query {
	return r.query
}

func (r *results) NextSync() (Result, bool) {
	if r.done {
		return Result{}, false
	}
	res, ok := r.it.Next()
	if !ok {
		r.done = true
		r.err = r.Close()
		return Result{}, false
	}
	return res, true
}

func (r *results) Rest() ([]Entry, error) {
	var es []Entry
	for {
		res, ok := r.NextSync()
		if !ok {
			break
		}
		if res.Error != nil {
			r.Close() // nolint:errcheck
			return es, res.Error
		}
		es = append(es, res.Entry)
	}
	return es, r.err
}

func (r *results) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.done = true
	return r.it.Close()
}

// ResultsWithTransform returns Results that applies fn to every entry of r
// before handing it out. Errors pass through untouched.
func ResultsWithTransform(r Results, fn func(Entry) Entry) Results {
	return ResultsFromIterator(r.Query(), Iterator{
		Next: func() (Result, bool) {
			res, ok := r.NextSync()
			if !ok || res.Error != nil {
				return res, ok
			}
			res.Entry = fn(res.Entry)
			return res, true
		},
		Close: r.Close,
	})
}

// NaiveFilter applies a filter to the results.
func NaiveFilter(r Results, filter Filter) Results {
	return ResultsFromIterator(r.Query(), Iterator{
		Next: func() (Result, bool) {
			for {
				res, ok := r.NextSync()
				if !ok || res.Error != nil {
					return res, ok
				}
				if filter.Filter(res.Entry) {
					return res, true
				}
			}
		},
		Close: r.Close,
	})
}

// NaiveLimit truncates the results to a given int limit.
func NaiveLimit(r Results, limit int) Results {
	n := 0
	return ResultsFromIterator(r.Query(), Iterator{
		Next: func() (Result, bool) {
			if n >= limit {
				return Result{}, false
			}
			res, ok := r.NextSync()
			if ok && res.Error == nil {
				n++
			}
			return res, ok
		},
		Close: r.Close,
	})
}

// NaiveQueryApply applies the filters and limit of q to the results, in
// that order.
func NaiveQueryApply(q Query, r Results) Results {
	for _, f := range q.Filters {
		r = NaiveFilter(r, f)
	}
	if q.Limit > 0 {
		r = NaiveLimit(r, q.Limit)
	}
	return r
}
