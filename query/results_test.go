// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package query

import (
	"errors"
	"strings"
	"testing"

	key "github.com/daotl/go-sublevel/key"
)

func entriesOf(strs ...string) []Entry {
	es := make([]Entry, len(strs))
	for i, s := range strs {
		es[i] = Entry{Key: key.FromString(s), Value: []byte(s)}
	}
	return es
}

func testResults(t *testing.T, res Results, expect ...string) {
	t.Helper()

	actualE, err := res.Rest()
	if err != nil {
		t.Fatal(err)
	}
	actual := key.KeySlice(EntryKeys(actualE)).Strings()
	if strings.Join(actual, ",") != strings.Join(expect, ",") {
		t.Error("expect != actual.", expect, actual)
	}
}

func TestFixRange(t *testing.T) {
	r := FixRange(Range{Start: key.FromString("b"), End: key.FromString("a")})
	if r.Start.String() != "a" || r.End.String() != "b" {
		t.Errorf("bounds not ordered: %s", r)
	}

	r = FixRange(Range{Start: key.FromString("a"), End: key.FromString("b")})
	if r.Start.String() != "a" || r.End.String() != "b" {
		t.Errorf("ordered bounds changed: %s", r)
	}

	r = FixRange(Range{Start: key.FromString("b")})
	if r.Start.String() != "b" || r.End != nil {
		t.Errorf("open bound changed: %s", r)
	}
}

func TestRangeContains(t *testing.T) {
	r := Range{Start: key.FromString("b"), End: key.FromString("d")}
	for s, expect := range map[string]bool{"a": false, "b": true, "c": true, "d": true, "d\x00": false} {
		if r.Contains(key.FromString(s)) != expect {
			t.Errorf("Contains(%q) != %v", s, expect)
		}
	}
	if !(Range{}).Contains(key.FromString("anything")) {
		t.Error("empty range must contain everything")
	}
}

func TestResultsTransform(t *testing.T) {
	res := ResultsWithTransform(ResultsWithEntries(Query{}, entriesOf("xa", "xb")), func(e Entry) Entry {
		e.Key = e.Key[1:]
		return e
	})
	testResults(t, res, "a", "b")
}

func TestNaiveQueryApply(t *testing.T) {
	q := Query{
		Filters: []Filter{FilterKeyPrefix{key.FromString("a")}},
		Limit:   2,
	}
	res := NaiveQueryApply(q, ResultsWithEntries(q, entriesOf("a", "ab", "b", "ac", "ad")))
	testResults(t, res, "ab", "ac")
}

func TestResultsErrorStopsRest(t *testing.T) {
	myErr := errors.New("boom")
	calls := 0
	closed := false
	res := ResultsFromIterator(Query{}, Iterator{
		Next: func() (Result, bool) {
			calls++
			if calls == 2 {
				return Result{Error: myErr}, true
			}
			return Result{Entry: Entry{Key: key.FromString("a")}}, true
		},
		Close: func() error {
			closed = true
			return nil
		},
	})

	es, err := res.Rest()
	if err != myErr {
		t.Fatalf("expected %v, got %v", myErr, err)
	}
	if len(es) != 1 {
		t.Errorf("expected 1 entry before the error, got %d", len(es))
	}
	if !closed {
		t.Error("iterator should be closed after an error")
	}
}

func TestResultsCloseOnce(t *testing.T) {
	n := 0
	res := ResultsFromIterator(Query{}, Iterator{
		Next:  func() (Result, bool) { return Result{}, false },
		Close: func() error { n++; return nil },
	})
	if _, ok := res.NextSync(); ok {
		t.Fatal("expected an empty result set")
	}
	if err := res.Close(); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Close called %d times", n)
	}
}

func TestQueryString(t *testing.T) {
	q := Query{
		Range:    Range{Start: key.FromString("a")},
		Reverse:  true,
		KeysOnly: true,
		Limit:    3,
	}
	s := q.String()
	for _, part := range []string{"SELECT keys", "REVERSE", "LIMIT 3"} {
		if !strings.Contains(s, part) {
			t.Errorf("%q missing from %q", part, s)
		}
	}
}
