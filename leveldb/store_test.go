// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package leveldb

import (
	"context"
	"testing"

	sublevel "github.com/daotl/go-sublevel"
	key "github.com/daotl/go-sublevel/key"
	"github.com/daotl/go-sublevel/storetest"
)

var bg = context.Background()

// newStore returns an on-disk store closed when the test ends.
func newStore(t *testing.T, path string) *Store {
	s, err := NewStore(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		s.Close() // nolint:errcheck
	})
	return s
}

func TestSuiteMem(t *testing.T) {
	storetest.SubtestAll(t, func(t *testing.T) sublevel.Store {
		return newStore(t, "")
	})
}

func TestSuiteDisk(t *testing.T) {
	storetest.SubtestAll(t, func(t *testing.T) sublevel.Store {
		return newStore(t, t.TempDir())
	})
}

func TestReopen(t *testing.T) {
	path := t.TempDir()

	s, err := NewStore(path, &Options{SyncWrites: false})
	if err != nil {
		t.Fatal(err)
	}
	db := sublevel.Wrap(s, nil)
	items, err := db.Sublevel("items", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := items.Put(bg, key.FromString("foo"), []byte("bar"), &sublevel.Options{Sync: sublevel.Bool(true)}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s = newStore(t, path)
	v, err := s.Get(bg, key.FromString("\x00items/\x01foo"), sublevel.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "bar" {
		t.Fatalf("expected bar, got %q", v)
	}

	du, err := s.DiskUsage()
	if err != nil {
		t.Fatal(err)
	}
	if du == 0 {
		t.Fatal("expected some disk usage")
	}
}

func TestDiskUsageInMem(t *testing.T) {
	s := newStore(t, "")
	du, err := s.DiskUsage()
	if err != nil {
		t.Fatal(err)
	}
	if du != 0 {
		t.Fatalf("expected 0, got %d", du)
	}
}

func TestClosed(t *testing.T) {
	s, err := NewStore("", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(bg, key.FromString("a"), nil, sublevel.Options{}); err != sublevel.ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := s.Get(bg, key.FromString("a"), sublevel.Options{}); err != sublevel.ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
