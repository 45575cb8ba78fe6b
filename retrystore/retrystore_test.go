// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package retrystore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	sublevel "github.com/daotl/go-sublevel"
	"github.com/daotl/go-sublevel/failstore"
	key "github.com/daotl/go-sublevel/key"
	"github.com/daotl/go-sublevel/memstore"
	"github.com/daotl/go-sublevel/query"
)

var none = sublevel.Options{}

func TestRetryFailure(t *testing.T) {
	ctx := context.Background()

	myErr := fmt.Errorf("this is an actual error")
	var count int
	fstore := failstore.NewFailstore(memstore.New(), func(op string) error {
		count++
		return myErr
	})

	rds := &Store{
		Store:   fstore,
		Retries: 5,
		TempErrFunc: func(err error) bool {
			return err == myErr
		},
	}

	k := key.FromString("test")

	_, err := rds.Get(ctx, k, none)
	if err == nil {
		t.Fatal("expected this to fail")
	}

	if !strings.Contains(err.Error(), "ran out of retries") {
		t.Fatal("got different error than expected: ", err)
	}
	if !errors.Is(err, myErr) {
		t.Fatal("expected the temporary error to be wrapped")
	}

	if count != 6 {
		t.Fatal("expected five retries (six executions), got: ", count)
	}
}

func TestRealErrorGetsThrough(t *testing.T) {
	ctx := context.Background()

	myErr := fmt.Errorf("this is an actual error")
	fstore := failstore.NewFailstore(memstore.New(), func(op string) error {
		return myErr
	})

	rds := &Store{
		Store:   fstore,
		Retries: 5,
		TempErrFunc: func(err error) bool {
			return false
		},
	}

	k := key.FromString("test")
	if _, err := rds.Get(ctx, k, none); err != myErr {
		t.Fatal("expected my own error")
	}
	if err := rds.Put(ctx, k, nil, none); err != myErr {
		t.Fatal("expected my own error")
	}
	if err := rds.Delete(ctx, k, none); err != myErr {
		t.Fatal("expected my own error")
	}
	if err := rds.Write(ctx, nil, none); err != myErr {
		t.Fatal("expected my own error")
	}
	if _, err := rds.Iterate(ctx, query.Range{}, false, none); err != myErr {
		t.Fatal("expected my own error")
	}
}

func TestRealErrorAfterTemp(t *testing.T) {
	ctx := context.Background()

	myErr := fmt.Errorf("this is an actual error")
	tempErr := fmt.Errorf("this is a temp error")
	var count int
	fstore := failstore.NewFailstore(memstore.New(), func(op string) error {
		count++
		if count < 3 {
			return tempErr
		}
		return myErr
	})

	rds := &Store{
		Store:   fstore,
		Retries: 5,
		TempErrFunc: func(err error) bool {
			return err == tempErr
		},
	}

	if _, err := rds.Get(ctx, key.FromString("test"), none); err != myErr {
		t.Fatal("expected my own error")
	}
}

func TestSuccessAfterTemp(t *testing.T) {
	ctx := context.Background()

	tempErr := fmt.Errorf("this is a temp error")
	var count int
	fstore := failstore.NewFailstore(memstore.New(), func(op string) error {
		count++
		if count < 3 {
			return tempErr
		}
		count = 0
		return nil
	})

	rds := &Store{
		Store:   fstore,
		Retries: 5,
		TempErrFunc: func(err error) bool {
			return err == tempErr
		},
	}

	db := sublevel.Wrap(rds, nil)
	items, err := db.Sublevel("items", nil)
	if err != nil {
		t.Fatal(err)
	}

	k := key.FromString("test")
	val := []byte("foo")

	if err := items.Put(ctx, k, val, nil); err != nil {
		t.Fatal(err)
	}

	has, err := items.Has(ctx, k, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !has {
		t.Fatal("should have this thing")
	}

	out, err := items.Get(ctx, k, nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != string(val) {
		t.Fatal("got wrong value")
	}
}

func TestContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	tempErr := fmt.Errorf("this is a temp error")
	var count int
	fstore := failstore.NewFailstore(memstore.New(), func(op string) error {
		count++
		cancel()
		return tempErr
	})

	rds := &Store{
		Store:   fstore,
		Retries: 5,
		Delay:   time.Hour,
		TempErrFunc: func(err error) bool {
			return err == tempErr
		},
	}

	err := rds.Put(ctx, key.FromString("test"), nil, none)
	if !errors.Is(err, context.Canceled) {
		t.Fatal("expected context.Canceled, got: ", err)
	}
	if count != 1 {
		t.Fatal("expected a single execution, got: ", count)
	}
}
