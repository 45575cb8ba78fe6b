// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

// Command sublevel reads and writes namespaced keys in any of the supported
// stores.
package main

import (
	"context"
	"fmt"
	"os"

	logging "github.com/daotl/go-sublevel/log"
)

func main() {
	err := NewRootCmd().ExecuteContext(context.Background())
	_ = logging.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
