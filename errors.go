// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package sublevel

import "errors"

var (
	// ErrNotFound is returned by Get and by stores when a key is absent. Store
	// adapters map their native not-found error to it.
	ErrNotFound = errors.New("sublevel: key not found")

	// ErrInvalidPath is returned when a path segment contains a reserved byte.
	ErrInvalidPath = errors.New("sublevel: path contains a reserved byte")

	// ErrInvalidOp is returned for a batch operation of unknown type.
	ErrInvalidOp = errors.New("sublevel: invalid batch operation")

	// ErrClosed is returned when using a closed write stream or store.
	ErrClosed = errors.New("sublevel: closed")
)
