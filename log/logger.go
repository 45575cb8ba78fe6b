// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

// Package log is the logging library used by go-sublevel. Loggers are
// registered per subsystem ("sublevel", "sublevel/badger", ...) and share one
// set of outputs configured through Setup or the SUBLEVEL_LOG_* environment
// variables.
package log

// Sync flushes buffered log entries of every output.
func Sync() error {
	return root.Sync()
}
