// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package log

import (
	"strings"

	"go.uber.org/zap/zapcore"
	xerrors "golang.org/x/xerrors"
)

// LogLevel represents a log severity level. Use the package variables as an
// enum.
type LogLevel zapcore.Level

var (
	LevelDebug = LogLevel(zapcore.DebugLevel)
	LevelInfo  = LogLevel(zapcore.InfoLevel)
	LevelWarn  = LogLevel(zapcore.WarnLevel)
	LevelError = LogLevel(zapcore.ErrorLevel)
)

// LevelFromString parses a level name such as "debug" or "WARN".
//
// The returned LogLevel must be discarded if error is not nil.
func LevelFromString(level string) (LogLevel, error) {
	lvl := zapcore.InfoLevel
	err := lvl.Set(level)
	return LogLevel(lvl), err
}

// Levels is a default level plus per-subsystem overrides.
type Levels struct {
	Default    LogLevel
	Subsystems map[string]LogLevel
}

// of returns the level of subsystem name.
func (l Levels) of(name string) LogLevel {
	if lvl, ok := l.Subsystems[name]; ok {
		return lvl
	}
	return l.Default
}

// ParseLevels parses a comma separated level list as accepted by the
// SUBLEVEL_LOG_LEVEL variable and the CLI --log-level flag, e.g.
// "warn,sublevel/badger=debug". A bare level sets the default, which is
// LevelError if absent. An empty spec yields the defaults.
func ParseLevels(spec string) (Levels, error) {
	ls := Levels{Default: LevelError, Subsystems: map[string]LogLevel{}}
	for _, item := range strings.Split(spec, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, lvlStr := "", item
		if i := strings.IndexByte(item, '='); i >= 0 {
			name, lvlStr = item[:i], item[i+1:]
			if name == "" {
				return ls, xerrors.Errorf("log level %q: missing subsystem", item)
			}
		}
		lvl, err := LevelFromString(lvlStr)
		if err != nil {
			return ls, xerrors.Errorf("log level %q: %w", item, err)
		}
		if name == "" {
			ls.Default = lvl
		} else {
			ls.Subsystems[name] = lvl
		}
	}
	return ls, nil
}
