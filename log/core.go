// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package log

import (
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

var _ zapcore.Core = (*swapCore)(nil)

// swapCore fans entries out to a set of cores that Setup swaps as a whole.
// Loggers hold the swapCore, so they follow every reconfiguration.
type swapCore struct {
	mu    sync.RWMutex
	cores []zapcore.Core
}

// set replaces all cores.
func (s *swapCore) set(cores ...zapcore.Core) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cores = cores
}

func (s *swapCore) snapshot() []zapcore.Core {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cores
}

// With returns a fixed core: fields bound to a child logger stay with the
// outputs configured when the child was made.
func (s *swapCore) With(fields []zapcore.Field) zapcore.Core {
	cores := s.snapshot()
	sub := &swapCore{cores: make([]zapcore.Core, len(cores))}
	for i, c := range cores {
		sub.cores[i] = c.With(fields)
	}
	return sub
}

func (s *swapCore) Enabled(lvl zapcore.Level) bool {
	for _, c := range s.snapshot() {
		if c.Enabled(lvl) {
			return true
		}
	}
	return false
}

func (s *swapCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	for _, c := range s.snapshot() {
		ce = c.Check(ent, ce)
	}
	return ce
}

func (s *swapCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	var err error
	for _, c := range s.snapshot() {
		err = multierr.Append(err, c.Write(ent, fields))
	}
	return err
}

func (s *swapCore) Sync() error {
	var err error
	for _, c := range s.snapshot() {
		err = multierr.Append(err, c.Sync())
	}
	return err
}

// newCore builds an output core. Subsystem levels are enforced per logger,
// so every core accepts all levels.
func newCore(format LogFormat, ws zapcore.WriteSyncer) zapcore.Core {
	encCfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		NameKey:        "logger",
		TimeKey:        "ts",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	switch format {
	case PlaintextOutput:
		encoder = zapcore.NewConsoleEncoder(encCfg)
	case JSONOutput:
		encoder = zapcore.NewJSONEncoder(encCfg)
	default:
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}
	return zapcore.NewCore(encoder, ws, zapcore.DebugLevel)
}
