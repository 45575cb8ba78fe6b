// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package log

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func restore(t *testing.T) {
	t.Cleanup(func() { require.NoError(t, Setup(ConfigFromEnv())) })
}

func TestParseLevels(t *testing.T) {
	ls, err := ParseLevels("")
	require.NoError(t, err)
	require.Equal(t, LevelError, ls.Default)
	require.Empty(t, ls.Subsystems)

	ls, err = ParseLevels("WARN, sublevel/badger=debug,sublevel=info")
	require.NoError(t, err)
	require.Equal(t, LevelWarn, ls.Default)
	require.Equal(t, LevelDebug, ls.of("sublevel/badger"))
	require.Equal(t, LevelInfo, ls.of("sublevel"))
	require.Equal(t, LevelWarn, ls.of("sublevel/pebble"))

	for _, bad := range []string{"chatty", "sublevel=loud", "=debug"} {
		_, err = ParseLevels(bad)
		require.Error(t, err, bad)
	}
}

func TestSubsystemLevels(t *testing.T) {
	restore(t)
	var buf bytes.Buffer
	log := Logger("test-levels")
	other := Logger("test-other")

	lvls, err := ParseLevels("error,test-levels=info")
	require.NoError(t, err)
	install(lvls, newCore(PlaintextOutput, zapcore.AddSync(&buf)))

	log.Debug("hidden")
	log.Info("shown")
	other.Info("other hidden")
	other.Error("other shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
	require.Contains(t, buf.String(), "test-levels")
	require.Contains(t, buf.String(), "other shown")

	// loggers handed out before a reconfiguration follow it
	buf.Reset()
	lvls, err = ParseLevels("error")
	require.NoError(t, err)
	install(lvls, newCore(PlaintextOutput, zapcore.AddSync(&buf)))
	log.Info("now hidden")
	require.Empty(t, buf.String())
}

func TestLogToFile(t *testing.T) {
	restore(t)
	path := filepath.Join(t.TempDir(), "sublevel.log")
	require.NoError(t, Setup(Config{
		Levels: Levels{Default: LevelInfo},
		File:   path,
	}))

	Logger("test-file").Infow("written", "k", "v")
	require.NoError(t, Sync())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), `"msg":"written"`)
	require.Contains(t, string(b), `"logger":"test-file"`)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(envLogLevel, "warn,sublevel=debug")
	t.Setenv(envLogFormat, "json")
	t.Setenv(envLogOutput, "stdout")

	cfg := ConfigFromEnv()
	require.Equal(t, LevelWarn, cfg.Levels.Default)
	require.Equal(t, LevelDebug, cfg.Levels.Subsystems["sublevel"])
	require.Equal(t, JSONOutput, cfg.Format)
	require.True(t, cfg.Stdout)
	require.False(t, cfg.Stderr)
	require.Empty(t, cfg.File)

	t.Setenv(envLogOutput, "")
	t.Setenv(envLogFile, filepath.Join(t.TempDir(), "x.log"))
	cfg = ConfigFromEnv()
	require.False(t, cfg.Stderr)
	require.Equal(t, 100, cfg.MaxSizeMB)

	t.Setenv(envLogLevel, "loud")
	cfg = ConfigFromEnv()
	require.Equal(t, LevelError, cfg.Levels.Default)
}
