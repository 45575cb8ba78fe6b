// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package log

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	xerrors "golang.org/x/xerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

func init() {
	if err := Setup(ConfigFromEnv()); err != nil {
		fmt.Fprintf(os.Stderr, "sublevel: logging setup failed: %s\n", err)
	}
}

// Logging environment variables
const (
	envLogLevel  = "SUBLEVEL_LOG_LEVEL"  // see ParseLevels
	envLogFormat = "SUBLEVEL_LOG_FMT"    // color|nocolor|json
	envLogFile   = "SUBLEVEL_LOG_FILE"   // /path/to/file
	envLogOutput = "SUBLEVEL_LOG_OUTPUT" // stdout|stderr|file joined by '+'
)

type LogFormat int

const (
	ColorizedOutput LogFormat = iota
	PlaintextOutput
	JSONOutput
)

// Config configures all loggers of the process.
type Config struct {
	// Levels sets the minimum enabled level per subsystem.
	Levels Levels

	// Format of the console output. Files are always written as JSON.
	Format LogFormat
	Stdout bool
	Stderr bool

	// File, if set, receives logs rolled by size.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DefaultConfig logs errors to stderr, colorized on a terminal.
func DefaultConfig() Config {
	cfg := Config{
		Levels: Levels{Default: LevelError},
		Format: ColorizedOutput,
		Stderr: true,
	}
	if !isTerm(os.Stderr) {
		cfg.Format = PlaintextOutput
	}
	return cfg
}

var (
	mu     sync.Mutex
	levels Levels
	// atomic levels of the registered subsystems
	subsystems = map[string]zap.AtomicLevel{}
	root       = &swapCore{}
	fileSink   *lumberjack.Logger
)

// Setup reconfigures the outputs and levels of every logger, including the
// ones already handed out by Logger.
func Setup(cfg Config) error {
	var cores []zapcore.Core

	var paths []string
	if cfg.Stdout {
		paths = append(paths, "stdout")
	}
	if cfg.Stderr {
		paths = append(paths, "stderr")
	}
	if len(paths) > 0 {
		ws, _, err := zap.Open(paths...)
		if err != nil {
			return xerrors.Errorf("open log output: %w", err)
		}
		cores = append(cores, newCore(cfg.Format, ws))
	}

	var sink *lumberjack.Logger
	if cfg.File != "" {
		sink = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		cores = append(cores, newCore(JSONOutput, zapcore.AddSync(sink)))
	}

	install(cfg.Levels, cores...)

	mu.Lock()
	prev := fileSink
	fileSink = sink
	mu.Unlock()
	if prev != nil {
		return prev.Close()
	}
	return nil
}

// install swaps the output cores and applies lvls.
func install(lvls Levels, cores ...zapcore.Core) {
	root.set(cores...)
	mu.Lock()
	defer mu.Unlock()
	levels = lvls
	for name, al := range subsystems {
		al.SetLevel(zapcore.Level(levels.of(name)))
	}
}

// Logger returns the logger of subsystem, creating it on first use.
func Logger(subsystem string) *zap.SugaredLogger {
	if subsystem == "" {
		subsystem = "undefined"
	}
	mu.Lock()
	defer mu.Unlock()
	al, ok := subsystems[subsystem]
	if !ok {
		al = zap.NewAtomicLevelAt(zapcore.Level(levels.of(subsystem)))
		subsystems[subsystem] = al
	}
	return zap.New(root, zap.IncreaseLevel(al), zap.AddCaller()).
		Named(subsystem).
		Sugar()
}

// ConfigFromEnv returns DefaultConfig overridden by the SUBLEVEL_LOG_*
// environment variables. Malformed values are reported on stderr and ignored.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if spec := os.Getenv(envLogLevel); spec != "" {
		lvls, err := ParseLevels(spec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ignoring %s: %s\n", envLogLevel, err)
		} else {
			cfg.Levels = lvls
		}
	}

	explicitFormat := true
	switch f := os.Getenv(envLogFormat); f {
	case "color":
		cfg.Format = ColorizedOutput
	case "nocolor":
		cfg.Format = PlaintextOutput
	case "json":
		cfg.Format = JSONOutput
	default:
		if f != "" {
			fmt.Fprintf(os.Stderr, "ignoring unrecognized log format %q\n", f)
		}
		explicitFormat = false
	}

	if cfg.File = os.Getenv(envLogFile); cfg.File != "" {
		cfg.Stderr = false
		cfg.MaxSizeMB = 100
		cfg.MaxBackups = 3
		cfg.MaxAgeDays = 28
	}

	if out := os.Getenv(envLogOutput); out != "" {
		cfg.Stdout, cfg.Stderr = false, false
		for _, o := range strings.Split(out, "+") {
			switch o {
			case "stdout":
				cfg.Stdout = true
			case "stderr":
				cfg.Stderr = true
			case "file":
				if cfg.File == "" {
					fmt.Fprintf(os.Stderr, "%s=file needs %s\n", envLogOutput, envLogFile)
				}
			default:
				fmt.Fprintf(os.Stderr, "ignoring unrecognized log output %q\n", o)
			}
		}
	}

	if !explicitFormat {
		if (cfg.Stdout && isTerm(os.Stdout)) || (cfg.Stderr && isTerm(os.Stderr)) {
			cfg.Format = ColorizedOutput
		} else {
			cfg.Format = PlaintextOutput
		}
	}
	return cfg
}

func isTerm(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
