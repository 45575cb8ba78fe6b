// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package main

import (
	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	xerrors "golang.org/x/xerrors"

	sublevel "github.com/daotl/go-sublevel"
	"github.com/daotl/go-sublevel/badger"
	"github.com/daotl/go-sublevel/bbolt"
	"github.com/daotl/go-sublevel/leveldb"
	logging "github.com/daotl/go-sublevel/log"
	"github.com/daotl/go-sublevel/memstore"
	"github.com/daotl/go-sublevel/pebble"
)

// Backend names accepted by --backend.
const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendBbolt   = "bbolt"
	BackendBadger  = "badger"
	BackendPebble  = "pebble"
)

// Config is the CLI configuration. It can be loaded from a TOML file, flags
// given on the command line win over the file.
//
//  backend   = "pebble"
//  path      = "/var/lib/app/db"
//  namespace = ["items", "posts"]
//  log_level = "warn,sublevel/pebble=debug"
//  log_file  = "/var/log/sublevel.log"
//  sync      = true
type Config struct {
	Backend   string   `toml:"backend"`
	Path      string   `toml:"path"`
	Namespace []string `toml:"namespace"`
	LogLevel  string   `toml:"log_level"`
	LogFile   string   `toml:"log_file"`
	Sync      bool     `toml:"sync"`
}

// DefaultConfig returns the flag defaults.
func DefaultConfig() Config {
	return Config{
		Backend:  BackendMemory,
		LogLevel: "error",
	}
}

// loadConfig decodes the TOML file at path into cfg, leaving the fields
// whose flag was set explicitly untouched.
func loadConfig(path string, cfg *Config, flags *pflag.FlagSet) error {
	var file Config
	md, err := toml.DecodeFile(path, &file)
	if err != nil {
		return xerrors.Errorf("failed to read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return xerrors.Errorf("unknown keys in config %s: %v", path, undecoded)
	}

	set := func(flag, tomlKey string, apply func()) {
		if md.IsDefined(tomlKey) && !flags.Changed(flag) {
			apply()
		}
	}
	set("backend", "backend", func() { cfg.Backend = file.Backend })
	set("path", "path", func() { cfg.Path = file.Path })
	set("ns", "namespace", func() { cfg.Namespace = file.Namespace })
	set("log-level", "log_level", func() { cfg.LogLevel = file.LogLevel })
	set("log-file", "log_file", func() { cfg.LogFile = file.LogFile })
	set("sync", "sync", func() { cfg.Sync = file.Sync })
	return nil
}

// openStore opens the store selected by cfg.
func openStore(cfg Config) (sublevel.Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		return memstore.New(), nil
	case BackendLevelDB:
		return leveldb.NewStore(cfg.Path, &leveldb.Options{SyncWrites: cfg.Sync})
	case BackendBbolt:
		if cfg.Path == "" {
			return nil, xerrors.New("bbolt backend requires --path")
		}
		return bbolt.NewStore(cfg.Path, nil, nil)
	case BackendBadger:
		opts := badger.DefaultOptions
		opts.Options = opts.Options.WithSyncWrites(cfg.Sync)
		return badger.NewStore(cfg.Path, &opts)
	case BackendPebble:
		return pebble.NewStore(cfg.Path, &pebble.Options{SyncWrites: cfg.Sync})
	default:
		return nil, xerrors.Errorf("unknown backend %q", cfg.Backend)
	}
}

// logConfig applies the CLI log settings over the SUBLEVEL_LOG_*
// environment. A log file replaces the console output.
func logConfig(cfg Config) (logging.Config, error) {
	lcfg := logging.ConfigFromEnv()
	lvls, err := logging.ParseLevels(cfg.LogLevel)
	if err != nil {
		return lcfg, err
	}
	lcfg.Levels = lvls
	if cfg.LogFile != "" {
		lcfg.File = cfg.LogFile
		lcfg.Stdout, lcfg.Stderr = false, false
	}
	return lcfg, nil
}
