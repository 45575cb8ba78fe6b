// Copyright (c) 2020 DAOT Labs. All rights reserved. Use of this source
// code is governed by MIT license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	xerrors "golang.org/x/xerrors"

	sublevel "github.com/daotl/go-sublevel"
	"github.com/daotl/go-sublevel/cachestore"
	key "github.com/daotl/go-sublevel/key"
	logging "github.com/daotl/go-sublevel/log"
	"github.com/daotl/go-sublevel/measure"
	"github.com/daotl/go-sublevel/query"
)

var log = logging.Logger("sublevel/cmd")

type cli struct {
	cfg       Config
	cfgFile   string
	cacheSize int
	stats     bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	c := &cli{cfg: DefaultConfig()}

	root := &cobra.Command{
		Use:           "sublevel",
		Short:         "Read and write namespaced keys of an ordered key-value store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.cfgFile != "" {
				if err := loadConfig(c.cfgFile, &c.cfg, cmd.Flags()); err != nil {
					return err
				}
			}
			lcfg, err := logConfig(c.cfg)
			if err != nil {
				return err
			}
			return logging.Setup(lcfg)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "TOML config file")
	flags.StringVar(&c.cfg.Backend, "backend", c.cfg.Backend, "store backend: memory, leveldb, bbolt, badger or pebble")
	flags.StringVar(&c.cfg.Path, "path", c.cfg.Path, "store location, in-memory for leveldb, badger and pebble if empty")
	flags.StringSliceVar(&c.cfg.Namespace, "ns", c.cfg.Namespace, "sublevel chain, e.g. items,posts")
	flags.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level, optionally per subsystem, e.g. warn,sublevel/badger=debug")
	flags.StringVar(&c.cfg.LogFile, "log-file", c.cfg.LogFile, "write JSON logs to this file instead of stderr")
	flags.BoolVar(&c.cfg.Sync, "sync", c.cfg.Sync, "sync writes to disk")
	flags.IntVar(&c.cacheSize, "cache", 0, "keep up to this many read values in an LRU cache")
	flags.BoolVar(&c.stats, "stats", false, "print store operation counts to stderr")

	root.AddCommand(
		c.putCmd(),
		c.getCmd(),
		c.delCmd(),
		c.lsCmd(),
		c.batchCmd(),
	)
	return root
}

// withDB opens the store, descends into the configured namespace and runs fn.
// The store is closed afterwards, close errors are combined with fn's.
func (c *cli) withDB(cmd *cobra.Command, fn func(ctx context.Context, db sublevel.Database) error) (err error) {
	store, err := openStore(c.cfg)
	if err != nil {
		return err
	}
	log.Debugw("opened store", "backend", c.cfg.Backend, "path", c.cfg.Path)

	if c.cacheSize > 0 {
		cached, err := cachestore.New(store, c.cacheSize)
		if err != nil {
			return multierr.Append(err, store.Close())
		}
		store = cached
	}
	var reg *prometheus.Registry
	if c.stats {
		reg = prometheus.NewRegistry()
		store = measure.New(store, measure.Options{Name: c.cfg.Backend, Registerer: reg})
	}
	defer func() {
		err = multierr.Append(err, store.Close())
		if reg != nil {
			err = multierr.Append(err, printStats(cmd.ErrOrStderr(), reg))
		}
	}()

	var db sublevel.Database = sublevel.Wrap(store, nil)
	for _, name := range c.cfg.Namespace {
		if db, err = db.Sublevel(name, nil); err != nil {
			return xerrors.Errorf("namespace %q: %w", name, err)
		}
	}
	return fn(cmd.Context(), db)
}

// printStats writes one "op result count" line per operation counter.
func printStats(w io.Writer, reg *prometheus.Registry) error {
	mfs, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if mf.GetName() != "sublevel_store_ops_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			var op, result string
			for _, l := range m.GetLabel() {
				switch l.GetName() {
				case "op":
					op = l.GetValue()
				case "result":
					result = l.GetValue()
				}
			}
			fmt.Fprintf(w, "%s %s %g\n", op, result, m.GetCounter().GetValue())
		}
	}
	return nil
}

func (c *cli) putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Store a value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDB(cmd, func(ctx context.Context, db sublevel.Database) error {
				return db.Put(ctx, key.FromString(args[0]), []byte(args[1]), nil)
			})
		},
	}
}

func (c *cli) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDB(cmd, func(ctx context.Context, db sublevel.Database) error {
				v, err := db.Get(ctx, key.FromString(args[0]), nil)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(v))
				return nil
			})
		},
	}
}

func (c *cli) delCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "del <key>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDB(cmd, func(ctx context.Context, db sublevel.Database) error {
				return db.Delete(ctx, key.FromString(args[0]), nil)
			})
		},
	}
}

func (c *cli) lsCmd() *cobra.Command {
	var (
		start, end, prefix string
		reverse, keysOnly  bool
		limit              int
	)
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List records of the namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			so := &sublevel.StreamOptions{
				Range:   query.Range{Start: key.FromString(start), End: key.FromString(end)},
				Reverse: reverse,
				Limit:   limit,
			}
			if prefix != "" {
				so.Filters = append(so.Filters, query.FilterKeyPrefix{Prefix: key.FromString(prefix)})
			}
			return c.withDB(cmd, func(ctx context.Context, db sublevel.Database) error {
				stream := db.ReadStream
				if keysOnly {
					stream = db.KeyStream
				}
				res, err := stream(ctx, so)
				if err != nil {
					return err
				}
				defer res.Close()
				out := cmd.OutOrStdout()
				for r, ok := res.NextSync(); ok; r, ok = res.NextSync() {
					if r.Error != nil {
						return r.Error
					}
					if keysOnly {
						fmt.Fprintln(out, r.Key.String())
					} else {
						fmt.Fprintf(out, "%s\t%s\n", r.Key, r.Value)
					}
				}
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&start, "start", "", "first key, inclusive")
	f.StringVar(&end, "end", "", "last key, inclusive")
	f.StringVar(&prefix, "prefix", "", "only keys below this prefix")
	f.BoolVar(&reverse, "reverse", false, "iterate in descending order")
	f.BoolVar(&keysOnly, "keys", false, "print keys only")
	f.IntVar(&limit, "limit", 0, "maximum number of records, 0 for all")
	return cmd
}

// batchCmd reads "put <key> <value>" and "del <key>" lines from stdin and
// commits them as one atomic batch.
func (c *cli) batchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch",
		Short: "Apply put/del lines from stdin atomically",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := parseOps(bufio.NewScanner(cmd.InOrStdin()))
			if err != nil {
				return err
			}
			return c.withDB(cmd, func(ctx context.Context, db sublevel.Database) error {
				if err := db.Batch(ctx, ops, nil); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d operations\n", len(ops))
				return nil
			})
		},
	}
}

func parseOps(sc *bufio.Scanner) ([]sublevel.Op, error) {
	var ops []sublevel.Op
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.SplitN(line, " ", 3)
		switch {
		case fields[0] == string(sublevel.OpPut) && len(fields) == 3:
			ops = append(ops, sublevel.Op{Type: sublevel.OpPut, Key: key.FromString(fields[1]), Value: []byte(fields[2])})
		case fields[0] == string(sublevel.OpDel) && len(fields) == 2:
			ops = append(ops, sublevel.Op{Type: sublevel.OpDel, Key: key.FromString(fields[1])})
		default:
			return nil, xerrors.Errorf("line %d: %w: %q", n, sublevel.ErrInvalidOp, line)
		}
	}
	return ops, sc.Err()
}
