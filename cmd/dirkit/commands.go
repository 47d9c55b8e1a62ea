package main

import (
	"fmt"
	"io"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/dev-tams/dirkit/internal/app"
	"github.com/dev-tams/dirkit/internal/config"
	"github.com/dev-tams/dirkit/internal/exitcodes"
	"github.com/dev-tams/dirkit/internal/fsutil"
	"github.com/dev-tams/dirkit/internal/listing"
	"github.com/dev-tams/dirkit/internal/metrics"
	"github.com/dev-tams/dirkit/internal/retention"
	"github.com/dev-tams/dirkit/internal/storage/local"
)

func nameFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "pattern",
			Usage: "keep only names matching this regular expression",
		},
		&cli.StringFlag{
			Name:  "glob",
			Usage: "keep only names matching this glob, e.g. 'app-*.log'",
		},
	}
}

func concurrencyFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "concurrency",
		Usage: "max in-flight filesystem calls, 0 for one per entry",
	}
}

func namePattern(c *cli.Context) (listing.NamePattern, error) {
	pattern, glob := c.String("pattern"), c.String("glob")
	switch {
	case pattern != "" && glob != "":
		return nil, &fsutil.ArgumentError{Name: "pattern", Reason: "--pattern and --glob are mutually exclusive"}
	case pattern != "":
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, &fsutil.ArgumentError{Name: "pattern", Reason: err.Error()}
		}
		return re, nil
	case glob != "":
		return listing.Glob(glob)
	default:
		return nil, nil
	}
}

func dirArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", &fsutil.ArgumentError{Name: "path", Reason: fmt.Sprintf("expected exactly one argument, got %d", c.NArg())}
	}
	return c.Args().First(), nil
}

func listCommand(st *cliState) *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "list a directory newest first, optionally filtered",
		ArgsUsage: "DIR",
		Flags: append(nameFlags(),
			&cli.BoolFlag{Name: "files", Usage: "include plain files (setting --files or --symlinks drops the other kind)"},
			&cli.BoolFlag{Name: "symlinks", Usage: "include symbolic links"},
			&cli.BoolFlag{Name: "exclude-empty", Usage: "drop zero-length entries"},
			&cli.StringFlag{Name: "modified-after", Usage: "timestamp (keep entries at or before it) or window such as 36h or 10000 ms (keep entries younger than it)"},
			&cli.StringFlag{Name: "modified-before", Usage: "timestamp (keep entries at or after it) or window (keep entries at least that old)"},
			&cli.BoolFlag{Name: "oldest-first", Usage: "reverse the default order"},
			&cli.BoolFlag{Name: "long", Aliases: []string{"l"}, Usage: "print modification time and size"},
			concurrencyFlag(),
		),
		Action: func(c *cli.Context) error {
			dir, err := dirArg(c)
			if err != nil {
				return err
			}
			filter, err := filterFromFlags(c)
			if err != nil {
				return err
			}
			opts := listing.Options{Filter: filter}
			if c.Bool("oldest-first") {
				opts.Sort = listing.OldestFirst
			}

			l := listing.New(local.New("local"),
				listing.WithLogger(st.logger),
				listing.WithConcurrency(c.Int("concurrency")),
			)
			entries, err := l.Entries(c.Context, dir, opts)
			if err != nil {
				return err
			}

			w := c.App.Writer
			for _, e := range entries {
				if !c.Bool("long") {
					fmt.Fprintln(w, e.Path)
					continue
				}
				kind := "-"
				if e.IsSymlink {
					kind = "l"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", kind, e.ModTime.Format(time.RFC3339), e.Size, e.Path)
			}
			return nil
		},
	}
}

func filterFromFlags(c *cli.Context) (listing.FilterSpec, error) {
	var spec listing.FilterSpec

	name, err := namePattern(c)
	if err != nil {
		return spec, err
	}
	spec.Name = name

	if c.IsSet("files") || c.IsSet("symlinks") {
		spec.Type = &listing.TypeFilter{Files: c.Bool("files"), Symlinks: c.Bool("symlinks")}
	}
	spec.ExcludeEmpty = c.Bool("exclude-empty")

	if spec.ModifiedAfter, err = listing.ParseTimeBound(c.String("modified-after")); err != nil {
		return spec, err
	}
	if spec.ModifiedBefore, err = listing.ParseTimeBound(c.String("modified-before")); err != nil {
		return spec, err
	}
	return spec, nil
}

func pruneCommand(st *cliState) *cli.Command {
	return &cli.Command{
		Name:      "prune",
		Usage:     "delete all but the N most recently modified entries",
		ArgsUsage: "DIR",
		Flags: append(nameFlags(),
			&cli.IntFlag{Name: "retain", Required: true, Usage: "number of newest entries to keep"},
			&cli.IntFlag{Name: "keep-daily", Usage: "also keep the newest entry of each of the last N days"},
			&cli.IntFlag{Name: "keep-weekly", Usage: "also keep the newest entry of each of the last N ISO weeks"},
			&cli.IntFlag{Name: "keep-monthly", Usage: "also keep the newest entry of each of the last N months"},
			&cli.BoolFlag{Name: "dry-run", Usage: "print what would be deleted without deleting"},
			concurrencyFlag(),
		),
		Action: func(c *cli.Context) error {
			dir, err := dirArg(c)
			if err != nil {
				return err
			}
			name, err := namePattern(c)
			if err != nil {
				return err
			}

			pruner := retention.New(local.New("local"),
				retention.WithLogger(st.logger),
				retention.WithConcurrency(c.Int("concurrency")),
				retention.WithDryRun(c.Bool("dry-run")),
			)
			res, err := pruner.Apply(c.Context, dir, listing.FilterSpec{Name: name}, retention.Policy{
				RetainCount: c.Int("retain"),
				KeepDaily:   c.Int("keep-daily"),
				KeepWeekly:  c.Int("keep-weekly"),
				KeepMonthly: c.Int("keep-monthly"),
			})
			verb := "removed"
			if res.DryRun {
				verb = "would remove"
			}
			for _, p := range res.Deleted {
				fmt.Fprintf(c.App.Writer, "%s %s\n", verb, p)
			}
			return err
		},
	}
}

func ensureCommand() *cli.Command {
	return &cli.Command{
		Name:      "ensure",
		Usage:     "create a directory and any missing parents",
		ArgsUsage: "DIR",
		Action: func(c *cli.Context) error {
			return fsutil.EnsurePath(afero.NewOsFs(), c.Args().First())
		},
	}
}

func existsCommand() *cli.Command {
	return &cli.Command{
		Name:      "exists",
		Usage:     "exit 0 when PATH exists (symlinks are not followed), 1 otherwise",
		ArgsUsage: "PATH",
		Action: func(c *cli.Context) error {
			if !fsutil.Exists(afero.NewOsFs(), c.Args().First()) {
				return cli.Exit("", exitcodes.Failure)
			}
			return nil
		},
	}
}

func catCommand() *cli.Command {
	return &cli.Command{
		Name:      "cat",
		Usage:     "print a file",
		ArgsUsage: "FILE",
		Action: func(c *cli.Context) error {
			data, err := fsutil.ReadFile(afero.NewOsFs(), c.Args().First())
			if err != nil {
				return err
			}
			_, err = c.App.Writer.Write(data)
			return err
		},
	}
}

func writeCommand(st *cliState) *cli.Command {
	return &cli.Command{
		Name:      "write",
		Usage:     "write stdin to FILE, replacing it unless --append is given",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "append", Usage: "append instead of replacing"},
			&cli.BoolFlag{Name: "try", Usage: "report a failed write but exit 0"},
		},
		Action: func(c *cli.Context) error {
			fsys := afero.NewOsFs()
			path := c.Args().First()

			switch {
			case c.Bool("append"):
				data, err := io.ReadAll(c.App.Reader)
				if err != nil {
					return err
				}
				return fsutil.AppendFile(fsys, path, data)

			case c.Bool("try"):
				data, err := io.ReadAll(c.App.Reader)
				if err != nil {
					return err
				}
				if res := fsutil.TryWriteFile(fsys, path, data); !res.OK() {
					st.logger.Warn("write failed", zap.String("path", path), zap.Error(res.Err))
					fmt.Fprintf(c.App.ErrWriter, "write failed: %v\n", res.Err)
				}
				return nil

			default:
				return fsutil.WriteFrom(fsys, path, c.App.Reader)
			}
		},
	}
}

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Required: true,
			Usage:    "path to config yaml",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "override the config and only report what would be deleted",
		},
	}
}

func runCommand(st *cliState) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "prune every configured target once",
		Flags: configFlags(),
		Action: func(c *cli.Context) error {
			cfg, err := loadValidatedConfig(c.String("config"))
			if err != nil {
				return err
			}
			if c.Bool("dry-run") {
				cfg.DryRun = true
			}
			logger, err := st.jobLogger(c, cfg)
			if err != nil {
				return err
			}

			results, err := app.RunJobs(c.Context, cfg, app.Options{Logger: logger})
			for _, r := range results {
				fmt.Fprintf(c.App.Writer, "%s\t%s\tkept=%d\tdeleted=%d\t%s\n",
					r.Target, r.Status, len(r.Kept), len(r.Deleted), r.Duration.Round(time.Millisecond))
			}
			return err
		},
	}
}

func daemonCommand(st *cliState) *cli.Command {
	return &cli.Command{
		Name:  "daemon",
		Usage: "prune targets on their schedules",
		Flags: append(configFlags(),
			&cli.DurationFlag{
				Name:  "run-timeout",
				Usage: "abort when one minute's jobs take longer than this",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "reload the config file when it changes",
			},
		),
		Action: func(c *cli.Context) error {
			cfgPath := c.String("config")
			cfg, err := loadValidatedConfig(cfgPath)
			if err != nil {
				return err
			}
			dryRun := c.Bool("dry-run")
			if dryRun {
				cfg.DryRun = true
			}
			logger, err := st.jobLogger(c, cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			m, err := metrics.New(reg)
			if err != nil {
				return err
			}
			if cfg.Metrics.Listen != "" {
				go func() {
					if err := metrics.Serve(ctx, cfg.Metrics.Listen, reg, logger); err != nil {
						logger.Error("metrics server stopped", zap.Error(err))
					}
				}()
			}

			var reload chan *config.Config
			if c.Bool("watch") {
				reload = make(chan *config.Config, 1)
				err := config.Watch(cfgPath, logger, func(next *config.Config) {
					if dryRun {
						next.DryRun = true
					}
					select {
					case reload <- next:
					default:
						// Drop the stale pending config in favour of this one.
						select {
						case <-reload:
						default:
						}
						reload <- next
					}
				})
				if err != nil {
					return fmt.Errorf("%w: %w", errConfigLoad, err)
				}
			}

			return app.RunDaemon(ctx, cfg, app.DaemonOptions{
				Options:    app.Options{Logger: logger, Metrics: m},
				RunTimeout: c.Duration("run-timeout"),
				Reload:     reload,
			})
		},
	}
}
