package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/dev-tams/dirkit/internal/config"
	"github.com/dev-tams/dirkit/internal/exitcodes"
	"github.com/dev-tams/dirkit/internal/fsutil"
	"github.com/dev-tams/dirkit/internal/logging"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(exitCode(err))
	}
}

type cliState struct {
	logger *zap.Logger
}

func newApp() *cli.App {
	st := &cliState{logger: zap.NewNop()}

	return &cli.App{
		Name:  "dirkit",
		Usage: "list, filter and prune directories by modification time",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
				Usage: "log level for ad-hoc commands (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "log-dev",
				Usage: "human readable console logs",
			},
		},
		Before: func(c *cli.Context) error {
			level := c.String("log-level")
			if c.Bool("verbose") {
				level = "debug"
			}
			lg, err := logging.New(logging.Config{Level: level, Development: c.Bool("log-dev")})
			if err != nil {
				return &fsutil.ArgumentError{Name: "log-level", Reason: err.Error()}
			}
			st.logger = lg
			return nil
		},
		After: func(*cli.Context) error {
			_ = st.logger.Sync()
			return nil
		},
		// Exit codes are decided in main, not inside Run.
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			listCommand(st),
			pruneCommand(st),
			ensureCommand(),
			existsCommand(),
			catCommand(),
			writeCommand(st),
			runCommand(st),
			daemonCommand(st),
		},
	}
}

func exitCode(err error) int {
	var ec cli.ExitCoder
	switch {
	case err == nil:
		return exitcodes.Success
	case errors.As(err, &ec):
		return ec.ExitCode()
	case errors.Is(err, config.ErrInvalid), errors.Is(err, errConfigLoad):
		return exitcodes.InvalidConfig
	case fsutil.KindOf(err) == fsutil.KindInvalidArgument:
		return exitcodes.InvalidArgument
	default:
		return exitcodes.RuntimeError
	}
}

var errConfigLoad = errors.New("config")

func loadValidatedConfig(cfgPath string) (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfigLoad, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// jobLogger prefers the config's logging section unless --verbose was given.
func (st *cliState) jobLogger(c *cli.Context, cfg *config.Config) (*zap.Logger, error) {
	if c.Bool("verbose") {
		return st.logger, nil
	}
	lg, err := logging.New(logging.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development})
	if err != nil {
		return nil, fmt.Errorf("%w: logging.level: %w", config.ErrInvalid, err)
	}
	return lg, nil
}
