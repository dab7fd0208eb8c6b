// Package cli implements the gophdrive operator command line: every
// command opens the configured storage engine, runs one operation on behalf
// of --owner and prints the result.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/server"
	"github.com/dmitrijs2005/gophdrive/internal/server/config"
	"github.com/urfave/cli/v3"
)

// newApp is a test seam for server.NewApp.
var newApp = server.NewApp

// session is the state shared by the root command and its subcommands.
type session struct {
	app   *server.App
	owner string
}

// NewCommand builds the gophdrive root command.
func NewCommand() *cli.Command {
	s := &session{}

	return &cli.Command{
		Name:  "gophdrive",
		Usage: "Manage per-owner folder trees, files and versions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "JSON or YAML config file",
			},
			&cli.StringFlag{
				Name:  "dsn",
				Usage: "metadata database DSN",
			},
			&cli.StringFlag{
				Name:  "driver",
				Usage: "metadata database driver [pgx|sqlite]",
			},
			&cli.StringFlag{
				Name:  "storage-root",
				Usage: "root directory of the local storage backend",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:     "owner",
				Usage:    "owner id to act as",
				Required: true,
				Sources:  cli.EnvVars(config.EnvPrefix + "OWNER"),
			},
		},
		Before: s.open,
		After:  s.close,
		// errors are reported by the caller through Describe and ExitCode
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Commands: []*cli.Command{
			s.mkdirCmd(),
			s.uploadCmd(),
			s.downloadCmd(),
			s.lsCmd(),
			s.infoCmd(),
			s.mvCmd(),
			s.renameCmd(),
			s.rmCmd(),
			s.findCmd(),
			s.versionsCmd(),
			s.quotaCmd(),
			s.favCmd(),
			s.favoritesCmd(),
			s.verifyCmd(),
			s.urlCmd(),
			s.teardownCmd(),
		},
	}
}

// loadConfig reads the config file and environment and applies the
// root command's flag overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if v := cmd.String("dsn"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := cmd.String("driver"); v != "" {
		cfg.DatabaseDriver = v
	}
	if v := cmd.String("storage-root"); v != "" {
		cfg.StorageBackend = config.BackendLocal
		cfg.StorageRoot = v
	}
	if v := cmd.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	return cfg, nil
}

func (s *session) open(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	// usage errors and bare help need no engine
	if cmd.Args().Len() == 0 || cmd.String("owner") == "" {
		return ctx, nil
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return ctx, err
	}
	app, err := newApp(ctx, cfg)
	if err != nil {
		return ctx, err
	}
	s.app = app
	s.owner = cmd.String("owner")
	return ctx, nil
}

func (s *session) close(ctx context.Context, cmd *cli.Command) error {
	if s.app == nil {
		return nil
	}
	err := s.app.Close()
	s.app = nil
	return err
}

// Exit codes returned by ExitCode.
const (
	ExitFailure  = 1
	ExitInvalid  = 2
	ExitNotFound = 3
	ExitConflict = 4
)

// ExitCode maps an error returned by the root command to a process exit
// code.
func ExitCode(err error) int {
	var ec cli.ExitCoder
	switch {
	case err == nil:
		return 0
	case errors.As(err, &ec):
		return ec.ExitCode()
	case errors.Is(err, common.ErrorNotFound):
		return ExitNotFound
	case errors.Is(err, common.ErrNameConflict), errors.Is(err, common.ErrQuotaExceeded):
		return ExitConflict
	case common.IsValidation(err):
		return ExitInvalid
	}
	return ExitFailure
}

// Describe renders err for the operator, prefixed with the matching gRPC
// status code name.
func Describe(err error) string {
	return fmt.Sprintf("%s: %v", common.GRPCStatus(err).Code(), err)
}
