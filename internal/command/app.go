package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"automc/client/internal/config"
)

type Deps struct {
	LoadConfig   func() config.Config
	Run          func(context.Context, config.Config) error
	JournalList  func(ctx context.Context, cfg config.Config, limit int, out io.Writer) error
	JournalClear func(context.Context, config.Config) error
	BackendsList func(ctx context.Context, cfg config.Config, limit int, out io.Writer) error
	Version      string
}

func BuildApp(deps Deps) *cli.App {
	runFlags := []cli.Flag{
		&cli.StringFlag{Name: "backend", Usage: "backend address (host:port or ws:// URL)"},
		&cli.StringFlag{Name: "password", Usage: "backend password"},
		&cli.StringFlag{Name: "name", Usage: "player name"},
		&cli.BoolFlag{Name: "autoconnect", Usage: "connect to the backend at startup"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		&cli.IntFlag{Name: "tick-ms", Usage: "tick period in milliseconds"},
	}
	runAction := func(ctx *cli.Context) error {
		cfg := applyFlags(ctx, loadConfig(deps))
		if deps.Run == nil {
			return errors.New("run is not configured")
		}
		return deps.Run(ctx.Context, cfg)
	}

	return &cli.App{
		Name:   "automc",
		Usage:  "game automation bridge client",
		Flags:  runFlags,
		Action: runAction,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "start the headless client and tick loop",
				Flags:  runFlags,
				Action: runAction,
			},
			{
				Name:  "journal",
				Usage: "inspect the local journal",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "print recent entries, newest first",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum entries"},
						},
						Action: func(ctx *cli.Context) error {
							if deps.JournalList == nil {
								return errors.New("journal list is not configured")
							}
							return deps.JournalList(ctx.Context, loadConfig(deps), ctx.Int("limit"), ctx.App.Writer)
						},
					},
					{
						Name:  "clear",
						Usage: "delete every entry",
						Action: func(ctx *cli.Context) error {
							if deps.JournalClear == nil {
								return errors.New("journal clear is not configured")
							}
							return deps.JournalClear(ctx.Context, loadConfig(deps))
						},
					},
				},
			},
			{
				Name:  "backends",
				Usage: "list backends this client has connected to",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum entries"},
				},
				Action: func(ctx *cli.Context) error {
					if deps.BackendsList == nil {
						return errors.New("backends is not configured")
					}
					return deps.BackendsList(ctx.Context, loadConfig(deps), ctx.Int("limit"), ctx.App.Writer)
				},
			},
			{
				Name:  "version",
				Usage: "print the client version",
				Action: func(ctx *cli.Context) error {
					_, err := fmt.Fprintf(ctx.App.Writer, "automc %s\n", versionOf(deps))
					return err
				},
			},
		},
	}
}

func loadConfig(deps Deps) config.Config {
	if deps.LoadConfig != nil {
		return deps.LoadConfig()
	}
	return config.LoadConfig()
}

func applyFlags(ctx *cli.Context, cfg config.Config) config.Config {
	if ctx.IsSet("backend") {
		cfg.BackendAddr = strings.TrimSpace(ctx.String("backend"))
	}
	if ctx.IsSet("password") {
		cfg.Password = ctx.String("password")
	}
	if ctx.IsSet("name") {
		cfg.PlayerName = strings.TrimSpace(ctx.String("name"))
	}
	if ctx.IsSet("autoconnect") {
		cfg.AutoConnect = ctx.Bool("autoconnect")
	}
	if ctx.IsSet("log-level") {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(ctx.String("log-level")))
	}
	if ctx.IsSet("tick-ms") && ctx.Int("tick-ms") > 0 {
		cfg.TickInterval = time.Duration(ctx.Int("tick-ms")) * time.Millisecond
	}
	return cfg
}

func versionOf(deps Deps) string {
	if v := strings.TrimSpace(deps.Version); v != "" {
		return v
	}
	return "dev"
}
