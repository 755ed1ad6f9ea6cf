package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"gorm.io/gorm"

	"automc/client/internal/application"
	"automc/client/internal/command"
	"automc/client/internal/config"
	"automc/client/internal/db"
	"automc/client/internal/global"
	"automc/client/internal/historydb"
	"automc/client/internal/journal"
	"automc/client/internal/logging"
)

var version = "dev"

var startApplication = application.StartApplication

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := command.BuildApp(command.Deps{
		LoadConfig: loadConfig,
		Run: func(ctx context.Context, cfg config.Config) error {
			return runClient(ctx, cfg, os.Stdin, os.Stdout)
		},
		JournalList:  runJournalList,
		JournalClear: runJournalClear,
		BackendsList: runBackendsList,
		Version:      version,
	})

	if err := app.RunContext(rootCtx, os.Args); err != nil {
		logging.NewLogger(logging.Options{Level: "error", Writer: os.Stderr}).Error("automc failed", "err", err)
		os.Exit(1)
	}
}

// loadConfig layers the environment over config.toml. A broken config file
// is reported and ignored so the environment alone can still start the client.
func loadConfig() config.Config {
	cfg := config.LoadConfig()
	dir, err := global.DefaultConfigDir()
	if err != nil {
		return config.Merge(cfg, global.GlobalConfig{}, "")
	}
	store := global.NewConfigStore(config.ConfigFilePath(cfg, dir))
	file, err := store.LoadOrInit()
	if err != nil {
		fmt.Fprintf(os.Stderr, "automc: ignoring config file: %v\n", err)
	}
	merged := config.Merge(cfg, file, dir)
	merged.ConfigFile = store.Path()
	return merged
}

func runClient(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer) error {
	logger := logging.NewLogger(logging.Options{Level: cfg.LogLevel, Writer: os.Stderr})
	var store *global.ConfigStore
	if cfg.ConfigFile != "" {
		store = global.NewConfigStore(cfg.ConfigFile)
	}
	app, err := startApplication(ctx, application.StartOptions{
		Config:      cfg,
		Version:     version,
		ConfigStore: store,
		Console:     in,
		Out:         out,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	logger.Info("client started", "player", cfg.PlayerName, "player_uuid", cfg.PlayerUUID, "journal", cfg.JournalPath)
	_, _ = fmt.Fprintln(out, "type /help for host commands, !connect <ip:port> <password> to reach a backend")
	return app.Run(ctx)
}

func openDB(cfg config.Config) (*gorm.DB, error) {
	if cfg.JournalPath == "" {
		return nil, errors.New("journal path is not configured")
	}
	return db.Open(cfg.JournalPath)
}

func openJournal(cfg config.Config) (*journal.Journal, func(), error) {
	gdb, err := openDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	j, err := journal.New(gdb, nil)
	if err != nil {
		_ = db.Close(gdb)
		return nil, nil, err
	}
	return j, func() { _ = db.Close(gdb) }, nil
}

func runJournalList(_ context.Context, cfg config.Config, limit int, out io.Writer) error {
	j, closeFn, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	entries, err := j.List(limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, err = fmt.Fprintln(out, "journal empty")
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintln(out, formatEntry(e)); err != nil {
			return err
		}
	}
	return nil
}

func runJournalClear(_ context.Context, cfg config.Config) error {
	j, closeFn, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	return j.Clear()
}

func formatEntry(e journal.Entry) string {
	line := fmt.Sprintf("%s %-8s %-20s", e.At.Format("2006-01-02T15:04:05.000"), e.Direction, e.Type)
	if e.ActionID != "" {
		line += " action=" + e.ActionID
	}
	if e.Status != "" {
		line += " status=" + e.Status
	}
	if e.Detail != "" {
		line += " " + e.Detail
	}
	return line
}

func runBackendsList(_ context.Context, cfg config.Config, limit int, out io.Writer) error {
	gdb, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(gdb) }()
	store, err := historydb.NewStore(gdb)
	if err != nil {
		return err
	}
	entries, err := store.List(limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, err = fmt.Fprintln(out, "no backends yet")
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(out, "%-30s last=%s connects=%d\n", e.Address, e.LastConnected.Format("2006-01-02 15:04:05"), e.Connects); err != nil {
			return err
		}
	}
	return nil
}
