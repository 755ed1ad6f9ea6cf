// Package application composes the bridge from explicit service objects
// and runs them under a lifecycle manager.
package application

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"automc/client/internal/actions"
	"automc/client/internal/automation"
	"automc/client/internal/chat"
	dbmodel "automc/client/internal/db"
	"automc/client/internal/historydb"
	"automc/client/internal/host"
	"automc/client/internal/hoststate"
	"automc/client/internal/inventory"
	"automc/client/internal/journal"
	"automc/client/internal/lifecycle"
	"automc/client/internal/logging"
	"automc/client/internal/progress"
	"automc/client/internal/pump"
	"automc/client/internal/router"
	"automc/client/internal/session"
	"automc/client/internal/settings"
	"automc/client/internal/tickloop"
)

var capabilities = map[string]any{
	"chat_bridge":    true,
	"mod_native":     []string{actions.OpCraft, actions.OpEnsure},
	"inventory_diff": true,
	"cancel":         true,
}

type Application struct {
	Host        *host.Headless
	Settings    *settings.Store
	Session     *session.Manager
	Pump        *pump.Pump
	Router      *router.Router
	Loop        *tickloop.Loop
	Journal     *journal.Journal
	History     *historydb.Store
	Interceptor *chat.Interceptor
	Console     *host.Console

	cfgAddr     string
	cfgPassword string
	autoConnect bool
	out         io.Writer
	logger      *slog.Logger
	gdb         *gorm.DB
	mgr         *lifecycle.Manager
}

func StartApplication(_ context.Context, opts StartOptions) (*Application, error) {
	cfg := opts.Config
	if strings.TrimSpace(cfg.PlayerUUID) == "" {
		return nil, errors.New("player uuid is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	app := &Application{
		cfgAddr:     cfg.BackendAddr,
		cfgPassword: cfg.Password,
		autoConnect: cfg.AutoConnect,
		out:         out,
		logger:      logging.Module(logger, "application"),
		mgr:         lifecycle.NewManager(logger),
	}

	if path := strings.TrimSpace(cfg.JournalPath); path != "" {
		gdb, err := dbmodel.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		j, err := journal.New(gdb, logger)
		if err != nil {
			_ = dbmodel.Close(gdb)
			return nil, err
		}
		history, err := historydb.NewStore(gdb)
		if err != nil {
			_ = dbmodel.Close(gdb)
			return nil, err
		}
		app.gdb = gdb
		app.Journal = j
		app.History = history
	}

	h := host.NewHeadless(host.HeadlessOptions{PlayerUUID: cfg.PlayerUUID, PlayerName: cfg.PlayerName, Out: out})
	store := settings.NewStore()
	p := pump.New(store, logger)

	sessOpts := session.Options{
		Dialer:        opts.Dialer,
		Settings:      store,
		Inbound:       p,
		PlayerUUID:    cfg.PlayerUUID,
		PlayerName:    cfg.PlayerName,
		ClientVersion: "automc/" + versionOr(opts.Version),
		Capabilities:  capabilities,
		Logger:        logger,
	}
	if app.Journal != nil {
		sessOpts.Journal = app.Journal
	}
	cs := opts.ConfigStore
	sessOpts.OnConnected = func(address string) {
		if cs != nil {
			if err := cs.RememberBackend(address); err != nil {
				app.logger.Warn("remember backend failed", "err", err)
			}
		}
		if app.History != nil {
			if err := app.History.Touch(address); err != nil {
				app.logger.Warn("backend history update failed", "err", err)
			}
		}
	}
	sess := session.NewManager(sessOpts)

	reporter := progress.NewReporter(sess, logger)
	if app.Journal != nil {
		reporter.SetJournal(app.Journal)
	}
	crafter := automation.NewCrafter(h, logger)
	queue := automation.NewQueue(h, crafter, reporter, logger)
	executor := actions.NewExecutor(actions.Deps{
		State:    h,
		Screens:  h,
		Blocks:   h,
		Crafter:  crafter,
		Queue:    queue,
		Reporter: reporter,
		Logger:   logger,
	})
	builder := hoststate.NewBuilder(h, store)
	limiter := chat.NewLimiter(store, h, logger)
	rt := router.New(router.Deps{
		Settings:   store,
		Chat:       limiter,
		HUD:        h,
		Executor:   executor,
		Reporter:   reporter,
		Sender:     sess,
		State:      builder,
		Queue:      queue,
		PlayerUUID: cfg.PlayerUUID,
		Logger:     logger,
	})
	watcher := inventory.NewWatcher(inventory.WatcherDeps{
		Screens:    h,
		Sender:     sess,
		Settings:   store,
		PlayerUUID: cfg.PlayerUUID,
		Logger:     logger,
	})
	loop := tickloop.New(tickloop.Deps{
		Session:    sess,
		World:      h,
		Pump:       p,
		Router:     rt,
		Watcher:    watcher,
		Queue:      queue,
		Telemetry:  builder,
		PlayerUUID: cfg.PlayerUUID,
		Interval:   cfg.TickInterval,
		Logger:     logger,
	})
	forwarder := chat.NewForwarder(sess, cfg.PlayerUUID)
	h.SetGameMessageListener(func(text string) { forwarder.OnGameMessage(text) })

	app.Host = h
	app.Settings = store
	app.Session = sess
	app.Pump = p
	app.Router = rt
	app.Loop = loop
	app.Console = host.NewConsole(h)
	app.Interceptor = chat.NewInterceptor(chat.InterceptorDeps{
		Session:    sess,
		Settings:   store,
		HUD:        h,
		PlayerUUID: cfg.PlayerUUID,
		Logger:     logger,
	})

	app.mgr.AddRun("tick-loop", loop.Run)
	if app.Journal != nil {
		app.mgr.AddRun("journal", app.Journal.Run)
	}
	if opts.Console != nil {
		console := opts.Console
		app.mgr.AddRun("console", func(ctx context.Context) error {
			return app.runConsole(ctx, console)
		})
	}
	app.mgr.AddShutdown("disconnect", func(context.Context) error {
		return sess.Close()
	})
	if app.Journal != nil {
		app.mgr.AddShutdown("journal-flush", app.Journal.Flush)
	}
	if app.gdb != nil {
		gdb := app.gdb
		app.mgr.AddShutdown("close-db", func(context.Context) error {
			return dbmodel.Close(gdb)
		})
	}
	return app, nil
}

// Run blocks until ctx is cancelled or a run job fails, then shuts down.
func (a *Application) Run(ctx context.Context) error {
	if a == nil || a.mgr == nil {
		return nil
	}
	if a.autoConnect {
		if a.cfgAddr == "" {
			a.logger.Warn("autoconnect requested without a backend address")
		} else {
			a.Session.Connect(a.cfgAddr, a.cfgPassword)
		}
	}
	return a.mgr.StartAndWait(ctx)
}

// HandleInput treats line the way the game treats the chat box: host
// commands first, then the chat interceptor, then public chat.
func (a *Application) HandleInput(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	reply, err := a.Console.Exec(line)
	switch {
	case err == nil:
		if reply != "" {
			_, _ = fmt.Fprintln(a.out, reply)
		}
		return
	case !errors.Is(err, host.ErrNotHostCommand):
		_, _ = fmt.Fprintln(a.out, err.Error())
		return
	}
	if a.Interceptor.Intercept(line) {
		return
	}
	a.Host.SubmitChat(line, host.RouteDirect)
}

func (a *Application) runConsole(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			a.logger.Warn("console read failed", "err", err)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				a.logger.Debug("console closed")
				return nil
			}
			a.HandleInput(line)
		}
	}
}

func versionOr(v string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return "dev"
}
