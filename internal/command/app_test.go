package command

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"automc/client/internal/config"
)

func TestBuildApp_DefaultCommandIsRun(t *testing.T) {
	runCalled := 0
	app := BuildApp(Deps{
		LoadConfig: func() config.Config {
			return config.Config{BackendAddr: "env:1"}
		},
		Run: func(_ context.Context, cfg config.Config) error {
			runCalled++
			if cfg.BackendAddr != "env:1" {
				t.Fatalf("unexpected backend %q", cfg.BackendAddr)
			}
			return nil
		},
	})
	if err := app.RunContext(context.Background(), []string{"automc"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if runCalled != 1 {
		t.Fatalf("expected run called once, got %d", runCalled)
	}
}

func TestBuildApp_RunFlagsOverrideConfig(t *testing.T) {
	var got config.Config
	app := BuildApp(Deps{
		LoadConfig: func() config.Config {
			return config.Config{BackendAddr: "env:1", PlayerName: "steve", TickInterval: 50 * time.Millisecond}
		},
		Run: func(_ context.Context, cfg config.Config) error {
			got = cfg
			return nil
		},
	})
	args := []string{"automc", "run", "--backend", "flag:2", "--autoconnect", "--tick-ms", "20", "--log-level", "DEBUG"}
	if err := app.RunContext(context.Background(), args); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got.BackendAddr != "flag:2" || !got.AutoConnect || got.TickInterval != 20*time.Millisecond || got.LogLevel != "debug" {
		t.Fatalf("flags not applied: %+v", got)
	}
	if got.PlayerName != "steve" {
		t.Fatalf("unset flags must keep config values, got %+v", got)
	}
}

func TestBuildApp_JournalCommands(t *testing.T) {
	gotLimit := 0
	cleared := 0
	app := BuildApp(Deps{
		LoadConfig: func() config.Config { return config.Config{} },
		JournalList: func(_ context.Context, _ config.Config, limit int, out io.Writer) error {
			gotLimit = limit
			_, err := io.WriteString(out, "ok\n")
			return err
		},
		JournalClear: func(context.Context, config.Config) error {
			cleared++
			return nil
		},
	})
	var out bytes.Buffer
	app.Writer = &out
	if err := app.RunContext(context.Background(), []string{"automc", "journal", "list", "--limit", "5"}); err != nil {
		t.Fatalf("journal list failed: %v", err)
	}
	if gotLimit != 5 || out.String() != "ok\n" {
		t.Fatalf("unexpected list call limit=%d out=%q", gotLimit, out.String())
	}
	if err := app.RunContext(context.Background(), []string{"automc", "journal", "clear"}); err != nil {
		t.Fatalf("journal clear failed: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected clear once, got %d", cleared)
	}
}

func TestBuildApp_Version(t *testing.T) {
	app := BuildApp(Deps{Version: "0.3.0"})
	var out bytes.Buffer
	app.Writer = &out
	if err := app.RunContext(context.Background(), []string{"automc", "version"}); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if strings.TrimSpace(out.String()) != "automc 0.3.0" {
		t.Fatalf("unexpected version output %q", out.String())
	}
}

func TestBuildApp_MissingRunner(t *testing.T) {
	app := BuildApp(Deps{LoadConfig: func() config.Config { return config.Config{} }})
	if err := app.RunContext(context.Background(), []string{"automc", "run"}); err == nil {
		t.Fatal("expected an error without a runner")
	}
}

func TestBuildApp_BackendsCommand(t *testing.T) {
	var gotLimit int
	app := BuildApp(Deps{
		LoadConfig: func() config.Config { return config.Config{} },
		BackendsList: func(_ context.Context, _ config.Config, limit int, out io.Writer) error {
			gotLimit = limit
			_, err := io.WriteString(out, "127.0.0.1:8765\n")
			return err
		},
	})
	var out bytes.Buffer
	app.Writer = &out
	if err := app.RunContext(context.Background(), []string{"automc", "backends"}); err != nil {
		t.Fatalf("backends failed: %v", err)
	}
	if gotLimit != 20 || out.String() != "127.0.0.1:8765\n" {
		t.Fatalf("unexpected limit=%d out=%q", gotLimit, out.String())
	}
}
