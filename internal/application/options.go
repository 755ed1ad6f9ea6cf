package application

import (
	"io"
	"log/slog"

	"automc/client/internal/config"
	"automc/client/internal/global"
	"automc/client/internal/transport"
)

// StartOptions carries everything StartApplication needs; only Config is
// required.
type StartOptions struct {
	Config  config.Config
	Version string
	// ConfigStore, when set, remembers the last backend that accepted a
	// connection.
	ConfigStore *global.ConfigStore
	Dialer      transport.Dialer
	// Console is read line by line as player input. Nil disables it.
	Console io.Reader
	// Out receives HUD lines and console replies.
	Out    io.Writer
	Logger *slog.Logger
}
