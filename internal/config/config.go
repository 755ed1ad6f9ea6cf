package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"automc/client/internal/global"
)

// Config is bootstrap-only: how to reach the backend and who the player is.
// Operational knobs come from the backend's settings messages.
type Config struct {
	BackendAddr  string
	Password     string
	PlayerUUID   string
	PlayerName   string
	LogLevel     string
	TickInterval time.Duration
	JournalPath  string
	AutoConnect  bool
	ConfigFile   string
}

var defaultTickMS = 50

// LoadConfig reads the AUTOMC_* environment.
func LoadConfig() Config {
	level := os.Getenv("AUTOMC_LOG_LEVEL")
	tickMS := atoiOrDefault(os.Getenv("AUTOMC_TICK_MS"), 0)

	cfg := Config{
		BackendAddr: strings.TrimSpace(os.Getenv("AUTOMC_BACKEND_ADDR")),
		Password:    os.Getenv("AUTOMC_PASSWORD"),
		PlayerUUID:  strings.TrimSpace(os.Getenv("AUTOMC_PLAYER_UUID")),
		PlayerName:  strings.TrimSpace(os.Getenv("AUTOMC_PLAYER_NAME")),
		LogLevel:    strings.ToLower(strings.TrimSpace(level)),
		JournalPath: strings.TrimSpace(os.Getenv("AUTOMC_JOURNAL_PATH")),
		AutoConnect: isTrue(os.Getenv("AUTOMC_AUTOCONNECT")),
		ConfigFile:  strings.TrimSpace(os.Getenv("AUTOMC_CONFIG_FILE")),
	}
	if tickMS > 0 {
		cfg.TickInterval = time.Duration(tickMS) * time.Millisecond
	}
	return cfg
}

// Merge fills every field the environment left empty from the TOML file,
// then applies the remaining defaults. The environment always wins.
func Merge(cfg Config, file global.GlobalConfig, configDir string) Config {
	if cfg.BackendAddr == "" {
		cfg.BackendAddr = file.Backend.Address
	}
	if cfg.BackendAddr == "" {
		cfg.BackendAddr = file.Backend.LastAddress
	}
	if cfg.Password == "" {
		cfg.Password = file.Backend.Password
	}
	if cfg.PlayerUUID == "" {
		cfg.PlayerUUID = file.Player.UUID
	}
	if cfg.PlayerName == "" {
		cfg.PlayerName = file.Player.Name
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = file.LogLevel
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.TickInterval <= 0 && file.TickMS > 0 {
		cfg.TickInterval = time.Duration(file.TickMS) * time.Millisecond
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Duration(defaultTickMS) * time.Millisecond
	}
	if cfg.JournalPath == "" {
		cfg.JournalPath = file.JournalPath
	}
	if cfg.JournalPath == "" && configDir != "" {
		cfg.JournalPath = filepath.Join(configDir, "automc.db")
	}
	if !cfg.AutoConnect {
		cfg.AutoConnect = file.Backend.AutoConnect
	}
	return cfg
}

// ConfigFilePath resolves the TOML location: AUTOMC_CONFIG_FILE or
// <configDir>/config.toml.
func ConfigFilePath(cfg Config, configDir string) string {
	if cfg.ConfigFile != "" {
		return cfg.ConfigFile
	}
	return filepath.Join(configDir, global.ConfigTOMLFileName)
}

func isTrue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func atoiOrDefault(v string, fallback int) int {
	n := 0
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return fallback
		}
		n = n*10 + int(v[i]-'0')
	}
	if n == 0 {
		return fallback
	}
	return n
}
