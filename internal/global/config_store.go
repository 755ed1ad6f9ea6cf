package global

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	ConfigTOMLFileName = "config.toml"
)

type BackendConfig struct {
	Address     string `toml:"address,omitempty"`
	Password    string `toml:"password,omitempty"`
	LastAddress string `toml:"last_address,omitempty"`
	AutoConnect bool   `toml:"auto_connect"`
}

type PlayerConfig struct {
	UUID string `toml:"uuid"`
	Name string `toml:"name"`
}

type GlobalConfig struct {
	LogLevel    string        `toml:"log_level,omitempty"`
	TickMS      int           `toml:"tick_ms,omitempty"`
	JournalPath string        `toml:"journal_path,omitempty"`
	Backend     BackendConfig `toml:"backend"`
	Player      PlayerConfig  `toml:"player"`
}

// ConfigStore reads and writes one TOML file.
type ConfigStore struct {
	path string
}

func NewConfigStore(path string) *ConfigStore {
	return &ConfigStore{path: path}
}

func (s *ConfigStore) Path() string {
	return s.path
}

// LoadOrInit reads the file, creating it with a fresh player identity when
// it does not exist yet.
func (s *ConfigStore) LoadOrInit() (GlobalConfig, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return GlobalConfig{}, err
	}
	if b, err := os.ReadFile(s.path); err == nil {
		var cfg GlobalConfig
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return GlobalConfig{}, err
		}
		norm := normalizeConfig(cfg)
		if norm.Player.UUID != cfg.Player.UUID {
			if err := writeTOMLAtomically(s.path, norm); err != nil {
				return GlobalConfig{}, err
			}
		}
		return norm, nil
	} else if !os.IsNotExist(err) {
		return GlobalConfig{}, err
	}

	cfg := normalizeConfig(GlobalConfig{})
	if err := writeTOMLAtomically(s.path, cfg); err != nil {
		return GlobalConfig{}, err
	}
	return cfg, nil
}

func (s *ConfigStore) Save(cfg GlobalConfig) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return writeTOMLAtomically(s.path, normalizeConfig(cfg))
}

// RememberBackend records the last address a connection succeeded with.
func (s *ConfigStore) RememberBackend(address string) error {
	cfg, err := s.LoadOrInit()
	if err != nil {
		return err
	}
	address = strings.TrimSpace(address)
	if address == "" || cfg.Backend.LastAddress == address {
		return nil
	}
	cfg.Backend.LastAddress = address
	return s.Save(cfg)
}

func normalizeConfig(cfg GlobalConfig) GlobalConfig {
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.TickMS < 0 {
		cfg.TickMS = 0
	}
	cfg.JournalPath = strings.TrimSpace(cfg.JournalPath)
	cfg.Backend.Address = strings.TrimSpace(cfg.Backend.Address)
	cfg.Backend.LastAddress = strings.TrimSpace(cfg.Backend.LastAddress)
	cfg.Player.Name = strings.TrimSpace(cfg.Player.Name)
	if _, err := uuid.Parse(strings.TrimSpace(cfg.Player.UUID)); err != nil {
		cfg.Player.UUID = uuid.NewString()
	} else {
		cfg.Player.UUID = strings.TrimSpace(cfg.Player.UUID)
	}
	if cfg.Player.Name == "" {
		cfg.Player.Name = "player"
	}
	return cfg
}

func writeTOMLAtomically(path string, v any) error {
	b, err := toml.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
