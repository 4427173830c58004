package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings controls where ssm puts things and which optional surfaces run
// in watch mode. Arch overrides the detected kernel architecture when
// picking the release asset.
type Settings struct {
	ServiceName string        `yaml:"service_name"`
	BinaryPath  string        `yaml:"binary_path"`
	ConfigPath  string        `yaml:"config_path"`
	UnitPath    string        `yaml:"unit_path"`
	UnitUser    string        `yaml:"unit_user"`
	ReleaseTag  string        `yaml:"release_tag"`
	Arch        string        `yaml:"arch"`
	ReleaseAPI  string        `yaml:"release_api"`
	ReleaseURL  string        `yaml:"release_url"`
	IPEndpoint  string        `yaml:"ip_endpoint"`
	IPTimeout   time.Duration `yaml:"ip_timeout"`
	SettleDelay time.Duration `yaml:"settle_delay"`
	LogLines    int           `yaml:"log_lines"`

	Watchdog WatchdogSettings `yaml:"watchdog"`
	Telegram TelegramSettings `yaml:"telegram"`
	API      APISettings      `yaml:"api"`
}

type WatchdogSettings struct {
	Spec        string `yaml:"spec"`
	HistoryDays int    `yaml:"history_days"`
}

type TelegramSettings struct {
	Enabled      bool    `yaml:"enabled"`
	BotToken     string  `yaml:"bot_token"`
	AdminUserIDs []int64 `yaml:"admin_user_ids"`
}

type APISettings struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Token   string `yaml:"token"`
}

func DefaultSettings() *Settings {
	return &Settings{
		ServiceName: "shadowsocks-rust",
		BinaryPath:  "/usr/local/bin/ssserver",
		ConfigPath:  "/etc/shadowsocks-rust/config.json",
		UnitPath:    "/etc/systemd/system/shadowsocks-rust.service",
		ReleaseAPI:  "https://api.github.com/repos/shadowsocks/shadowsocks-rust/releases/latest",
		ReleaseURL:  "https://github.com/shadowsocks/shadowsocks-rust/releases/download",
		IPEndpoint:  "https://api.ipify.org",
		IPTimeout:   5 * time.Second,
		SettleDelay: 2 * time.Second,
		LogLines:    50,
		Watchdog: WatchdogSettings{
			Spec:        "@every 1m",
			HistoryDays: 30,
		},
		API: APISettings{
			Listen: "127.0.0.1:2096",
		},
	}
}

// LoadSettings reads the yaml file at path on top of the defaults. A missing
// file yields the defaults.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return s, nil
}

func (s *Settings) validate() error {
	switch {
	case s.ServiceName == "":
		return errors.New("service_name is empty")
	case s.BinaryPath == "":
		return errors.New("binary_path is empty")
	case s.ConfigPath == "":
		return errors.New("config_path is empty")
	case s.UnitPath == "":
		return errors.New("unit_path is empty")
	case s.IPTimeout <= 0:
		return errors.New("ip_timeout must be positive")
	case s.SettleDelay < 0:
		return errors.New("settle_delay must not be negative")
	case s.LogLines <= 0:
		return errors.New("log_lines must be positive")
	}
	if s.Telegram.Enabled && s.Telegram.BotToken == "" {
		return errors.New("telegram is enabled without bot_token")
	}
	if s.API.Enabled && s.API.Token == "" {
		return errors.New("api is enabled without token")
	}
	return nil
}
