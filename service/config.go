package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/igor04091968/ss-manager/database/model"
)

// ErrConfigNotFound is returned by Read when there is no config file.
var ErrConfigNotFound = errors.New("server config not found")

// ConfigParseError means the file exists but is not a usable config.
type ConfigParseError struct {
	Path string
	Err  error
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("malformed server config %s: %v", e.Path, e.Err)
}

func (e *ConfigParseError) Unwrap() error {
	return e.Err
}

// ConfigService owns the single ssserver config file. The password is
// stored in clear text, so the file is kept at mode 0600.
type ConfigService struct {
	path string
}

func NewConfigService(path string) *ConfigService {
	return &ConfigService{path: path}
}

func (s *ConfigService) Path() string {
	return s.path
}

func (s *ConfigService) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

func (s *ConfigService) Write(cfg *model.ServerConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("refusing to write invalid config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	// written to a 0600 temp file, then renamed over the old one
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".config-*.json")
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to restrict config permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (s *ConfigService) Read() (*model.ServerConfig, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg model.ServerConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigParseError{Path: s.path, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigParseError{Path: s.path, Err: err}
	}
	return &cfg, nil
}

// Remove deletes the config file and its directory when that is left empty.
func (s *ConfigService) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove config: %w", err)
	}
	// only succeeds on an empty directory
	_ = os.Remove(filepath.Dir(s.path))
	return nil
}
