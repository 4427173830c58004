package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed version
var version string

//go:embed name
var name string

type LogLevel string

const (
	Debug LogLevel = "debug"
	Info  LogLevel = "info"
	Warn  LogLevel = "warn"
	Error LogLevel = "error"
)

// Environment variables that pre-fill the install and reconfig prompts.
const (
	EnvPassword = "SS_PASSWORD"
	EnvPort     = "SS_PORT"
	EnvMethod   = "SS_METHOD"
)

func GetVersion() string {
	return strings.TrimSpace(version)
}

func GetName() string {
	return strings.TrimSpace(name)
}

func GetLogLevel() LogLevel {
	if IsDebug() {
		return Debug
	}
	logLevel := os.Getenv("SSM_LOG_LEVEL")
	if logLevel == "" {
		return Info
	}
	return LogLevel(logLevel)
}

func IsDebug() bool {
	return os.Getenv("SSM_DEBUG") == "true"
}

func GetDBFolderPath() string {
	dbFolderPath := os.Getenv("SSM_DB_FOLDER")
	if dbFolderPath == "" {
		dbFolderPath = "/var/lib/" + GetName()
	}
	return dbFolderPath
}

func GetDBPath() string {
	return fmt.Sprintf("%s/%s.db", GetDBFolderPath(), GetName())
}

// GetSettingsPath returns the manager settings file; it does not have to exist.
func GetSettingsPath() string {
	if p := os.Getenv("SSM_SETTINGS"); p != "" {
		return p
	}
	return filepath.Join("/etc", GetName(), "settings.yml")
}

// Overrides holds the SS_* environment values. Empty fields were not set.
type Overrides struct {
	Password string
	Port     string
	Method   string
}

func GetOverrides() Overrides {
	return Overrides{
		Password: os.Getenv(EnvPassword),
		Port:     os.Getenv(EnvPort),
		Method:   os.Getenv(EnvMethod),
	}
}
