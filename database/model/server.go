package model

import (
	"errors"
	"fmt"
)

const (
	MethodAES256GCM        = "aes-256-gcm"
	MethodChacha20Poly1305 = "chacha20-ietf-poly1305"
	MethodXChacha20        = "xchacha20-ietf-poly1305"

	DefaultBindAddress = "0.0.0.0"
	DefaultMode        = "tcp_and_udp"
	DefaultTimeout     = 600

	MinPort = 1025
	MaxPort = 65535
)

// Methods lists the supported ciphers in menu order.
var Methods = []string{MethodAES256GCM, MethodChacha20Poly1305, MethodXChacha20}

// ServerConfig is the ssserver config file. Field names follow the
// shadowsocks-rust JSON schema.
type ServerConfig struct {
	BindAddress string `json:"server"`
	Port        int    `json:"server_port"`
	Password    string `json:"password"`
	Method      string `json:"method"`
	Mode        string `json:"mode"`
	Timeout     int    `json:"timeout"`
}

// NewServerConfig fills the fixed fields.
func NewServerConfig(port int, password, method string) *ServerConfig {
	return &ServerConfig{
		BindAddress: DefaultBindAddress,
		Port:        port,
		Password:    password,
		Method:      method,
		Mode:        DefaultMode,
		Timeout:     DefaultTimeout,
	}
}

func ValidatePort(port int) error {
	if port < MinPort || port > MaxPort {
		return fmt.Errorf("port %d out of range %d-%d", port, MinPort, MaxPort)
	}
	return nil
}

func ValidMethod(method string) bool {
	for _, m := range Methods {
		if m == method {
			return true
		}
	}
	return false
}

func (c *ServerConfig) Validate() error {
	if c.BindAddress == "" {
		return errors.New("server address is empty")
	}
	if err := ValidatePort(c.Port); err != nil {
		return err
	}
	if c.Password == "" {
		return errors.New("password is empty")
	}
	if !ValidMethod(c.Method) {
		return fmt.Errorf("unsupported method %q", c.Method)
	}
	if c.Mode != DefaultMode {
		return fmt.Errorf("unsupported mode %q", c.Mode)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %d", c.Timeout)
	}
	return nil
}

// ServiceState is derived from the unit file and systemd, never stored.
type ServiceState int

const (
	StateAbsent ServiceState = iota
	StateStopped
	StateRunning
)

func (s ServiceState) String() string {
	switch s {
	case StateStopped:
		return "installed-stopped"
	case StateRunning:
		return "installed-running"
	default:
		return "absent"
	}
}
