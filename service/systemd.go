package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/igor04091968/ss-manager/database/model"
	"github.com/igor04091968/ss-manager/logger"
)

type UnitOptions struct {
	Name        string
	UnitPath    string
	ExecPath    string
	ConfigPath  string
	User        string
	SettleDelay time.Duration
}

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=Shadowsocks-rust Server ({{.Name}})
Documentation=https://github.com/shadowsocks/shadowsocks-rust
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
{{- if .User}}
User={{.User}}
{{- end}}
ExecStart={{.ExecPath}} -c {{.ConfigPath}}
Restart=on-failure
RestartSec=3s
AmbientCapabilities=CAP_NET_BIND_SERVICE
CapabilityBoundingSet=CAP_NET_BIND_SERVICE
NoNewPrivileges=true
LimitNOFILE=51200

[Install]
WantedBy=multi-user.target
`))

// RenderUnit returns the systemd unit text for opts.
func RenderUnit(opts UnitOptions) (string, error) {
	var buf bytes.Buffer
	if err := unitTemplate.Execute(&buf, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SystemdService supervises ssserver through systemctl.
type SystemdService struct {
	runner Runner
	opts   UnitOptions
	sleep  func(time.Duration)
}

func NewSystemdService(runner Runner, opts UnitOptions) *SystemdService {
	return &SystemdService{
		runner: runner,
		opts:   opts,
		sleep:  time.Sleep,
	}
}

func (s *SystemdService) unit() string {
	return s.opts.Name + ".service"
}

func (s *SystemdService) UnitPath() string {
	return s.opts.UnitPath
}

func (s *SystemdService) systemctl(ctx context.Context, args ...string) error {
	_, err := s.runner.Run(ctx, "systemctl", args...)
	return err
}

// Install writes the unit file and registers it for boot.
func (s *SystemdService) Install(ctx context.Context) error {
	content, err := RenderUnit(s.opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.opts.UnitPath), 0o755); err != nil {
		return fmt.Errorf("failed to create unit directory: %w", err)
	}
	if err := os.WriteFile(s.opts.UnitPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write unit file: %w", err)
	}
	if err := s.systemctl(ctx, "daemon-reload"); err != nil {
		return fmt.Errorf("failed to reload systemd: %w", err)
	}
	if err := s.systemctl(ctx, "enable", s.unit()); err != nil {
		return fmt.Errorf("failed to enable %s: %w", s.unit(), err)
	}
	logger.Infof("installed unit %s", s.opts.UnitPath)
	return nil
}

// Uninstall stops and disables the unit and deletes the unit file. Failing
// stop/disable calls are logged, not returned.
func (s *SystemdService) Uninstall(ctx context.Context) error {
	if err := s.systemctl(ctx, "stop", s.unit()); err != nil {
		logger.Warning("stop before uninstall failed: ", err)
	}
	if err := s.systemctl(ctx, "disable", s.unit()); err != nil {
		logger.Warning("disable before uninstall failed: ", err)
	}
	if err := os.Remove(s.opts.UnitPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove unit file: %w", err)
	}
	if err := s.systemctl(ctx, "daemon-reload"); err != nil {
		logger.Warning("daemon-reload after uninstall failed: ", err)
	}
	return nil
}

func (s *SystemdService) Start(ctx context.Context) (bool, error) {
	return s.control(ctx, "start")
}

func (s *SystemdService) Stop(ctx context.Context) (bool, error) {
	return s.control(ctx, "stop")
}

func (s *SystemdService) Restart(ctx context.Context) (bool, error) {
	return s.control(ctx, "restart")
}

// control runs verb, waits for the settle delay and reports liveness.
func (s *SystemdService) control(ctx context.Context, verb string) (bool, error) {
	if err := s.systemctl(ctx, verb, s.unit()); err != nil {
		return s.IsRunning(ctx), fmt.Errorf("failed to %s %s: %w", verb, s.unit(), err)
	}
	if s.opts.SettleDelay > 0 {
		s.sleep(s.opts.SettleDelay)
	}
	return s.IsRunning(ctx), nil
}

func (s *SystemdService) IsRunning(ctx context.Context) bool {
	return s.systemctl(ctx, "is-active", "--quiet", s.unit()) == nil
}

func (s *SystemdService) Installed() bool {
	_, err := os.Stat(s.opts.UnitPath)
	return err == nil
}

func (s *SystemdService) State(ctx context.Context) model.ServiceState {
	if !s.Installed() {
		return model.StateAbsent
	}
	if s.IsRunning(ctx) {
		return model.StateRunning
	}
	return model.StateStopped
}

// MainPID returns the supervised process id, 0 when it is not running.
func (s *SystemdService) MainPID(ctx context.Context) (int32, error) {
	out, err := s.runner.Run(ctx, "systemctl", "show", "--property", "MainPID", "--value", s.unit())
	if err != nil {
		return 0, err
	}
	pid, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unexpected MainPID %q: %w", strings.TrimSpace(string(out)), err)
	}
	return int32(pid), nil
}

// Logs returns the last n journal lines of the unit.
func (s *SystemdService) Logs(ctx context.Context, n int) (string, error) {
	out, err := s.runner.Run(ctx, "journalctl", "--unit", s.unit(), "--lines", strconv.Itoa(n), "--no-pager")
	if err != nil {
		return "", fmt.Errorf("failed to read journal: %w", err)
	}
	return string(out), nil
}
