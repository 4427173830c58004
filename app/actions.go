package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/igor04091968/ss-manager/database/model"
	"github.com/igor04091968/ss-manager/logger"
	"github.com/igor04091968/ss-manager/service"
	"github.com/igor04091968/ss-manager/util"

	"github.com/dustin/go-humanize"
)

var ErrNotInstalled = errors.New("shadowsocks-rust is not installed, run install first")

const historyLimit = 20

func (a *APP) requireInstalled() error {
	if _, err := os.Stat(a.settings.BinaryPath); err != nil {
		return fmt.Errorf("%w (%s)", ErrNotInstalled, a.settings.BinaryPath)
	}
	return nil
}

func (a *APP) install(ctx context.Context, p *printer, pr *prompter) (string, error) {
	s := a.services
	if platform, ok := s.HostService.Platform(ctx); !ok {
		logger.Warningf("platform %q is not debian or ubuntu, continuing anyway", platform)
	}

	cfg, err := pr.ServerConfig(nil)
	if err != nil {
		return "", err
	}

	tag := a.settings.ReleaseTag
	if tag == "" {
		if tag, err = s.ReleaseService.Latest(ctx); err != nil {
			return "", err
		}
	}
	arch := a.settings.Arch
	if arch == "" {
		arch = s.HostService.KernelArch()
	}
	triple, err := service.ReleaseTriple(arch)
	if err != nil {
		return "", err
	}
	p.Printf("Downloading shadowsocks-rust %s (%s)...\n", tag, triple)
	if err = s.ReleaseService.Install(ctx, tag, triple, a.settings.BinaryPath); err != nil {
		return "", err
	}

	if err = s.ConfigService.Write(cfg); err != nil {
		return "", err
	}
	if err = s.SystemdService.Install(ctx); err != nil {
		return "", err
	}
	if err = a.firewall(ctx).Open(ctx, cfg.Port); err != nil {
		logger.Warningf("failed to open port %d: %v", cfg.Port, err)
	}
	running, err := s.SystemdService.Restart(ctx)
	if err != nil {
		return "", err
	}
	if !running {
		p.Warnf("service did not come up, check: %s showLog", a.name())
	}

	if s.HistoryService != nil {
		inst := &model.Installation{Version: tag, BinaryPath: a.settings.BinaryPath, Arch: arch}
		if err := s.HistoryService.SaveInstallation(inst); err != nil {
			logger.Warning("failed to save installation: ", err)
		}
	}
	p.Okf("Installed shadowsocks-rust %s", tag)

	info, err := a.info(ctx)
	if err != nil {
		return "", err
	}
	a.printInfo(p, info)
	return fmt.Sprintf("%s port %d", tag, cfg.Port), nil
}

// control runs start, stop or restart.
func (a *APP) control(ctx context.Context, p *printer, action Action) error {
	running, err := a.controlService(ctx, action)
	if err != nil {
		return err
	}
	p.Printf("shadowsocks-rust is %v\n", p.state(running))
	if !running && action != ActionStop {
		p.Warnf("service is not running, check: %s showLog", a.name())
	}
	return nil
}

func (a *APP) controlService(ctx context.Context, action Action) (bool, error) {
	if err := a.requireInstalled(); err != nil {
		return false, err
	}
	sd := a.services.SystemdService
	if !sd.Installed() {
		return false, fmt.Errorf("%w (no unit at %s)", ErrNotInstalled, sd.UnitPath())
	}
	switch action {
	case ActionStart:
		return sd.Start(ctx)
	case ActionStop:
		return sd.Stop(ctx)
	case ActionRestart:
		return sd.Restart(ctx)
	}
	return false, ErrUnknownAction
}

// info never changes the config or the unit.
func (a *APP) info(ctx context.Context) (*model.ServerInfo, error) {
	if err := a.requireInstalled(); err != nil {
		return nil, err
	}
	s := a.services
	cfg, err := s.ConfigService.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	host := s.AddressService.PublicAddress(ctx)
	info := &model.ServerInfo{
		State:    s.SystemdService.State(ctx).String(),
		Address:  host,
		Port:     cfg.Port,
		Password: cfg.Password,
		Method:   cfg.Method,
		Link:     util.ShadowsocksLink(cfg, host),
		Version:  a.version(ctx),
	}

	pid, err := s.SystemdService.MainPID(ctx)
	if err != nil {
		logger.Debug("main pid: ", err)
	}
	if pid > 0 {
		info.PID = pid
		if stats, err := s.HostService.ProcessStats(ctx, pid); err == nil {
			info.Memory = humanize.IBytes(stats.RSS)
			info.Uptime = stats.Uptime.String()
		} else {
			logger.Debug("process stats: ", err)
		}
	}
	return info, nil
}

func (a *APP) version(ctx context.Context) string {
	if h := a.services.HistoryService; h != nil {
		if inst, err := h.Installation(); err == nil && inst != nil {
			return inst.Version
		}
	}
	out, err := a.services.Runner.Run(ctx, a.settings.BinaryPath, "--version")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func (a *APP) printInfo(p *printer, info *model.ServerInfo) {
	p.Println("Shadowsocks server")
	p.Field("State", info.State)
	p.Field("Address", info.Address)
	p.Field("Port", info.Port)
	p.Field("Password", info.Password)
	p.Field("Method", info.Method)
	if info.Version != "" {
		p.Field("Version", info.Version)
	}
	if info.PID > 0 {
		p.Field("PID", info.PID)
		if info.Memory != "" {
			p.Field("Memory", info.Memory)
			p.Field("Uptime", info.Uptime)
		}
	}
	p.Field("Link", info.Link)
}

func (a *APP) showInfo(ctx context.Context, p *printer) error {
	info, err := a.info(ctx)
	if err != nil {
		return err
	}
	a.printInfo(p, info)
	return nil
}

func (a *APP) showQR(ctx context.Context, p *printer) error {
	info, err := a.info(ctx)
	if err != nil {
		return err
	}
	p.Println(info.Link)
	qr, err := util.QRText(info.Link)
	if err != nil {
		p.Warnf("QR code unavailable: %v", err)
		return nil
	}
	p.Println(qr)
	return nil
}

func (a *APP) showLog(ctx context.Context, p *printer) error {
	if err := a.requireInstalled(); err != nil {
		return err
	}
	out, err := a.services.SystemdService.Logs(ctx, a.settings.LogLines)
	if err != nil {
		return err
	}
	p.Printf("%s", out)
	return nil
}

func (a *APP) reconfig(ctx context.Context, p *printer, pr *prompter) (string, error) {
	if err := a.requireInstalled(); err != nil {
		return "", err
	}
	s := a.services
	current, err := s.ConfigService.Read()
	if err != nil {
		var perr *service.ConfigParseError
		if !errors.As(err, &perr) {
			return "", fmt.Errorf("failed to reconfigure: %w", err)
		}
		logger.Warning("existing config is unusable, starting from defaults: ", err)
		current = nil
	}

	cfg, err := pr.ServerConfig(current)
	if err != nil {
		return "", err
	}
	if err = s.ConfigService.Write(cfg); err != nil {
		return "", err
	}

	fw := a.firewall(ctx)
	if current != nil && current.Port != cfg.Port {
		if err := fw.Close(ctx, current.Port); err != nil {
			logger.Warningf("failed to close port %d: %v", current.Port, err)
		}
	}
	if err = fw.Open(ctx, cfg.Port); err != nil {
		logger.Warningf("failed to open port %d: %v", cfg.Port, err)
	}

	running, err := s.SystemdService.Restart(ctx)
	if err != nil {
		return "", err
	}
	if !running {
		p.Warnf("service did not come up, check: %s showLog", a.name())
	}
	p.Okf("Configuration updated")

	info, err := a.info(ctx)
	if err != nil {
		return "", err
	}
	a.printInfo(p, info)
	return fmt.Sprintf("port %d method %s", cfg.Port, cfg.Method), nil
}

// uninstall removes everything install created. Missing pieces are skipped.
func (a *APP) uninstall(ctx context.Context, p *printer, pr *prompter) error {
	ok, err := pr.Confirm("Remove shadowsocks-rust, its config and its service unit?")
	if err != nil {
		return err
	}
	if !ok {
		p.Println("Cancelled")
		return nil
	}

	s := a.services
	if cfg, err := s.ConfigService.Read(); err == nil {
		if err := a.firewall(ctx).Close(ctx, cfg.Port); err != nil {
			logger.Warningf("failed to close port %d: %v", cfg.Port, err)
		}
	}
	if err = s.SystemdService.Uninstall(ctx); err != nil {
		return err
	}
	if err = s.ConfigService.Remove(); err != nil {
		return err
	}
	if err = os.Remove(a.settings.BinaryPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove binary: %w", err)
	}
	if s.HistoryService != nil {
		if err := s.HistoryService.ClearInstallation(); err != nil {
			logger.Warning("failed to clear installation: ", err)
		}
	}
	p.Okf("shadowsocks-rust removed")
	return nil
}

func (a *APP) showHistory(p *printer) error {
	h := a.services.HistoryService
	if h == nil {
		p.Warnf("history is unavailable")
		return nil
	}
	events, err := h.Recent(historyLimit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		p.Println("No events recorded")
		return nil
	}
	for _, e := range events {
		line := fmt.Sprintf("%s  %-10s %-6s %s", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.Result, e.Detail)
		if e.Result == "ok" {
			p.Println(line)
		} else {
			p.Errf("%s", line)
		}
	}
	return nil
}

func (a *APP) menu(ctx context.Context, p *printer, pr *prompter) (Action, bool, error) {
	state := a.services.SystemdService.State(ctx)
	p.Printf("%s %s  shadowsocks-rust: %v\n\n", a.name(), versionString(), p.au.Bold(state.String()))
	for i := 1; i < len(menuEntries); i++ {
		p.Printf("  %2d. %s\n", i, menuEntries[i].label)
	}
	p.Printf("  %2d. %s\n\n", 0, menuEntries[0].label)

	n, ok, err := pr.Choice(len(menuEntries) - 1)
	if err != nil || !ok || n == 0 {
		return ActionMenu, false, err
	}
	return menuEntries[n].action, true, nil
}
