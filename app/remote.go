package app

import (
	"context"
	"errors"

	"github.com/igor04091968/ss-manager/database/model"
	"github.com/igor04091968/ss-manager/logger"
	"github.com/igor04091968/ss-manager/util"
)

// These methods back the bot, the API and the watchdog. Each one holds the
// action lock for its whole duration.

func (a *APP) Status(ctx context.Context) model.ServiceState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.services.SystemdService.State(ctx)
}

func (a *APP) Info(ctx context.Context) (*model.ServerInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.info(ctx)
}

func (a *APP) QRCode(ctx context.Context, size int) ([]byte, error) {
	info, err := a.Info(ctx)
	if err != nil {
		return nil, err
	}
	return util.QRPNG(info.Link, size)
}

func (a *APP) Logs(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.requireInstalled(); err != nil {
		return "", err
	}
	return a.services.SystemdService.Logs(ctx, a.settings.LogLines)
}

func (a *APP) History(limit int) ([]model.Event, error) {
	h := a.services.HistoryService
	if h == nil {
		return nil, errors.New("history is unavailable")
	}
	return h.Recent(limit)
}

// Control runs start, stop or restart by name and records it in the history.
func (a *APP) Control(ctx context.Context, name string) (bool, error) {
	action, err := ParseAction(name)
	if err != nil {
		return false, err
	}
	switch action {
	case ActionStart, ActionStop, ActionRestart:
	default:
		return false, ErrUnknownAction
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	running, err := a.controlService(ctx, action)
	a.record(action.String(), err, "")
	return running, err
}

// Watchdog records a watchdog event when the service is installed but not
// running. It reports whether it found the service down.
func (a *APP) Watchdog(ctx context.Context) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	state := a.services.SystemdService.State(ctx)
	if state != model.StateStopped {
		return false
	}
	logger.Warning("shadowsocks-rust is installed but not running")
	a.record("watchdog", errors.New("service not running"), state.String())
	return true
}

func (a *APP) record(action string, cause error, detail string) {
	h := a.services.HistoryService
	if h == nil {
		return
	}
	if err := h.Record(action, cause, detail); err != nil {
		logger.Warning("failed to record history: ", err)
	}
}
