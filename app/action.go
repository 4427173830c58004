package app

import (
	"errors"
	"fmt"
)

var ErrUnknownAction = errors.New("unknown action")

type Action int

const (
	ActionMenu Action = iota
	ActionInstall
	ActionStart
	ActionRestart
	ActionStop
	ActionShowInfo
	ActionShowQR
	ActionShowLog
	ActionReconfig
	ActionUninstall
	ActionHistory
	ActionWatch
)

var actionNames = []string{
	ActionMenu:      "menu",
	ActionInstall:   "install",
	ActionStart:     "start",
	ActionRestart:   "restart",
	ActionStop:      "stop",
	ActionShowInfo:  "showInfo",
	ActionShowQR:    "showQR",
	ActionShowLog:   "showLog",
	ActionReconfig:  "reconfig",
	ActionUninstall: "uninstall",
	ActionHistory:   "history",
	ActionWatch:     "watch",
}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return fmt.Sprintf("Action(%d)", int(a))
	}
	return actionNames[a]
}

func ParseAction(name string) (Action, error) {
	for i, n := range actionNames {
		if n == name {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// ActionNames lists every CLI action name in enum order.
func ActionNames() []string {
	return append([]string(nil), actionNames...)
}

// Mutating actions change the config file, the unit or the process.
func (a Action) Mutating() bool {
	switch a {
	case ActionInstall, ActionStart, ActionRestart, ActionStop, ActionReconfig, ActionUninstall:
		return true
	}
	return false
}

// menuEntries is the numbered menu; index 0 is Exit.
var menuEntries = []struct {
	label  string
	action Action
}{
	{"Exit", ActionMenu},
	{"Install", ActionInstall},
	{"Start", ActionStart},
	{"Stop", ActionStop},
	{"Restart", ActionRestart},
	{"Show connection info", ActionShowInfo},
	{"Show QR code", ActionShowQR},
	{"Show log", ActionShowLog},
	{"Reconfigure", ActionReconfig},
	{"Uninstall", ActionUninstall},
	{"History", ActionHistory},
}
