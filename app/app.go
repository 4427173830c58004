package app

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"sync"

	"github.com/igor04091968/ss-manager/config"
	"github.com/igor04091968/ss-manager/database"
	"github.com/igor04091968/ss-manager/logger"
	"github.com/igor04091968/ss-manager/service"

	"github.com/op/go-logging"
	"golang.org/x/term"
)

var ErrNotRoot = errors.New("this command must be run as root")

type APP struct {
	settings *config.Settings
	services *service.ServicesBundle
	in       io.Reader
	out      io.Writer
	env      config.Overrides
	isRoot   func() bool
	// interactive is true when stdin is a terminal
	interactive bool

	// mu serializes actions; watch mode is the only concurrent caller.
	mu sync.Mutex
}

func NewApp(settings *config.Settings) *APP {
	return &APP{
		settings:    settings,
		in:          os.Stdin,
		out:         os.Stdout,
		env:         config.GetOverrides(),
		isRoot:      func() bool { return os.Geteuid() == 0 },
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
}

func (a *APP) Init() error {
	a.initLog()
	logger.Debugf("%v %v", config.GetName(), config.GetVersion())

	withHistory := true
	if err := database.InitDB(config.GetDBPath()); err != nil {
		logger.Warning("history database unavailable: ", err)
		withHistory = false
	}
	a.services = service.NewServicesBundle(a.settings, service.ExecRunner{}, withHistory)
	return nil
}

func (a *APP) Close() {
	if err := database.CloseDB(); err != nil {
		logger.Warning("close database: ", err)
	}
}

func (a *APP) initLog() {
	switch config.GetLogLevel() {
	case config.Debug:
		logger.InitLogger(logging.DEBUG)
	case config.Info:
		logger.InitLogger(logging.INFO)
	case config.Warn:
		logger.InitLogger(logging.WARNING)
	case config.Error:
		logger.InitLogger(logging.ERROR)
	default:
		log.Fatal("unknown log level:", config.GetLogLevel())
	}
}

func (a *APP) name() string {
	return config.GetName()
}

func versionString() string {
	return "v" + config.GetVersion()
}

func (a *APP) Services() *service.ServicesBundle {
	return a.services
}

func (a *APP) Settings() *config.Settings {
	return a.settings
}

// Run executes one CLI action. menu resolves to the chosen action first.
func (a *APP) Run(ctx context.Context, action Action) error {
	if !a.isRoot() {
		return ErrNotRoot
	}
	p := newPrinter(a.out)
	pr := newPrompter(a.in, p, a.interactive, a.env)

	if action == ActionMenu {
		chosen, ok, err := a.menu(ctx, p, pr)
		if err != nil || !ok {
			return err
		}
		action = chosen
	}
	if action == ActionWatch {
		return a.Watch(ctx)
	}
	return a.execute(ctx, action, p, pr)
}

func (a *APP) execute(ctx context.Context, action Action, p *printer, pr *prompter) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	detail, err := a.dispatch(ctx, action, p, pr)
	if action.Mutating() {
		a.record(action.String(), err, detail)
	}
	return err
}

// dispatch is the single switch over actions. detail is stored with the
// history event.
func (a *APP) dispatch(ctx context.Context, action Action, p *printer, pr *prompter) (string, error) {
	switch action {
	case ActionInstall:
		return a.install(ctx, p, pr)
	case ActionStart:
		return "", a.control(ctx, p, action)
	case ActionStop:
		return "", a.control(ctx, p, action)
	case ActionRestart:
		return "", a.control(ctx, p, action)
	case ActionShowInfo:
		return "", a.showInfo(ctx, p)
	case ActionShowQR:
		return "", a.showQR(ctx, p)
	case ActionShowLog:
		return "", a.showLog(ctx, p)
	case ActionReconfig:
		return a.reconfig(ctx, p, pr)
	case ActionUninstall:
		return "", a.uninstall(ctx, p, pr)
	case ActionHistory:
		return "", a.showHistory(p)
	default:
		return "", ErrUnknownAction
	}
}

func (a *APP) firewall(ctx context.Context) service.Firewall {
	if a.services.Firewall == nil {
		a.services.Firewall = service.DetectFirewall(ctx, a.services.Runner)
		logger.Debug("firewall backend: ", a.services.Firewall.Name())
	}
	return a.services.Firewall
}
