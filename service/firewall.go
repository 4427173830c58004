package service

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/coreos/go-iptables/iptables"
	"github.com/igor04091968/ss-manager/logger"
)

var protocols = []string{"tcp", "udp"}

// Firewall opens the proxy port for both tcp and udp. Open and Close are
// idempotent.
type Firewall interface {
	Name() string
	Open(ctx context.Context, port int) error
	Close(ctx context.Context, port int) error
}

// DetectFirewall prefers an active ufw, then iptables, then nothing.
func DetectFirewall(ctx context.Context, runner Runner) Firewall {
	if _, err := runner.LookPath("ufw"); err == nil {
		out, err := runner.Run(ctx, "ufw", "status")
		if err == nil && ufwActive(out) {
			return NewUfwFirewall(runner)
		}
		logger.Debug("ufw present but not active")
	}
	tables, err := newRuleTables()
	if err == nil && len(tables) > 0 {
		return &IptablesFirewall{tables: tables}
	}
	if err != nil {
		logger.Debug("iptables unavailable: ", err)
	}
	return NoFirewall{}
}

// UfwFirewall manages allow rules through the ufw frontend.
type UfwFirewall struct {
	runner Runner
}

func NewUfwFirewall(runner Runner) *UfwFirewall {
	return &UfwFirewall{runner: runner}
}

func (f *UfwFirewall) Name() string {
	return "ufw"
}

func (f *UfwFirewall) status(ctx context.Context) ([]byte, error) {
	out, err := f.runner.Run(ctx, "ufw", "status")
	if err != nil {
		return nil, fmt.Errorf("failed to query ufw: %w", err)
	}
	return out, nil
}

func (f *UfwFirewall) Open(ctx context.Context, port int) error {
	out, err := f.status(ctx)
	if err != nil {
		return err
	}
	for _, proto := range protocols {
		rule := fmt.Sprintf("%d/%s", port, proto)
		if ufwHasRule(out, rule) {
			logger.Debug("ufw rule exists: ", rule)
			continue
		}
		if _, err := f.runner.Run(ctx, "ufw", "allow", rule); err != nil {
			return fmt.Errorf("failed to allow %s: %w", rule, err)
		}
		logger.Info("ufw allowed ", rule)
	}
	return nil
}

func (f *UfwFirewall) Close(ctx context.Context, port int) error {
	out, err := f.status(ctx)
	if err != nil {
		return err
	}
	for _, proto := range protocols {
		rule := fmt.Sprintf("%d/%s", port, proto)
		if !ufwHasRule(out, rule) {
			continue
		}
		if _, err := f.runner.Run(ctx, "ufw", "delete", "allow", rule); err != nil {
			return fmt.Errorf("failed to delete %s: %w", rule, err)
		}
		logger.Info("ufw removed ", rule)
	}
	return nil
}

func ufwActive(status []byte) bool {
	return bytes.Contains(status, []byte("Status: active"))
}

func ufwHasRule(status []byte, rule string) bool {
	sc := bufio.NewScanner(bytes.NewReader(status))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) >= 2 && fields[0] == rule && strings.Contains(sc.Text(), "ALLOW") {
			return true
		}
	}
	return false
}

// RuleTable is the part of *iptables.IPTables the firewall uses.
type RuleTable interface {
	Exists(table, chain string, rulespec ...string) (bool, error)
	Insert(table, chain string, pos int, rulespec ...string) error
	DeleteIfExists(table, chain string, rulespec ...string) error
}

var newRuleTables = func() ([]RuleTable, error) {
	ipt, err := iptables.New()
	if err != nil {
		return nil, err
	}
	tables := []RuleTable{ipt}
	if ip6t, err := iptables.NewWithProtocol(iptables.ProtocolIPv6); err == nil {
		tables = append(tables, ip6t)
	}
	return tables, nil
}

// IptablesFirewall inserts ACCEPT rules at the top of INPUT for every
// address family it found.
type IptablesFirewall struct {
	tables []RuleTable
}

func NewIptablesFirewall(tables ...RuleTable) *IptablesFirewall {
	return &IptablesFirewall{tables: tables}
}

func (f *IptablesFirewall) Name() string {
	return "iptables"
}

func acceptRule(proto string, port int) []string {
	return []string{"-p", proto, "--dport", strconv.Itoa(port), "-j", "ACCEPT"}
}

func (f *IptablesFirewall) Open(_ context.Context, port int) error {
	for _, t := range f.tables {
		for _, proto := range protocols {
			rule := acceptRule(proto, port)
			exists, err := t.Exists("filter", "INPUT", rule...)
			if err != nil {
				return fmt.Errorf("failed to check %s rule for port %d: %w", proto, port, err)
			}
			if exists {
				continue
			}
			if err := t.Insert("filter", "INPUT", 1, rule...); err != nil {
				return fmt.Errorf("failed to insert %s rule for port %d: %w", proto, port, err)
			}
			logger.Infof("iptables accepted %d/%s", port, proto)
		}
	}
	return nil
}

func (f *IptablesFirewall) Close(_ context.Context, port int) error {
	for _, t := range f.tables {
		for _, proto := range protocols {
			if err := t.DeleteIfExists("filter", "INPUT", acceptRule(proto, port)...); err != nil {
				return fmt.Errorf("failed to delete %s rule for port %d: %w", proto, port, err)
			}
		}
	}
	return nil
}

// NoFirewall is used when no supported frontend is installed.
type NoFirewall struct{}

func (NoFirewall) Name() string {
	return "none"
}

func (NoFirewall) Open(_ context.Context, port int) error {
	logger.Warningf("no supported firewall found, open port %d (tcp and udp) manually if needed", port)
	return nil
}

func (NoFirewall) Close(context.Context, int) error {
	return nil
}
