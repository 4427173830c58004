package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/igor04091968/ss-manager/config"
	"github.com/igor04091968/ss-manager/database/model"
	"github.com/igor04091968/ss-manager/logger"
	"github.com/igor04091968/ss-manager/util"
)

const passwordLength = 16

// prompter asks for server parameters. A blank answer takes the SS_*
// environment value when set, otherwise the default. Without a terminal it
// never asks.
type prompter struct {
	r           *bufio.Reader
	p           *printer
	interactive bool
	env         config.Overrides
}

func newPrompter(r io.Reader, p *printer, interactive bool, env config.Overrides) *prompter {
	return &prompter{
		r:           bufio.NewReader(r),
		p:           p,
		interactive: interactive,
		env:         env,
	}
}

// readLine returns the trimmed answer; EOF counts as a blank answer.
func (pr *prompter) readLine() (string, error) {
	line, err := pr.r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (pr *prompter) ask(question, fallback string) (string, error) {
	pr.p.Printf("%s [%s]: ", question, fallback)
	answer, err := pr.readLine()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return fallback, nil
	}
	return answer, nil
}

// ServerConfig collects a full config. current seeds the defaults on
// reconfigure and may be nil.
func (pr *prompter) ServerConfig(current *model.ServerConfig) (*model.ServerConfig, error) {
	var (
		defPort     int
		defPassword string
		defMethod   = model.MethodAES256GCM
		err         error
	)
	if current != nil {
		defPort, defPassword, defMethod = current.Port, current.Password, current.Method
	} else {
		if defPort, err = util.RandomInt(10000, model.MaxPort); err != nil {
			return nil, err
		}
		if defPassword, err = util.RandomString(passwordLength); err != nil {
			return nil, err
		}
	}

	port, err := pr.Port(defPort)
	if err != nil {
		return nil, err
	}
	password, err := pr.Password(defPassword)
	if err != nil {
		return nil, err
	}
	method, err := pr.Method(defMethod)
	if err != nil {
		return nil, err
	}
	cfg := model.NewServerConfig(port, password, method)
	if current != nil && current.BindAddress != "" {
		cfg.BindAddress = current.BindAddress
	}
	return cfg, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("port %q is not a number", s)
	}
	return port, model.ValidatePort(port)
}

// Port asks until the answer is within 1025-65535.
func (pr *prompter) Port(def int) (int, error) {
	fallback := def
	if pr.env.Port != "" {
		port, err := parsePort(pr.env.Port)
		if err != nil {
			if !pr.interactive {
				return 0, fmt.Errorf("invalid %s: %w", config.EnvPort, err)
			}
			logger.Warningf("ignoring %s: %v", config.EnvPort, err)
		} else {
			fallback = port
		}
	}
	if !pr.interactive {
		return fallback, nil
	}
	for {
		answer, err := pr.ask(fmt.Sprintf("Port (%d-%d)", model.MinPort, model.MaxPort), strconv.Itoa(fallback))
		if err != nil {
			return 0, err
		}
		port, err := parsePort(answer)
		if err == nil {
			return port, nil
		}
		pr.p.Warnf("%v, try again", err)
	}
}

func (pr *prompter) Password(def string) (string, error) {
	fallback := def
	if pr.env.Password != "" {
		fallback = pr.env.Password
	}
	if !pr.interactive {
		return fallback, nil
	}
	return pr.ask("Password", fallback)
}

// Method accepts a menu number or a method name.
func (pr *prompter) Method(def string) (string, error) {
	fallback := def
	if pr.env.Method != "" {
		if model.ValidMethod(pr.env.Method) {
			fallback = pr.env.Method
		} else if !pr.interactive {
			return "", fmt.Errorf("invalid %s: unsupported method %q", config.EnvMethod, pr.env.Method)
		} else {
			logger.Warningf("ignoring %s: unsupported method %q", config.EnvMethod, pr.env.Method)
		}
	}
	if !pr.interactive {
		return fallback, nil
	}
	for i, m := range model.Methods {
		pr.p.Printf("  %d. %s\n", i+1, m)
	}
	for {
		answer, err := pr.ask("Cipher method", fallback)
		if err != nil {
			return "", err
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(model.Methods) {
			return model.Methods[n-1], nil
		}
		if model.ValidMethod(answer) {
			return answer, nil
		}
		pr.p.Warnf("unsupported method %q, try again", answer)
	}
}

// Confirm defaults to no; non-interactive runs answer yes.
func (pr *prompter) Confirm(question string) (bool, error) {
	if !pr.interactive {
		return true, nil
	}
	pr.p.Printf("%s [y/N]: ", question)
	answer, err := pr.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Choice reads a menu number in [0, max]. ok is false at end of input.
func (pr *prompter) Choice(max int) (int, bool, error) {
	for {
		pr.p.Printf("Select [0-%d]: ", max)
		line, err := pr.r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, false, err
		}
		answer := strings.TrimSpace(line)
		if n, convErr := strconv.Atoi(answer); convErr == nil && n >= 0 && n <= max {
			return n, true, nil
		}
		if errors.Is(err, io.EOF) {
			return 0, false, nil
		}
		pr.p.Warnf("invalid choice %q", answer)
	}
}
