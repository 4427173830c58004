package service

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
)

var errExit = errors.New("exit status 1")

// fakeRunner records calls and answers through handle.
type fakeRunner struct {
	mu     sync.Mutex
	calls  []string
	paths  map[string]bool
	handle func(name string, args []string) ([]byte, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, strings.Join(append([]string{name}, args...), " "))
	h := f.handle
	f.mu.Unlock()
	if h == nil {
		return nil, nil
	}
	return h(name, args)
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if f.paths[name] {
		return "/usr/sbin/" + name, nil
	}
	return "", exec.ErrNotFound
}

func (f *fakeRunner) called(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// fakeSystemctl models one unit's active state.
type fakeSystemctl struct {
	mu     sync.Mutex
	active bool
	pid    string
	broken bool
}

func (f *fakeSystemctl) handle(name string, args []string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name == "journalctl" {
		return []byte("line1\nline2\n"), nil
	}
	if name != "systemctl" || len(args) == 0 {
		return nil, nil
	}
	switch args[0] {
	case "start", "restart":
		if f.broken {
			return []byte("Job failed"), errExit
		}
		f.active = true
	case "stop":
		f.active = false
	case "is-active":
		if !f.active {
			return nil, errExit
		}
	case "show":
		if f.active {
			return []byte(f.pid + "\n"), nil
		}
		return []byte("0\n"), nil
	}
	return nil, nil
}
