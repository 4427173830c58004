package app

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/igor04091968/ss-manager/config"
	"github.com/igor04091968/ss-manager/database"
	"github.com/igor04091968/ss-manager/service"

	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

const (
	testTag     = "v1.21.2"
	testAddress = "203.0.113.7"
)

var errExit = errors.New("exit status 3")

// fakeHost answers systemctl and journalctl like a single supervised unit.
type fakeHost struct {
	mu     sync.Mutex
	calls  []string
	active bool
}

func (f *fakeHost) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, strings.Join(append([]string{name}, args...), " "))

	switch name {
	case "journalctl":
		return []byte("started\nlistening\n"), nil
	case "systemctl":
	default:
		return nil, nil
	}
	switch args[0] {
	case "start", "restart":
		f.active = true
	case "stop":
		f.active = false
	case "is-active":
		if !f.active {
			return nil, errExit
		}
	case "show":
		if f.active {
			return []byte(strconv.Itoa(os.Getpid()) + "\n"), nil
		}
		return []byte("0\n"), nil
	}
	return nil, nil
}

func (f *fakeHost) LookPath(string) (string, error) {
	return "", errors.New("not found")
}

func (f *fakeHost) count(prefix string) int {
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

// fakeFirewall tracks open ports.
type fakeFirewall struct {
	open   map[int]bool
	closed []int
}

func (f *fakeFirewall) Name() string { return "fake" }

func (f *fakeFirewall) Open(_ context.Context, port int) error {
	f.open[port] = true
	return nil
}

func (f *fakeFirewall) Close(_ context.Context, port int) error {
	delete(f.open, port)
	f.closed = append(f.closed, port)
	return nil
}

func releaseArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	tw := tar.NewWriter(xw)
	body := "#!/bin/sh\nexit 0\n"
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "ssserver", Mode: 0o755, Size: int64(len(body)), Typeflag: tar.TypeReg}))
	_, err = tw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, xw.Close())
	return buf.Bytes()
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	archive := releaseArchive(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/ip", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testAddress + "\n"))
	})
	mux.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tag_name":"` + testTag + `"}`))
	})
	mux.HandleFunc("/download/"+testTag+"/shadowsocks-"+testTag+".x86_64-unknown-linux-gnu.tar.xz", func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type testEnv struct {
	app  *APP
	host *fakeHost
	fw   *fakeFirewall
	out  *bytes.Buffer
}

// newTestEnv builds an APP rooted in a temp dir. input feeds the prompts;
// interactive reports whether it behaves like a terminal.
func newTestEnv(t *testing.T, input string, interactive bool, env config.Overrides) *testEnv {
	t.Helper()
	dir := t.TempDir()
	srv := newTestServer(t)

	require.NoError(t, database.InitDB(filepath.Join(dir, "db", "ssm.db")))
	t.Cleanup(func() { database.CloseDB() })

	settings := config.DefaultSettings()
	settings.BinaryPath = filepath.Join(dir, "bin", "ssserver")
	settings.ConfigPath = filepath.Join(dir, "etc", "shadowsocks-rust", "config.json")
	settings.UnitPath = filepath.Join(dir, "systemd", "shadowsocks-rust.service")
	settings.ReleaseAPI = srv.URL + "/latest"
	settings.ReleaseURL = srv.URL + "/download"
	settings.IPEndpoint = srv.URL + "/ip"
	settings.IPTimeout = 2 * time.Second
	settings.SettleDelay = 0
	settings.Arch = "x86_64"

	host := &fakeHost{}
	fw := &fakeFirewall{open: map[int]bool{}}
	bundle := service.NewServicesBundle(settings, host, true)
	bundle.Firewall = fw

	out := &bytes.Buffer{}
	a := &APP{
		settings:    settings,
		services:    bundle,
		in:          strings.NewReader(input),
		out:         out,
		env:         env,
		isRoot:      func() bool { return true },
		interactive: interactive,
	}
	return &testEnv{app: a, host: host, fw: fw, out: out}
}

// withInput swaps the prompt input for the next Run.
func (e *testEnv) withInput(input string, interactive bool) {
	e.app.in = strings.NewReader(input)
	e.app.interactive = interactive
}
