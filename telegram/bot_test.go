package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/igor04091968/ss-manager/database/model"
	"github.com/igor04091968/ss-manager/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServices struct {
	state    model.ServiceState
	info     *model.ServerInfo
	err      error
	logs     string
	events   []model.Event
	controls []string
}

func (f *fakeServices) Status(context.Context) model.ServiceState { return f.state }

func (f *fakeServices) Info(context.Context) (*model.ServerInfo, error) {
	return f.info, f.err
}

func (f *fakeServices) QRCode(context.Context, int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("\x89PNG"), nil
}

func (f *fakeServices) Logs(context.Context) (string, error) { return f.logs, f.err }

func (f *fakeServices) History(int) ([]model.Event, error) { return f.events, f.err }

func (f *fakeServices) Control(_ context.Context, name string) (bool, error) {
	f.controls = append(f.controls, name)
	if f.err != nil {
		return false, f.err
	}
	return name != "stop", nil
}

func withServices(t *testing.T, f *fakeServices) {
	t.Helper()
	old := services
	services = f
	t.Cleanup(func() { services = old })
}

func TestHandleCommandInfo(t *testing.T) {
	withServices(t, &fakeServices{
		state: model.StateRunning,
		info: &model.ServerInfo{
			State:    "installed-running",
			Address:  "1.2.3.4",
			Port:     443,
			Password: "abc123",
			Method:   model.MethodChacha20Poly1305,
			Link:     "ss://Y2hhY2hhMjAtaWV0Zi1wb2x5MTMwNTphYmMxMjNAMS4yLjMuNDo0NDM=",
		},
	})
	ctx := context.Background()

	assert.Equal(t, "shadowsocks-rust: installed-running", handleCommand(ctx, "/status").text)

	r := handleCommand(ctx, "/info")
	assert.Contains(t, r.text, "Port: 443\n")
	assert.Contains(t, r.text, "Method: chacha20-ietf-poly1305\n")
	assert.NotContains(t, r.text, "PID")

	assert.Equal(t, "ss://Y2hhY2hhMjAtaWV0Zi1wb2x5MTMwNTphYmMxMjNAMS4yLjMuNDo0NDM=", handleCommand(ctx, "/link").text)
	assert.Equal(t, "ss://Y2hhY2hhMjAtaWV0Zi1wb2x5MTMwNTphYmMxMjNAMS4yLjMuNDo0NDM=", handleCommand(ctx, "/link@ssm_bot").text)

	qr := handleCommand(ctx, "/qr")
	assert.NotEmpty(t, qr.photo)
}

func TestHandleCommandControl(t *testing.T) {
	f := &fakeServices{}
	withServices(t, f)
	ctx := context.Background()

	assert.Equal(t, "start done, shadowsocks-rust is running", handleCommand(ctx, "/start_ss").text)
	assert.Equal(t, "stop done, shadowsocks-rust is stopped", handleCommand(ctx, "/stop_ss").text)
	assert.Equal(t, "restart done, shadowsocks-rust is running", handleCommand(ctx, "/restart_ss").text)
	assert.Equal(t, []string{"start", "stop", "restart"}, f.controls)

	f.err = errors.New("not installed")
	assert.Equal(t, "start failed: not installed", handleCommand(ctx, "/start_ss").text)
	assert.Contains(t, handleCommand(ctx, "/info").text, "Error: not installed")
	assert.Nil(t, handleCommand(ctx, "/qr").photo)
}

func TestHandleCommandLogsAndHistory(t *testing.T) {
	long := make([]byte, maxMessageLength+100)
	for i := range long {
		long[i] = 'x'
	}
	f := &fakeServices{
		logs: string(long),
		events: []model.Event{
			{Action: "restart", Result: "ok", CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
			{Action: "watchdog", Result: "failed", Detail: "installed-stopped", CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		},
	}
	withServices(t, f)
	ctx := context.Background()

	logs := handleCommand(ctx, "/logs").text
	assert.Equal(t, len("Logs:\n")+maxMessageLength, len(logs))

	history := handleCommand(ctx, "/history").text
	assert.Equal(t, "03-01 10:00 restart ok\n03-01 09:00 watchdog failed (installed-stopped)\n", history)

	f.logs = "  \n"
	f.events = nil
	assert.Equal(t, "No logs found.", handleCommand(ctx, "/logs").text)
	assert.Equal(t, "No events recorded.", handleCommand(ctx, "/history").text)
}

func TestHandleCommandManagerLogs(t *testing.T) {
	withServices(t, &fakeServices{logs: "journal line"})
	logger.Info("watchdog tick for bot test")

	r := handleCommand(context.Background(), "/logs ssm 5")
	assert.Contains(t, r.text, "watchdog tick for bot test")
	assert.NotContains(t, r.text, "journal line")

	assert.Equal(t, "Logs:\njournal line", handleCommand(context.Background(), "/logs").text)
}

func TestLogsAreCutOnRuneBoundary(t *testing.T) {
	f := &fakeServices{logs: "x" + strings.Repeat("ошибка ", 1000)}
	withServices(t, f)

	r := handleCommand(context.Background(), "/logs")
	assert.True(t, utf8.ValidString(r.text))
	assert.LessOrEqual(t, len(r.text), len("Logs:\n")+maxMessageLength)
	assert.True(t, strings.HasSuffix(r.text, "ошибка"))

	for i := 0; i < 700; i++ {
		logger.Info("сбой ", i)
	}
	r = handleCommand(context.Background(), "/logs ssm 200")
	assert.True(t, utf8.ValidString(r.text))
	assert.LessOrEqual(t, len(r.text), maxMessageLength)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "abc", tail("abc", 5))
	assert.Equal(t, "bc", tail("abc", 2))
	// "é" is two bytes; a cut inside it moves forward
	assert.Equal(t, "", tail("é", 1))
	assert.Equal(t, "é", tail("aé", 2))
}

func TestHandleCommandHelpAndUnknown(t *testing.T) {
	withServices(t, &fakeServices{})
	ctx := context.Background()
	help := handleCommand(ctx, "/help").text
	for _, c := range []string{"/status", "/info", "/link", "/qr", "/start_ss", "/stop_ss", "/restart_ss", "/logs", "/history"} {
		assert.Contains(t, help, c)
	}
	assert.Contains(t, handleCommand(ctx, "/rm").text, "Unknown command")
}

func TestParseCommandAndAdmin(t *testing.T) {
	cmd, args := parseCommand("/logs  20 ")
	assert.Equal(t, "/logs", cmd)
	assert.Equal(t, []string{"20"}, args)

	cmd, args = parseCommand("   ")
	assert.Empty(t, cmd)
	assert.Nil(t, args)

	adminIDs[42] = true
	t.Cleanup(func() { delete(adminIDs, 42) })
	require.True(t, isAdmin(42))
	assert.False(t, isAdmin(7))
}
