package telegram

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/igor04091968/ss-manager/config"
	"github.com/igor04091968/ss-manager/database/model"
	"github.com/igor04091968/ss-manager/logger"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/op/go-logging"
)

const (
	maxMessageLength = 4000
	historyLimit     = 10
	qrSize           = 512
	actionTimeout    = time.Minute

	defaultManagerLogs = 20
)

// AppServices is what the bot needs from the manager.
type AppServices interface {
	Status(ctx context.Context) model.ServiceState
	Info(ctx context.Context) (*model.ServerInfo, error)
	QRCode(ctx context.Context, size int) ([]byte, error)
	Logs(ctx context.Context) (string, error)
	History(limit int) ([]model.Event, error)
	Control(ctx context.Context, name string) (bool, error)
}

var (
	adminIDs = make(map[int64]bool)
	services AppServices
)

const helpText = "Available commands:\n" +
	"/status - service state\n" +
	"/info - connection details\n" +
	"/link - ss:// link\n" +
	"/qr - link as QR code\n" +
	"/start_ss - start the server\n" +
	"/stop_ss - stop the server\n" +
	"/restart_ss - restart the server\n" +
	"/logs - recent journal lines\n" +
	"/logs ssm [n] - recent manager log lines\n" +
	"/history - recent actions"

// Start polls for updates until ctx is done.
func Start(ctx context.Context, cfg *config.TelegramSettings, appServices AppServices) error {
	if !cfg.Enabled || cfg.BotToken == "" {
		logger.Info("Telegram bot is disabled or token is not configured.")
		return nil
	}

	services = appServices
	for _, id := range cfg.AdminUserIDs {
		adminIDs[id] = true
	}

	b, err := bot.New(cfg.BotToken, bot.WithDefaultHandler(handler))
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}

	logger.Info("Telegram bot started.")
	b.Start(ctx)
	return nil
}

func handler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	if !isAdmin(update.Message.From.ID) {
		logger.Warning("telegram: rejected user ", update.Message.From.ID)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "You are not authorized to use this bot.",
		})
		return
	}
	if !strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	actx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()
	r := handleCommand(actx, update.Message.Text)

	if r.photo != nil {
		_, err := b.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:  chatID,
			Photo:   &models.InputFileUpload{Filename: "shadowsocks.png", Data: bytes.NewReader(r.photo)},
			Caption: r.text,
		})
		if err != nil {
			logger.Warning("telegram: send photo: ", err)
		}
		return
	}
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: r.text}); err != nil {
		logger.Warning("telegram: send message: ", err)
	}
}

func isAdmin(userID int64) bool {
	_, ok := adminIDs[userID]
	return ok
}

type reply struct {
	text  string
	photo []byte
}

func textReply(format string, a ...interface{}) reply {
	return reply{text: fmt.Sprintf(format, a...)}
}

func handleCommand(ctx context.Context, text string) reply {
	command, args := parseCommand(text)
	// commands in groups arrive as /cmd@botname
	if i := strings.Index(command, "@"); i > 0 {
		command = command[:i]
	}

	switch command {
	case "/start":
		return textReply("Shadowsocks manager bot. Send /help to see available commands.")
	case "/help":
		return textReply(helpText)
	case "/status":
		return textReply("shadowsocks-rust: %s", services.Status(ctx))
	case "/info":
		return handleInfo(ctx)
	case "/link":
		info, err := services.Info(ctx)
		if err != nil {
			return textReply("Error: %v", err)
		}
		return reply{text: info.Link}
	case "/qr":
		return handleQR(ctx)
	case "/start_ss":
		return handleControl(ctx, "start")
	case "/stop_ss":
		return handleControl(ctx, "stop")
	case "/restart_ss":
		return handleControl(ctx, "restart")
	case "/logs":
		if len(args) > 0 && args[0] == "ssm" {
			return handleManagerLogs(args[1:])
		}
		return handleLogs(ctx)
	case "/history":
		return handleHistory()
	default:
		return textReply("Unknown command. Send /help to see available commands.")
	}
}

func handleInfo(ctx context.Context) reply {
	info, err := services.Info(ctx)
	if err != nil {
		return textReply("Error: %v", err)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "State: %s\n", info.State)
	fmt.Fprintf(&sb, "Address: %s\n", info.Address)
	fmt.Fprintf(&sb, "Port: %d\n", info.Port)
	fmt.Fprintf(&sb, "Password: %s\n", info.Password)
	fmt.Fprintf(&sb, "Method: %s\n", info.Method)
	if info.Version != "" {
		fmt.Fprintf(&sb, "Version: %s\n", info.Version)
	}
	if info.PID > 0 {
		fmt.Fprintf(&sb, "PID: %d, memory %s, up %s\n", info.PID, info.Memory, info.Uptime)
	}
	sb.WriteString(info.Link)
	return reply{text: sb.String()}
}

func handleQR(ctx context.Context) reply {
	png, err := services.QRCode(ctx, qrSize)
	if err != nil {
		return textReply("Error: %v", err)
	}
	return reply{text: "Scan to connect", photo: png}
}

func handleControl(ctx context.Context, verb string) reply {
	running, err := services.Control(ctx, verb)
	if err != nil {
		return textReply("%s failed: %v", verb, err)
	}
	state := "stopped"
	if running {
		state = "running"
	}
	return textReply("%s done, shadowsocks-rust is %s", verb, state)
}

func handleLogs(ctx context.Context) reply {
	logs, err := services.Logs(ctx)
	if err != nil {
		return textReply("Error: %v", err)
	}
	logs = strings.TrimSpace(logs)
	if logs == "" {
		return textReply("No logs found.")
	}
	return textReply("Logs:\n%s", tail(logs, maxMessageLength))
}

// handleManagerLogs shows this process's own recent log lines.
func handleManagerLogs(args []string) reply {
	limit := defaultManagerLogs
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			limit = n
		}
	}
	lines := logger.GetLogs(limit, logging.DEBUG)
	if len(lines) == 0 {
		return textReply("No logs found.")
	}
	return reply{text: tail(strings.Join(lines, "\n"), maxMessageLength)}
}

func handleHistory() reply {
	events, err := services.History(historyLimit)
	if err != nil {
		return textReply("Error: %v", err)
	}
	if len(events) == 0 {
		return textReply("No events recorded.")
	}
	var sb strings.Builder
	for _, e := range events {
		fmt.Fprintf(&sb, "%s %s %s", e.CreatedAt.Format("01-02 15:04"), e.Action, e.Result)
		if e.Detail != "" {
			fmt.Fprintf(&sb, " (%s)", e.Detail)
		}
		sb.WriteByte('\n')
	}
	return reply{text: sb.String()}
}

// tail keeps at most n trailing bytes of s, starting on a rune boundary.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return s[i:]
}

func parseCommand(text string) (string, []string) {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}
