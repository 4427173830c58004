package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/igor04091968/ss-manager/database/model"

	"github.com/gin-gonic/gin"
)

const (
	defaultHistoryLimit = 20
	defaultQRSize       = 256
)

// AppServices is what the API needs from the manager.
type AppServices interface {
	Status(ctx context.Context) model.ServiceState
	Info(ctx context.Context) (*model.ServerInfo, error)
	QRCode(ctx context.Context, size int) ([]byte, error)
	Logs(ctx context.Context) (string, error)
	History(limit int) ([]model.Event, error)
	Control(ctx context.Context, name string) (bool, error)
}

type ApiService struct {
	services AppServices
}

func (a *ApiService) getStatus(c *gin.Context) {
	jsonObj(c, gin.H{"state": a.services.Status(c.Request.Context()).String()}, nil)
}

func (a *ApiService) getInfo(c *gin.Context) {
	info, err := a.services.Info(c.Request.Context())
	jsonObj(c, info, err)
}

// getQR answers with the PNG itself, not a json envelope.
func (a *ApiService) getQR(c *gin.Context) {
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultQRSize)))
	if err != nil || size < 64 || size > 2048 {
		size = defaultQRSize
	}
	png, err := a.services.QRCode(c.Request.Context(), size)
	if err != nil {
		jsonMsg(c, "qr", err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (a *ApiService) getLogs(c *gin.Context) {
	logs, err := a.services.Logs(c.Request.Context())
	jsonObj(c, logs, err)
}

func (a *ApiService) getHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil || limit <= 0 {
		limit = defaultHistoryLimit
	}
	events, err := a.services.History(limit)
	jsonObj(c, events, err)
}

func (a *ApiService) control(c *gin.Context, verb string) {
	running, err := a.services.Control(c.Request.Context(), verb)
	jsonMsgObj(c, verb, gin.H{"running": running}, err)
}
