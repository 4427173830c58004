package api

import (
	"net/http"

	"github.com/igor04091968/ss-manager/logger"

	"github.com/gin-gonic/gin"
)

type Msg struct {
	Success bool        `json:"success"`
	Msg     string      `json:"msg"`
	Obj     interface{} `json:"obj"`
}

func jsonMsg(c *gin.Context, msg string, err error) {
	jsonMsgObj(c, msg, nil, err)
}

func jsonObj(c *gin.Context, obj interface{}, err error) {
	jsonMsgObj(c, "", obj, err)
}

func jsonMsgObj(c *gin.Context, msg string, obj interface{}, err error) {
	m := Msg{
		Obj: obj,
	}
	if err == nil {
		m.Success = true
		m.Msg = msg
	} else {
		m.Success = false
		m.Msg = err.Error()
		if msg != "" {
			m.Msg = msg + ": " + err.Error()
		}
		logger.Warning("api: ", m.Msg)
	}
	c.JSON(http.StatusOK, m)
}
