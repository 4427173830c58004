package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const tokenHeader = "X-SSM-Token"

type APIHandler struct {
	ApiService
	token string
}

func NewAPIHandler(g *gin.RouterGroup, token string, services AppServices) {
	a := &APIHandler{
		ApiService: ApiService{services: services},
		token:      token,
	}
	a.initRouter(g)
}

func (a *APIHandler) initRouter(g *gin.RouterGroup) {
	g.Use(a.checkToken)
	g.POST("/:postAction", a.postHandler)
	g.GET("/:getAction", a.getHandler)
}

func (a *APIHandler) checkToken(c *gin.Context) {
	got := c.GetHeader(tokenHeader)
	if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(a.token)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, Msg{Success: false, Msg: "invalid token"})
		return
	}
	c.Next()
}

func (a *APIHandler) postHandler(c *gin.Context) {
	action := c.Param("postAction")

	switch action {
	case "start", "stop", "restart":
		a.ApiService.control(c, action)
	default:
		c.JSON(http.StatusNotFound, Msg{Success: false, Msg: "unknown action " + action})
	}
}

func (a *APIHandler) getHandler(c *gin.Context) {
	action := c.Param("getAction")

	switch action {
	case "status":
		a.ApiService.getStatus(c)
	case "info":
		a.ApiService.getInfo(c)
	case "qr":
		a.ApiService.getQR(c)
	case "logs":
		a.ApiService.getLogs(c)
	case "history":
		a.ApiService.getHistory(c)
	default:
		c.JSON(http.StatusNotFound, Msg{Success: false, Msg: "unknown action " + action})
	}
}
