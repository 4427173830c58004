package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/igor04091968/ss-manager/config"
	"github.com/igor04091968/ss-manager/logger"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	listener   net.Listener
}

func NewRouter(token string, services AppServices) *gin.Engine {
	if !config.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	NewAPIHandler(engine.Group("/api"), token, services)
	return engine
}

func NewServer() *Server {
	return &Server{}
}

// Start listens on cfg.Listen and serves in the background.
func (s *Server) Start(cfg *config.APISettings, services AppServices) error {
	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return err
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           NewRouter(cfg.Token, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server: ", err)
		}
	}()
	logger.Info("api listening on ", listener.Addr())
	return nil
}

func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
