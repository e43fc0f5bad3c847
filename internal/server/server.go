package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/scythe504/impostor-backend/internal/config"
	"github.com/scythe504/impostor-backend/internal/registry"
)

// Server exposes the registry over HTTP and websockets.
type Server struct {
	port       int
	corsOrigin string
	publicURL  string

	registry *registry.Registry
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader
}

func NewServer(cfg config.Config, reg *registry.Registry, logger *zap.SugaredLogger) *Server {
	return &Server{
		port:       cfg.Port,
		corsOrigin: cfg.CORSOrigin,
		publicURL:  cfg.PublicURL,
		registry:   reg,
		logger:     logger.Named("server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// HTTPServer wraps the routes in an *http.Server listening on the configured port.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.RegisterRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute,
	}
}
