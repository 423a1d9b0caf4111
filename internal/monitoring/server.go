package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nixlim/camwatch/internal/logging"
)

// Server is the HTTP server for metrics, health and the JSON API.
type Server struct {
	addr     string
	engine   *gin.Engine
	logger   logging.Logger
	listener net.Listener
	srv      *http.Server
}

// NewServer builds the router with request ID, logging, recovery and
// metrics middleware, and mounts /metrics and /healthz.
func NewServer(addr string, metrics *Metrics, health *HealthChecker, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware(logger))
	router.Use(RecoveryMiddleware(logger))
	router.Use(metrics.Middleware())

	router.GET("/metrics", metrics.Handler())
	router.GET("/healthz", health.Handler())

	return &Server{addr: addr, engine: router, logger: logger}
}

// Router returns the router for mounting additional routes. Routes must
// be added before Start.
func (s *Server) Router() *gin.Engine {
	return s.engine
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.listener = lis
	s.srv = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.WithField("addr", lis.Addr().String()).Info("HTTP API listening")
	go func() {
		if err := s.srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("HTTP API stopped")
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// RequestIDMiddleware propagates X-Request-ID, generating one when absent.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// LoggingMiddleware logs each request at debug level.
func LoggingMiddleware(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logging.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"latency":    time.Since(start),
			"client_ip":  c.ClientIP(),
			"request_id": c.GetString("request_id"),
		}).Debug("HTTP request")
	}
}

// RecoveryMiddleware turns handler panics into 500 responses.
func RecoveryMiddleware(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.WithFields(logging.Fields{
					"error":  err,
					"method": c.Request.Method,
					"path":   c.Request.URL.Path,
				}).Error("Request handler panic")

				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()

		c.Next()
	}
}
