// Package api serves the dry-run order validation HTTP API.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"futuresbot/internal/metrics"
)

// ServerConfig contains server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	MaxHeaderBytes int
	APIKey         string // optional; protects /v1 when set
	Version        string
	RateLimit      float64 // requests per second per client, 0 disables
	RateBurst      int
	CORSOrigins    []string
	Debug          bool
}

// Server represents the API server
type Server struct {
	config     ServerConfig
	router     *gin.Engine
	httpServer *http.Server
	logger     zerolog.Logger
}

// NewServer creates a new API server. collector may be nil, in which case
// /metrics is not served.
func NewServer(config ServerConfig, validator OrderValidator, collector *metrics.Collector, logger zerolog.Logger) (*Server, error) {
	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	if validator == nil {
		return nil, fmt.Errorf("order validator is required")
	}

	setConfigDefaults(&config)

	if config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger = logger.With().Str("component", "api").Logger()

	router := gin.New()

	server := &Server{
		config: config,
		router: router,
		logger: logger,
	}

	server.setupMiddleware(collector)
	server.setupRoutes(validator, collector)

	server.httpServer = &http.Server{
		Addr:           net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
		Handler:        router,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return server, nil
}

// Addr is the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.httpServer.Addr).
		Str("version", s.config.Version).
		Msg("Starting API server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) setupMiddleware(collector *metrics.Collector) {
	s.router.Use(RequestIDMiddleware())
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(ErrorMiddleware(s.logger))

	if collector != nil {
		s.router.Use(metrics.MetricsMiddleware(collector))
	}

	if len(s.config.CORSOrigins) > 0 {
		s.router.Use(CORSMiddleware(CORSConfig{
			AllowOrigins:  s.config.CORSOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "X-API-Key", "X-Request-ID"},
			ExposeHeaders: []string{"X-Request-ID", "X-RateLimit-Limit"},
			MaxAge:        86400,
		}))
	}

	if s.config.RateLimit > 0 {
		s.router.Use(RateLimitMiddleware(s.config.RateLimit, s.config.RateBurst))
	}
}

func (s *Server) setupRoutes(validator OrderValidator, collector *metrics.Collector) {
	var recorder ValidationRecorder
	if collector != nil {
		recorder = collector
	}
	h := NewHandlers(validator, recorder, s.config.Version, s.logger)

	s.router.GET("/healthz", h.Healthz())
	if collector != nil {
		s.router.GET("/metrics", h.Metrics(collector.Handler()))
	}

	v1 := s.router.Group("/v1")
	if s.config.APIKey != "" {
		v1.Use(AuthMiddleware(s.config.APIKey))
	}
	v1.Use(TimeoutMiddleware(s.config.RequestTimeout))

	orderRoutes := v1.Group("/orders")
	orderRoutes.Use(ValidationMiddleware())
	{
		orderRoutes.POST("/validate", h.ValidateOrder())
	}
}

func validateConfig(config *ServerConfig) error {
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", config.Port)
	}

	if config.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit: %v", config.RateLimit)
	}

	if config.Version == "" {
		config.Version = "unknown"
	}

	return nil
}

func setConfigDefaults(config *ServerConfig) {
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 30 * time.Second
	}

	if config.WriteTimeout == 0 {
		config.WriteTimeout = 30 * time.Second
	}

	if config.IdleTimeout == 0 {
		config.IdleTimeout = 60 * time.Second
	}

	if config.RequestTimeout == 0 {
		config.RequestTimeout = 15 * time.Second
	}

	if config.MaxHeaderBytes == 0 {
		config.MaxHeaderBytes = 1 << 20 // 1 MB
	}

	if config.RateLimit > 0 && config.RateBurst <= 0 {
		config.RateBurst = int(config.RateLimit)
		if config.RateBurst < 1 {
			config.RateBurst = 1
		}
	}
}
