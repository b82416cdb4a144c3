// Package http exposes the travel request lifecycle over a JSON API.
// Handlers only translate between HTTP and the application services.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		Mode:         gin.ReleaseMode,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// HealthFunc reports overall health and a status line per component
type HealthFunc func(ctx context.Context) (healthy bool, components map[string]string)

// Services groups the application services the API calls into
type Services struct {
	Requests    service.RequestService
	Transitions service.TransitionService
	Receipts    service.ReceiptService
	Users       service.UserService
	Reports     service.ReportService
	// Health is optional; without it /health only reports that the process is up
	Health HealthFunc
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	auth       *Authenticator
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, auth *Authenticator, logger Logger) *Server {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	server := &Server{
		config:   config,
		router:   gin.New(),
		services: services,
		auth:     auth,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.logger)

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api", s.auth.Middleware())
	{
		api.POST("/users", h.RegisterUser)

		api.POST("/requests", h.CreateRequest)
		api.GET("/requests", h.ListRequests)
		api.GET("/requests/:id", h.GetRequest)
		api.PUT("/requests/:id", h.EditRequest)
		api.GET("/requests/:id/history", h.GetHistory)
		api.GET("/requests/:id/report.xlsx", h.DownloadReport)
		api.GET("/requests/:id/receipts", h.ListReceipts)

		api.POST("/requests/:id/confirm", h.transition(service.TransitionService.Confirm))
		api.POST("/requests/:id/authorize", h.transition(service.TransitionService.Authorize))
		api.POST("/requests/:id/decline", h.transition(service.TransitionService.Decline))
		api.POST("/requests/:id/attend-agency", h.transition(service.TransitionService.AttendAgency))
		api.POST("/requests/:id/cancel", h.transition(service.TransitionService.Cancel))
		api.POST("/requests/:id/send-for-validation", h.transition(service.TransitionService.SendForValidation))
		api.POST("/requests/:id/attend-payables", h.AttendPayables)

		api.POST("/receipts", h.CreateReceipts)
		api.PATCH("/receipts/:id/validation", h.DecideReceipt)
		api.DELETE("/receipts/:id", h.DeleteReceipt)
		api.POST("/receipts/:id/files", h.UploadReceiptFiles)
		api.GET("/receipts/:id/files/:kind", h.DownloadReceiptFile)
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
