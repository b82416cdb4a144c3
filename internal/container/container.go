package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/dispatcher"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/port"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/event"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/infrastructure/persistence/sqlite"
	httpapi "github.com/coconsulting2/TC3005B.501-Backend/internal/interfaces/http"
	"github.com/coconsulting2/TC3005B.501-Backend/pkg/database"
	"go.uber.org/zap"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	raw          *database.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - Adapters
	infra          *InfrastructureBundle
	notifier       port.Notifier
	notifierCloser io.Closer

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	// Interfaces
	server *httpapi.Server

	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components:
// 1. Database and repositories
// 2. Blob store, PII codec, PDF inspector, report renderer
// 3. Notifier
// 4. Event dispatcher
// 5. Application services and event handlers
// 6. HTTP server
//
// A failed step releases what the earlier steps acquired.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	if err := c.init(); err != nil {
		c.teardown()
		return err
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

func (c *Container) init() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.raw = dbBundle.Raw
	c.db = dbBundle.DB
	c.repositories = ProvideRepositories(c.db, c.logger)
	c.logger.Info("Database initialized")

	c.infra, err = ProvideInfrastructure(c.config, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize infrastructure: %w", err)
	}
	c.logger.Info("Infrastructure adapters initialized")

	c.notifier, c.notifierCloser, err = ProvideNotifier(&c.config.Notification, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize notifier: %w", err)
	}
	c.logger.Info("Notifier initialized", zap.String("channel", c.config.Notification.Channel))

	c.dispatcher = ProvideDispatcher(&c.config.Notification, c.logger)

	c.services, err = ProvideServices(&ServiceDeps{
		Repos:     c.repositories,
		Infra:     c.infra,
		TxManager: c.db,
		Publisher: c.dispatcher,
		Notifier:  c.notifier,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	RegisterEventHandlers(c.dispatcher, c.services.Notifications)
	c.logger.Info("Application services initialized")

	c.server, err = ProvideHTTPServer(c.config, c.services, c.healthSummary, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}
	return nil
}

// Close shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	errs := c.teardown()

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// teardown releases components in reverse order of init. The HTTP server is
// stopped by its own Start context.
func (c *Container) teardown() []error {
	var errs []error

	// The dispatcher drains in-flight notifications before the notifier goes away
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil && !errors.Is(err, dispatcher.ErrClosed) {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
	}

	if c.notifierCloser != nil {
		if err := c.notifierCloser.Close(); err != nil {
			c.logger.Error("Failed to close notifier", zap.Error(err))
			errs = append(errs, fmt.Errorf("close notifier: %w", err))
		}
		c.notifierCloser = nil
	}

	if c.raw != nil {
		if err := c.raw.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
		c.raw = nil
	}

	return errs
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	if c.raw == nil {
		status.Components["database"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	} else if err := c.raw.PingContext(ctx); err != nil {
		status.Components["database"] = ComponentHealth{Healthy: false, Message: fmt.Sprintf("ping failed: %v", err)}
		status.Overall = false
	} else {
		status.Components["database"] = ComponentHealth{Healthy: true}
	}

	if c.dispatcher == nil {
		status.Components["dispatcher"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	} else if n := len(c.dispatcher.Handlers(event.TypeStatusChanged)); n == 0 {
		status.Components["dispatcher"] = ComponentHealth{Healthy: false, Message: "no status change handlers"}
		status.Overall = false
	} else {
		status.Components["dispatcher"] = ComponentHealth{Healthy: true, Message: fmt.Sprintf("status change handlers: %d", n)}
	}

	return status
}

// healthSummary flattens Health for the HTTP probe
func (c *Container) healthSummary(ctx context.Context) (bool, map[string]string) {
	health := c.Health(ctx)
	components := make(map[string]string, len(health.Components))
	for name, comp := range health.Components {
		components[name] = "ok"
		if !comp.Healthy {
			components[name] = comp.Message
		}
	}
	return health.Overall, components
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Server returns the HTTP server.
func (c *Container) Server() *httpapi.Server {
	return c.server
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// zapLoggerAdapter adapts zap.Logger to the service and HTTP Logger interfaces.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// dispatcherLoggerAdapter adapts zap.Logger to the dispatcher.Logger interface.
type dispatcherLoggerAdapter struct {
	logger *zap.Logger
}

func (a *dispatcherLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *dispatcherLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
