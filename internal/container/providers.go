package container

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/dispatcher"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/port"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/service"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/event"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/infrastructure/crypto"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/infrastructure/document"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/infrastructure/external/amqp"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/infrastructure/external/lark"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/infrastructure/external/lognotify"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/infrastructure/persistence/repository"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/infrastructure/persistence/sqlite"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/infrastructure/report"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/infrastructure/storage"
	httpapi "github.com/coconsulting2/TC3005B.501-Backend/internal/interfaces/http"
	"github.com/coconsulting2/TC3005B.501-Backend/migrations"
	"github.com/coconsulting2/TC3005B.501-Backend/pkg/database"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Raw *database.DB
	DB  *sqlite.DB
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Requests  port.RequestRepository
	Routes    port.RouteRepository
	Locations port.LocationRepository
	Receipts  port.ReceiptRepository
	Users     port.UserRepository
	History   port.HistoryRepository
}

// InfrastructureBundle holds the adapters behind the non-repository ports.
type InfrastructureBundle struct {
	Blobs     port.BlobStore
	Codec     port.PIICodec
	Inspector port.DocumentInspector
	Renderer  port.ReportRenderer
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Users         service.UserService
	Requests      service.RequestService
	Transitions   service.TransitionService
	Receipts      service.ReceiptService
	Notifications service.NotificationService
	Reports       service.ReportService
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Repos     *RepositoryBundle
	Infra     *InfrastructureBundle
	TxManager port.TransactionManager
	Publisher service.EventPublisher
	Notifier  port.Notifier
	Logger    *zap.Logger
}

// ProvideDatabase opens the sqlite store and applies pending migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	raw, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if _, err := database.NewMigrator(raw, logger).Run(migrations.FS); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		Raw: raw,
		DB:  sqlite.NewDB(raw.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories over one storage handle.
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) *RepositoryBundle {
	return &RepositoryBundle{
		Requests:  repository.NewRequestRepository(db, logger),
		Routes:    repository.NewRouteRepository(db, logger),
		Locations: repository.NewLocationRepository(db, logger),
		Receipts:  repository.NewReceiptRepository(db, logger),
		Users:     repository.NewUserRepository(db, logger),
		History:   repository.NewHistoryRepository(db, logger),
	}
}

// ProvideInfrastructure creates the blob store, PII codec, PDF inspector and
// report renderer.
func ProvideInfrastructure(cfg *Config, logger *zap.Logger) (*InfrastructureBundle, error) {
	blobs, err := storage.NewLocalBlobStore(cfg.Storage.BlobDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob store: %w", err)
	}

	codec, err := crypto.NewPIICodec(cfg.PII.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PII codec: %w", err)
	}

	return &InfrastructureBundle{
		Blobs:     blobs,
		Codec:     codec,
		Inspector: document.NewPDFInspector(logger),
		Renderer:  report.NewXLSXRenderer(logger),
	}, nil
}

// ProvideNotifier creates the configured notification channel. The returned
// closer is nil when the channel holds no connection.
func ProvideNotifier(cfg *NotificationConfig, logger *zap.Logger) (port.Notifier, io.Closer, error) {
	switch cfg.Channel {
	case ChannelLark:
		return lark.NewNotifier(lark.Config{
			AppID:     cfg.LarkAppID,
			AppSecret: cfg.LarkAppSecret,
		}, logger), nil, nil
	case ChannelAMQP:
		n, err := amqp.NewNotifier(amqp.Config{URL: cfg.AMQPURL, Queue: cfg.AMQPQueue}, logger)
		if err != nil {
			return nil, nil, err
		}
		return n, n, nil
	case ChannelLog, "":
		return lognotify.NewNotifier(logger), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown notification channel %q", cfg.Channel)
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(cfg *NotificationConfig, logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&dispatcherLoggerAdapter{logger: logger}),
		dispatcher.WithAsyncTimeout(cfg.AsyncTimeout),
	)
}

// ProvideServices wires the application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps.Repos == nil || deps.Infra == nil {
		return nil, fmt.Errorf("repositories and infrastructure are required")
	}

	log := &zapLoggerAdapter{logger: deps.Logger}
	repos := deps.Repos

	users := service.NewUserService(repos.Users, deps.Infra.Codec, log)
	locations := service.NewLocationResolver(repos.Locations, log)
	transitions := service.NewTransitionService(
		repos.Requests, repos.Routes, repos.History, users, deps.TxManager, deps.Publisher, log)

	requests := service.NewRequestService(
		repos.Requests, repos.Routes, repos.History, locations, users, deps.TxManager, deps.Publisher, log)
	receipts := service.NewReceiptService(
		repos.Receipts, repos.Requests, transitions, users,
		deps.Infra.Blobs, deps.Infra.Inspector, deps.TxManager, log)
	notifications := service.NewNotificationService(
		repos.Requests, repos.Users, users, deps.Notifier, log)
	reports := service.NewReportService(
		repos.Requests, repos.Routes, repos.Receipts, deps.Infra.Renderer, log)

	return &ServiceBundle{
		Users:         users,
		Requests:      requests,
		Transitions:   transitions,
		Receipts:      receipts,
		Notifications: notifications,
		Reports:       reports,
	}, nil
}

// RegisterEventHandlers subscribes the notification fan-out to request events.
func RegisterEventHandlers(d dispatcher.Dispatcher, notifications service.NotificationService) {
	for _, t := range []event.Type{event.TypeRequestSubmitted, event.TypeStatusChanged} {
		d.Subscribe(t, "notify_queue", notifications.HandleStatusChange)
	}
}

// ProvideHTTPServer creates the API server.
func ProvideHTTPServer(cfg *Config, services *ServiceBundle, health httpapi.HealthFunc, logger *zap.Logger) (*httpapi.Server, error) {
	auth, err := httpapi.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		return nil, err
	}

	return httpapi.NewServer(httpapi.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		Mode:         cfg.Server.Mode,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, httpapi.Services{
		Requests:    services.Requests,
		Transitions: services.Transitions,
		Receipts:    services.Receipts,
		Users:       services.Users,
		Reports:     services.Reports,
		Health:      health,
	}, auth, &zapLoggerAdapter{logger: logger}), nil
}
