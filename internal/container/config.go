// Package container provides dependency injection and lifecycle management
// for the travel request service.
package container

import (
	"fmt"
	"time"
)

// Notification channels
const (
	ChannelLog  = "log"
	ChannelLark = "lark"
	ChannelAMQP = "amqp"
)

// Config holds all configuration for the Container.
type Config struct {
	Database     DatabaseConfig
	Server       ServerConfig
	Auth         AuthConfig
	Storage      StorageConfig
	PII          PIIConfig
	Notification NotificationConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// StorageConfig holds receipt file storage settings.
type StorageConfig struct {
	// BlobDir is the base directory of the blob store
	BlobDir string
}

// PIIConfig holds the contact field encryption key.
type PIIConfig struct {
	// Key is a base64 encoded 32-byte key
	Key string
}

// NotificationConfig selects the status notification channel.
type NotificationConfig struct {
	Channel string

	LarkAppID     string
	LarkAppSecret string

	AMQPURL   string
	AMQPQueue string

	// AsyncTimeout bounds each asynchronous event delivery; zero means none
	AsyncTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         "data/travel.db",
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			Mode:         "release",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			BlobDir: "data/blobs",
		},
		Notification: NotificationConfig{
			Channel:      ChannelLog,
			AMQPQueue:    "travel.notifications",
			AsyncTimeout: 30 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.PII.Key == "" {
		return fmt.Errorf("pii.key is required")
	}
	if c.Storage.BlobDir == "" {
		return fmt.Errorf("storage.blob_dir is required")
	}

	switch c.Notification.Channel {
	case ChannelLog:
	case ChannelLark:
		if c.Notification.LarkAppID == "" || c.Notification.LarkAppSecret == "" {
			return fmt.Errorf("lark credentials are required for the lark channel")
		}
	case ChannelAMQP:
		if c.Notification.AMQPURL == "" || c.Notification.AMQPQueue == "" {
			return fmt.Errorf("amqp url and queue are required for the amqp channel")
		}
	default:
		return fmt.Errorf("unknown notification channel %q", c.Notification.Channel)
	}

	return nil
}
