package config

import (
	"time"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/container"
)

const asyncNotificationTimeout = 30 * time.Second

// ToContainerConfig converts the application Config to a container.Config.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			Mode:         c.Server.Mode,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
		},
		Auth: container.AuthConfig{
			JWTSecret: c.Auth.JWTSecret,
			Issuer:    c.Auth.Issuer,
		},
		Storage: container.StorageConfig{
			BlobDir: c.Storage.BlobDir,
		},
		PII: container.PIIConfig{
			Key: c.PII.Key,
		},
		Notification: container.NotificationConfig{
			Channel:       c.Notification.Channel,
			LarkAppID:     c.Notification.Lark.AppID,
			LarkAppSecret: c.Notification.Lark.AppSecret,
			AMQPURL:       c.Notification.AMQP.URL,
			AMQPQueue:     c.Notification.AMQP.Queue,
			AsyncTimeout:  asyncNotificationTimeout,
		},
	}
}
