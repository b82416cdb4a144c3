package lognotify

import (
	"context"

	"go.uber.org/zap"
)

// Notifier writes notifications to the application log. Used in development
// and whenever no delivery channel is configured.
type Notifier struct {
	logger *zap.Logger
}

func NewNotifier(logger *zap.Logger) *Notifier {
	return &Notifier{logger: logger.Named("notify")}
}

// Notify implements port.Notifier
func (n *Notifier) Notify(ctx context.Context, contact, name string, requestID int64, statusLabel string) error {
	n.logger.Info("Status notification",
		zap.String("contact", contact),
		zap.String("name", name),
		zap.Int64("request_id", requestID),
		zap.String("status", statusLabel))
	return nil
}
