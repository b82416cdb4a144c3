package lark

import (
	"context"
	"encoding/json"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

const (
	receiveIDTypeEmail = "email"
	msgTypeText        = "text"
)

// Config holds Lark app credentials
type Config struct {
	AppID     string
	AppSecret string
}

// messageCreator is the part of the IM message resource the notifier uses
type messageCreator interface {
	Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)
}

// Notifier sends status notifications as Lark text messages addressed by email
type Notifier struct {
	messages messageCreator
	logger   *zap.Logger
}

// NewNotifier creates a Lark notifier with a token-caching SDK client
func NewNotifier(cfg Config, logger *zap.Logger) *Notifier {
	client := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	)
	return &Notifier{
		messages: client.Im.Message,
		logger:   logger,
	}
}

// Notify implements port.Notifier
func (n *Notifier) Notify(ctx context.Context, contact, name string, requestID int64, statusLabel string) error {
	if contact == "" {
		return fmt.Errorf("contact cannot be empty")
	}

	content, err := json.Marshal(map[string]string{"text": MessageText(name, requestID, statusLabel)})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDTypeEmail).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(contact).
			MsgType(msgTypeText).
			Content(string(content)).
			Build()).
		Build()

	resp, err := n.messages.Create(ctx, req)
	if err != nil {
		n.logger.Error("Failed to send notification", zap.Int64("request_id", requestID), zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}
	if !resp.Success() {
		n.logger.Error("Lark returned failure",
			zap.Int64("request_id", requestID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("lark API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	n.logger.Info("Notification sent", zap.Int64("request_id", requestID), zap.String("status", statusLabel))
	return nil
}

// MessageText is the body shared by every notifier channel
func MessageText(name string, requestID int64, statusLabel string) string {
	return fmt.Sprintf("Hello %s, travel request #%d is now: %s.", name, requestID, statusLabel)
}
