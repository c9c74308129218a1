package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/authenticity-service/internal/config"
	"github.com/spec-kit/authenticity-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTokenBatchIssued, n.handleBatchIssued)
	n.dispatcher.Subscribe(events.EventTokenConsumed, n.handleTokenConsumed)
	n.dispatcher.Subscribe(events.EventCounterfeitScan, n.handleCounterfeitScan)
}

func (n *NotificationService) handleBatchIssued(ctx context.Context, event events.Event) error {
	n.logger.Info("TokenBatchIssued", zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTokenConsumed(ctx context.Context, event events.Event) error {
	n.logger.Info("TokenConsumed", zap.String("token_id", event.TokenID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleCounterfeitScan(ctx context.Context, event events.Event) error {
	n.logger.Info("CounterfeitScan", zap.String("token_id", event.TokenID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("event_type", string(event.Type)))
}
