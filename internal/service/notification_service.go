package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/bug-tracker/internal/config"
	"github.com/spec-kit/bug-tracker/internal/events"
)

// NotificationService emits notifications for workflow events.
type NotificationService struct {
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{logger: logger, cfg: cfg}
}

// EventTypes lists the events the service reacts to.
func (n *NotificationService) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventItemCreated,
		events.EventItemStatusChanged,
		events.EventItemStatusUndone,
		events.EventCommentAdded,
	}
}

// Handle routes one event to the matching notification stubs.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_type", string(event.Type)),
		zap.String("item_kind", string(event.ItemKind)),
		zap.String("item_id", event.ItemID),
		zap.String("actor", event.Actor.Username),
		zap.Any("payload", event.Payload),
	}

	switch event.Type {
	case events.EventItemCreated:
		n.logger.Info("ItemCreated", fields...)
		n.sendEmailNotificationStub(ctx, event)
		n.sendWebhookNotificationStub(ctx, event)
	case events.EventItemStatusChanged, events.EventItemStatusUndone:
		n.logger.Info("ItemStatusChanged", fields...)
		n.sendWebhookNotificationStub(ctx, event)
	case events.EventCommentAdded:
		n.logger.Info("CommentAdded", fields...)
		n.sendEmailNotificationStub(ctx, event)
	default:
		n.logger.Debug("ignoring event", fields...)
	}
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("item_id", event.ItemID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("item_id", event.ItemID),
		zap.String("event_type", string(event.Type)))
}
