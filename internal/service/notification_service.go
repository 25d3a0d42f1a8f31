package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// StatusChangeNotification describes one delivery attempt to a ticket creator.
type StatusChangeNotification struct {
	TicketCode     string
	TicketTitle    string
	RecipientEmail string
	RecipientName  string
	OldStatus      domain.TicketStatus
	NewStatus      domain.TicketStatus
	ActorName      string
	Solution       *string
}

// Notifier delivers a single status-change notification. The boolean result
// reports delivery success; implementations never panic the caller.
type Notifier interface {
	SendStatusChange(ctx context.Context, n StatusChangeNotification) bool
}

// EmailNotifier is the stub production notifier: it emits the notification
// through the logger, gated on configured sender and webhook endpoints.
type EmailNotifier struct {
	cfg    config.NotificationConfig
	logger *zap.Logger
}

// NewEmailNotifier creates the notifier.
func NewEmailNotifier(cfg config.NotificationConfig, logger *zap.Logger) *EmailNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailNotifier{cfg: cfg, logger: logger}
}

// SendStatusChange reports true when at least one channel accepted the message.
func (e *EmailNotifier) SendStatusChange(_ context.Context, n StatusChangeNotification) bool {
	sent := false
	if strings.TrimSpace(e.cfg.EmailFrom) != "" && strings.TrimSpace(n.RecipientEmail) != "" {
		e.logger.Info("email notification",
			zap.String("from", e.cfg.EmailFrom),
			zap.String("to", n.RecipientEmail),
			zap.String("ticket_code", n.TicketCode),
			zap.String("old_status", string(n.OldStatus)),
			zap.String("new_status", string(n.NewStatus)),
			zap.String("actor", n.ActorName))
		sent = true
	}
	if strings.TrimSpace(e.cfg.WebhookURL) != "" {
		e.logger.Debug("webhook notification",
			zap.String("url", e.cfg.WebhookURL),
			zap.String("ticket_code", n.TicketCode),
			zap.String("new_status", string(n.NewStatus)))
		sent = true
	}
	return sent
}

// NotificationService subscribes to domain events and forwards status
// transitions to the ticket creator. Delivery failures are logged and
// swallowed; the workflow result is never affected.
type NotificationService struct {
	dispatcher events.Dispatcher
	users      repository.UserRepository
	notifier   Notifier
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, users repository.UserRepository, notifier Notifier, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		users:      users,
		notifier:   notifier,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketCommentAdded, n.handleTicketCommentAdded)
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return errors.New("unexpected payload type for status change event")
	}

	recipientEmail := ""
	recipientName := ""
	if n.users != nil && payload.CreatorID != "" {
		creator, err := n.users.GetByID(ctx, payload.CreatorID)
		if err != nil {
			n.logger.Warn("notification recipient lookup failed",
				zap.String("ticket_id", event.TicketID),
				zap.String("creator_id", payload.CreatorID),
				zap.Error(err))
		} else {
			recipientEmail = creator.Email
			recipientName = creator.Name
		}
	}

	if n.notifier == nil {
		return nil
	}
	delivered := n.notifier.SendStatusChange(ctx, StatusChangeNotification{
		TicketCode:     payload.Code,
		TicketTitle:    payload.Title,
		RecipientEmail: recipientEmail,
		RecipientName:  recipientName,
		OldStatus:      payload.OldStatus,
		NewStatus:      payload.NewStatus,
		ActorName:      event.Actor.Name,
		Solution:       payload.Solution,
	})
	if !delivered {
		n.logger.Warn("status change notification not delivered",
			zap.String("ticket_id", event.TicketID),
			zap.String("ticket_code", payload.Code),
			zap.String("new_status", string(payload.NewStatus)))
	}
	return nil
}

func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleTicketCommentAdded(_ context.Context, event events.Event) error {
	n.logger.Debug("TicketCommentAdded", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}
