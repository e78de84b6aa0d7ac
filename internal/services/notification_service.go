package services

import (
	"context"
	"encoding/json"
	"time"

	"chathub/internal/domain/notification"
	"chathub/internal/events"
	"chathub/internal/repository"
	"chathub/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationService persists notifications and pushes them to the
// recipient's user room in the same call.
type NotificationService struct {
	repo        repository.NotificationRepository
	broadcaster Broadcaster
	log         *logger.Logger
}

func NewNotificationService(repo repository.NotificationRepository, broadcaster Broadcaster, log *logger.Logger) *NotificationService {
	return &NotificationService{repo: repo, broadcaster: broadcaster, log: log}
}

// Notify writes the notification row and pushes it to the recipient. The
// push is best effort; a recipient with no open sockets simply reads the
// row later.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, notifType, title, body string, data map[string]interface{}) error {
	raw := "{}"
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			s.log.Logger.Warn("notification data not serializable, storing empty object",
				zap.String("user_id", userID.String()), zap.Error(err))
		} else {
			raw = string(encoded)
		}
	}

	notif := notification.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Body:      body,
		Data:      raw,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, &notif); err != nil {
		return err
	}

	s.broadcaster.BroadcastToUser(userID, events.New(events.EventNotification, notif))
	return nil
}

func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, onlyUnread bool, page, limit int) ([]notification.Notification, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, onlyUnread, page, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, notificationID, userID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}
