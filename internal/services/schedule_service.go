package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"chathub/internal/domain/message"
	"chathub/internal/domain/notification"
	"chathub/internal/events"
	"chathub/internal/proxy"
	"chathub/internal/repository"
	chathub_errors "chathub/pkg/errors"
	"chathub/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ScheduleService owns scheduled messages: creation, cancellation, and the
// materialization step the dispatcher drives. Materialization re-enters the
// same deliver path as a live send.
type ScheduleService struct {
	db       *gorm.DB
	repo     repository.ScheduleRepository
	access   *proxy.AccessControl
	chat     *ChatService
	notifier *NotificationService
	log      *logger.Logger
}

func NewScheduleService(
	db *gorm.DB,
	repo repository.ScheduleRepository,
	access *proxy.AccessControl,
	chat *ChatService,
	notifier *NotificationService,
	log *logger.Logger,
) *ScheduleService {
	return &ScheduleService{
		db:       db,
		repo:     repo,
		access:   access,
		chat:     chat,
		notifier: notifier,
		log:      log,
	}
}

// Create validates the payload and references now, at scheduling time, so a
// bad schedule fails fast instead of at dispatch.
func (s *ScheduleService) Create(ctx context.Context, in SendMessageInput, scheduledAt time.Time) (message.ScheduledMessage, error) {
	if err := s.chat.validate(in); err != nil {
		return message.ScheduledMessage{}, err
	}
	if !scheduledAt.After(time.Now()) {
		return message.ScheduledMessage{}, chathub_errors.ErrInvalidInput
	}
	if err := s.access.CanSendMessage(ctx, in.SenderID, in.ConversationID, in.ThreadID); err != nil {
		return message.ScheduledMessage{}, err
	}
	if in.ReplyToID != nil {
		if err := s.access.ValidateReply(ctx, in.ConversationID, *in.ReplyToID); err != nil {
			return message.ScheduledMessage{}, err
		}
	}
	if in.ThreadID != nil {
		if err := s.access.ValidateThread(ctx, in.ConversationID, *in.ThreadID); err != nil {
			return message.ScheduledMessage{}, err
		}
	}

	scheduled := message.ScheduledMessage{
		ID:             uuid.New(),
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Type:           in.Type,
		ScheduledAt:    scheduledAt,
		Status:         message.ScheduleStatusPending,
		CreatedAt:      time.Now(),
	}
	if in.Content != "" {
		scheduled.Content = sql.NullString{String: in.Content, Valid: true}
	}
	if in.FileURL != "" {
		scheduled.FileURL = sql.NullString{String: in.FileURL, Valid: true}
	}
	if in.ReplyToID != nil {
		scheduled.ReplyToID = uuid.NullUUID{UUID: *in.ReplyToID, Valid: true}
	}
	if in.ThreadID != nil {
		scheduled.ThreadID = uuid.NullUUID{UUID: *in.ThreadID, Valid: true}
	}

	if err := s.repo.Create(ctx, &scheduled); err != nil {
		return message.ScheduledMessage{}, err
	}
	return scheduled, nil
}

// ListBySender returns the caller's scheduled messages, optionally filtered
// by status. An empty status means all.
func (s *ScheduleService) ListBySender(ctx context.Context, senderID uuid.UUID, status string) ([]message.ScheduledMessage, error) {
	switch status {
	case "", message.ScheduleStatusPending, message.ScheduleStatusSent,
		message.ScheduleStatusCancelled, message.ScheduleStatusFailed:
	default:
		return nil, chathub_errors.ErrInvalidInput
	}
	return s.repo.ListBySender(ctx, senderID, status)
}

// Cancel flips a pending row to cancelled. The lookup is scoped to the
// caller's pending rows, so cancelling a sent, failed, or foreign row
// reports not found.
func (s *ScheduleService) Cancel(ctx context.Context, id, senderID uuid.UUID) error {
	return s.repo.Cancel(ctx, id, senderID)
}

// Due returns the pending rows whose scheduled time has passed.
func (s *ScheduleService) Due(ctx context.Context, now time.Time, limit int) ([]message.ScheduledMessage, error) {
	return s.repo.GetDue(ctx, now, limit)
}

// Materialize promotes one due row into a real message. The message insert
// and the PENDING -> SENT flip commit in one transaction; if a concurrent
// dispatcher already flipped the row, the conditional update affects zero
// rows and the whole transaction rolls back, so at most one message exists
// per row. Any other failure marks the row FAILED.
func (s *ScheduleService) Materialize(ctx context.Context, scheduled message.ScheduledMessage) error {
	sentAt := time.Now()
	msg := message.Message{
		ID:             uuid.New(),
		ConversationID: scheduled.ConversationID,
		SenderID:       scheduled.SenderID,
		Type:           scheduled.Type,
		Content:        scheduled.Content,
		FileURL:        scheduled.FileURL,
		ReplyToID:      scheduled.ReplyToID,
		ThreadID:       scheduled.ThreadID,
		CreatedAt:      sentAt,
	}

	err := s.persistSend(ctx, &msg, scheduled.ID, sentAt)
	if errors.Is(err, chathub_errors.ErrConflict) {
		// Another dispatcher claimed the row first. Nothing was committed.
		s.log.Logger.Info("scheduled message already claimed",
			zap.String("scheduled_id", scheduled.ID.String()))
		return nil
	}
	if err != nil {
		s.fail(ctx, scheduled, err)
		return err
	}

	s.chat.Deliver(ctx, msg, "")
	s.chat.broadcaster.BroadcastToUser(scheduled.SenderID, events.New(events.EventScheduledMessageSent, map[string]interface{}{
		"scheduledMessageId": scheduled.ID,
		"messageId":          msg.ID,
		"conversationId":     scheduled.ConversationID,
		"sentAt":             sentAt,
	}))
	return nil
}

func (s *ScheduleService) persistSend(ctx context.Context, msg *message.Message, scheduledID uuid.UUID, sentAt time.Time) error {
	if s.db == nil {
		if err := s.repo.MarkSent(ctx, scheduledID, sentAt); err != nil {
			return err
		}
		if err := s.chat.msgRepo.Create(ctx, msg); err != nil {
			return err
		}
		return s.chat.convRepo.TouchLastMessageAt(ctx, msg.ConversationID, msg.CreatedAt)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewScheduleRepository(tx).MarkSent(ctx, scheduledID, sentAt); err != nil {
			return err
		}
		if err := repository.NewMessageRepository(tx).Create(ctx, msg); err != nil {
			return err
		}
		return repository.NewConversationRepository(tx).TouchLastMessageAt(ctx, msg.ConversationID, msg.CreatedAt)
	})
}

// fail moves the row to FAILED with the error as reason and tells the
// author. Best effort; the dispatcher retries nothing either way.
func (s *ScheduleService) fail(ctx context.Context, scheduled message.ScheduledMessage, cause error) {
	if err := s.repo.MarkFailed(ctx, scheduled.ID, cause.Error()); err != nil {
		if !errors.Is(err, chathub_errors.ErrConflict) {
			s.log.Logger.Error("marking scheduled message failed",
				zap.String("scheduled_id", scheduled.ID.String()), zap.Error(err))
		}
		return
	}

	if err := s.notifier.Notify(ctx, scheduled.SenderID, notification.TypeScheduledMessage,
		"Scheduled message could not be sent", cause.Error(),
		map[string]interface{}{"scheduledMessageId": scheduled.ID}); err != nil {
		s.log.Logger.Error("notifying sender of failed schedule",
			zap.String("scheduled_id", scheduled.ID.String()), zap.Error(err))
	}
}
