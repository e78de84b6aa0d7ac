package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chathub/internal/domain/message"
	"chathub/internal/domain/notification"
	"chathub/internal/events"
	"chathub/internal/profile"
	"chathub/internal/proxy"
	"chathub/internal/repository"
	chathub_errors "chathub/pkg/errors"
	"chathub/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SendMessageInput carries one send through the ingestion pipeline,
// regardless of whether it arrived over a socket, REST, or the dispatcher.
type SendMessageInput struct {
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	Content        string
	Type           string
	FileURL        string
	ReplyToID      *uuid.UUID
	ThreadID       *uuid.UUID

	// BearerToken is forwarded to the profile service for sender enrichment.
	// Empty for dispatcher-originated sends; enrichment then runs with the
	// hub's own credentials-free request and may fall back to the sentinel.
	BearerToken string
}

// EnrichedMessage is the broadcast payload: the persisted message plus the
// sender's public profile (or the sentinel when the lookup fails).
type EnrichedMessage struct {
	Message message.Message       `json:"message"`
	Sender  profile.PublicProfile `json:"sender"`
}

// ChatService is the message ingestion pipeline:
// guard -> persist -> enrich -> broadcast -> notify.
type ChatService struct {
	db          *gorm.DB
	convRepo    repository.ConversationRepository
	msgRepo     repository.MessageRepository
	access      *proxy.AccessControl
	profiles    profile.Lookuper
	notifier    *NotificationService
	broadcaster Broadcaster
	log         *logger.Logger
}

func NewChatService(
	db *gorm.DB,
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	access *proxy.AccessControl,
	profiles profile.Lookuper,
	notifier *NotificationService,
	broadcaster Broadcaster,
	log *logger.Logger,
) *ChatService {
	return &ChatService{
		db:          db,
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		access:      access,
		profiles:    profiles,
		notifier:    notifier,
		broadcaster: broadcaster,
		log:         log,
	}
}

// Send runs the full pipeline for one message. Authorization and reference
// failures reject the send; enrichment and notification failures do not.
func (s *ChatService) Send(ctx context.Context, in SendMessageInput) (EnrichedMessage, error) {
	if err := s.validate(in); err != nil {
		return EnrichedMessage{}, err
	}

	if err := s.access.CanSendMessage(ctx, in.SenderID, in.ConversationID, in.ThreadID); err != nil {
		return EnrichedMessage{}, err
	}
	if in.ReplyToID != nil {
		if err := s.access.ValidateReply(ctx, in.ConversationID, *in.ReplyToID); err != nil {
			return EnrichedMessage{}, err
		}
	}
	if in.ThreadID != nil {
		if err := s.access.ValidateThread(ctx, in.ConversationID, *in.ThreadID); err != nil {
			return EnrichedMessage{}, err
		}
	}

	msg := buildMessage(in, time.Now())
	if err := s.persist(ctx, &msg); err != nil {
		return EnrichedMessage{}, err
	}

	return s.Deliver(ctx, msg, in.BearerToken), nil
}

// Deliver runs the post-persistence half of the pipeline: sender enrichment,
// room broadcast, and per-recipient notification fan-out. The message is
// already durable; nothing here can fail the send.
func (s *ChatService) Deliver(ctx context.Context, msg message.Message, bearerToken string) EnrichedMessage {
	enriched := EnrichedMessage{
		Message: msg,
		Sender:  s.lookupSender(ctx, msg.SenderID, bearerToken),
	}

	s.broadcaster.BroadcastToConversation(msg.ConversationID, events.New(events.EventNewMessage, enriched))
	s.notifyRecipients(ctx, enriched)
	return enriched
}

// Messages lists top-level conversation messages, newest first, behind the
// view guard.
func (s *ChatService) Messages(ctx context.Context, conversationID, userID uuid.UUID, before *uuid.UUID, limit int) ([]message.Message, error) {
	if err := s.access.CanViewConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.msgRepo.GetConversationMessages(ctx, conversationID, before, limit)
}

func (s *ChatService) validate(in SendMessageInput) error {
	switch in.Type {
	case message.TypeText:
		if in.Content == "" {
			return chathub_errors.ErrInvalidInput
		}
	case message.TypeImage, message.TypeFile:
		if in.FileURL == "" {
			return chathub_errors.ErrInvalidInput
		}
	case message.TypeLocation:
		if in.Content == "" {
			return chathub_errors.ErrInvalidInput
		}
	default:
		return chathub_errors.ErrInvalidInput
	}
	return nil
}

// persist writes the message and stamps the conversation's last_message_at
// in one transaction, so a conversation can never point at a message that
// did not commit.
func (s *ChatService) persist(ctx context.Context, msg *message.Message) error {
	if s.db == nil {
		if err := s.msgRepo.Create(ctx, msg); err != nil {
			return err
		}
		return s.convRepo.TouchLastMessageAt(ctx, msg.ConversationID, msg.CreatedAt)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewMessageRepository(tx).Create(ctx, msg); err != nil {
			return err
		}
		return repository.NewConversationRepository(tx).TouchLastMessageAt(ctx, msg.ConversationID, msg.CreatedAt)
	})
}

func (s *ChatService) lookupSender(ctx context.Context, senderID uuid.UUID, bearerToken string) profile.PublicProfile {
	sender, err := s.profiles.Lookup(ctx, senderID, bearerToken)
	if err != nil {
		s.log.Logger.Warn("profile lookup failed, using sentinel sender",
			zap.String("user_id", senderID.String()), zap.Error(err))
		return profile.Sentinel(senderID)
	}
	return sender
}

// notifyRecipients creates a persisted notification for every other active
// participant and pushes it to their user room. Failures are logged and
// swallowed; the sender's send already succeeded.
func (s *ChatService) notifyRecipients(ctx context.Context, enriched EnrichedMessage) {
	msg := enriched.Message

	participants, err := s.convRepo.GetActiveParticipants(ctx, msg.ConversationID)
	if err != nil {
		s.log.Logger.Error("notification fan-out: listing participants failed",
			zap.String("conversation_id", msg.ConversationID.String()), zap.Error(err))
		return
	}

	notifType := notification.TypeNewMessage
	if msg.ThreadID.Valid {
		notifType = notification.TypeThreadReply
	}

	data := map[string]interface{}{
		"conversationId": msg.ConversationID,
		"messageId":      msg.ID,
	}
	if msg.ThreadID.Valid {
		data["threadId"] = msg.ThreadID.UUID
	}

	for _, p := range participants {
		if p.UserID == msg.SenderID {
			continue
		}
		err := s.notifier.Notify(ctx, p.UserID, notifType,
			fmt.Sprintf("New message from %s", enriched.Sender.Username),
			snippet(msg), data)
		if err != nil {
			s.log.Logger.Error("notification fan-out failed for recipient",
				zap.String("user_id", p.UserID.String()),
				zap.String("message_id", msg.ID.String()),
				zap.Error(err))
		}
	}
}

func buildMessage(in SendMessageInput, now time.Time) message.Message {
	msg := message.Message{
		ID:             uuid.New(),
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Type:           in.Type,
		CreatedAt:      now,
	}
	if in.Content != "" {
		msg.Content = sql.NullString{String: in.Content, Valid: true}
	}
	if in.FileURL != "" {
		msg.FileURL = sql.NullString{String: in.FileURL, Valid: true}
	}
	if in.ReplyToID != nil {
		msg.ReplyToID = uuid.NullUUID{UUID: *in.ReplyToID, Valid: true}
	}
	if in.ThreadID != nil {
		msg.ThreadID = uuid.NullUUID{UUID: *in.ThreadID, Valid: true}
	}
	return msg
}

func snippet(msg message.Message) string {
	if !msg.Content.Valid {
		return "Sent an attachment"
	}
	content := msg.Content.String
	if len(content) > 120 {
		return content[:117] + "..."
	}
	return content
}
