package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"chathub/internal/domain/message"
	"chathub/internal/events"
	"chathub/internal/proxy"
	"chathub/internal/repository"
	chathub_errors "chathub/pkg/errors"

	"github.com/google/uuid"
)

// ThreadService roots sub-conversations at top-level messages. Unread counts
// are computed on read from the conversation-level read cursor; threads keep
// no cursor of their own.
type ThreadService struct {
	convRepo    repository.ConversationRepository
	msgRepo     repository.MessageRepository
	threadRepo  repository.ThreadRepository
	access      *proxy.AccessControl
	broadcaster Broadcaster
}

func NewThreadService(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	threadRepo repository.ThreadRepository,
	access *proxy.AccessControl,
	broadcaster Broadcaster,
) *ThreadService {
	return &ThreadService{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		threadRepo:  threadRepo,
		access:      access,
		broadcaster: broadcaster,
	}
}

// ThreadWithUnread is the listing view: the thread plus the caller's
// computed unread count.
type ThreadWithUnread struct {
	Thread      message.Thread `json:"thread"`
	UnreadCount int64          `json:"unreadCount"`
}

// Create roots a thread at a top-level message of the conversation. A
// message carries at most one thread; a second create on the same parent is
// a conflict. The unique index on parent_message_id backs this up under
// concurrency.
func (s *ThreadService) Create(ctx context.Context, userID, conversationID, parentMessageID uuid.UUID, title string) (message.Thread, error) {
	if err := s.access.CanViewConversation(ctx, userID, conversationID); err != nil {
		return message.Thread{}, err
	}

	parent, err := s.msgRepo.GetByIDInConversation(ctx, parentMessageID, conversationID)
	if err != nil {
		if errors.Is(err, chathub_errors.ErrNotFound) {
			return message.Thread{}, chathub_errors.ErrInvalidInput
		}
		return message.Thread{}, err
	}
	if parent.ThreadID.Valid {
		return message.Thread{}, chathub_errors.ErrInvalidInput
	}

	if _, err := s.threadRepo.GetByParentMessage(ctx, parentMessageID); err == nil {
		return message.Thread{}, chathub_errors.ErrConflict
	} else if !errors.Is(err, chathub_errors.ErrNotFound) {
		return message.Thread{}, err
	}

	thread := message.Thread{
		ID:              uuid.New(),
		ConversationID:  conversationID,
		ParentMessageID: parentMessageID,
		CreatedBy:       userID,
		CreatedAt:       time.Now(),
	}
	if title != "" {
		thread.Title = sql.NullString{String: title, Valid: true}
	}
	if err := s.threadRepo.Create(ctx, &thread); err != nil {
		if errors.Is(err, chathub_errors.ErrAlreadyExists) {
			return message.Thread{}, chathub_errors.ErrConflict
		}
		return message.Thread{}, err
	}

	s.broadcaster.BroadcastToConversation(conversationID, events.New(events.EventThreadCreated, thread))
	return thread, nil
}

// ListWithUnread returns the conversation's threads with the caller's unread
// count per thread. Each count is a scan; listings stay consistent with the
// latest read cursor at the cost of one query per thread.
func (s *ThreadService) ListWithUnread(ctx context.Context, conversationID, userID uuid.UUID) ([]ThreadWithUnread, error) {
	if err := s.access.CanViewConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	threads, err := s.threadRepo.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	since, err := s.readCursor(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	out := make([]ThreadWithUnread, 0, len(threads))
	for _, t := range threads {
		count, err := s.msgRepo.CountThreadUnread(ctx, t.ID, userID, since)
		if err != nil {
			return nil, err
		}
		out = append(out, ThreadWithUnread{Thread: t, UnreadCount: count})
	}
	return out, nil
}

// Messages returns a thread's replies in ascending order.
func (s *ThreadService) Messages(ctx context.Context, threadID, userID uuid.UUID, limit int) ([]message.Message, error) {
	thread, err := s.threadRepo.GetByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if err := s.access.CanViewConversation(ctx, userID, thread.ConversationID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	return s.msgRepo.GetThreadMessages(ctx, threadID, limit)
}

// UnreadCount computes one thread's unread count for the caller.
func (s *ThreadService) UnreadCount(ctx context.Context, threadID, userID uuid.UUID) (int64, error) {
	thread, err := s.threadRepo.GetByID(ctx, threadID)
	if err != nil {
		return 0, err
	}
	if err := s.access.CanViewConversation(ctx, userID, thread.ConversationID); err != nil {
		return 0, err
	}
	since, err := s.readCursor(ctx, thread.ConversationID, userID)
	if err != nil {
		return 0, err
	}
	return s.msgRepo.CountThreadUnread(ctx, thread.ID, userID, since)
}

// readCursor fetches the caller's conversation-level last_read_at. A user
// who never marked the conversation read has everything unread.
func (s *ThreadService) readCursor(ctx context.Context, conversationID, userID uuid.UUID) (*time.Time, error) {
	participant, err := s.convRepo.GetParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !participant.LastReadAt.Valid {
		return nil, nil
	}
	at := participant.LastReadAt.Time
	return &at, nil
}
