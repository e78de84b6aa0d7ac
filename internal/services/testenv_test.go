package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"chathub/internal/domain/conversation"
	"chathub/internal/domain/message"
	"chathub/internal/domain/notification"
	"chathub/internal/events"
	"chathub/internal/profile"
	"chathub/internal/proxy"
	"chathub/internal/repository"
	"chathub/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func nopLogger() *logger.Logger {
	return logger.NewNop()
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&conversation.Conversation{},
		&conversation.Participant{},
		&message.Message{},
		&message.Thread{},
		&message.Reaction{},
		&message.ScheduledMessage{},
		&notification.Notification{},
	))
	return db
}

// recordedEvent captures one broadcast for assertions.
type recordedEvent struct {
	Scope          string
	ConversationID uuid.UUID
	UserID         uuid.UUID
	Event          *events.Event
}

// recordingBroadcaster collects broadcasts instead of pushing to sockets.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *recordingBroadcaster) BroadcastToConversation(conversationID uuid.UUID, event *events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{Scope: events.ScopeConversation, ConversationID: conversationID, Event: event})
}

func (b *recordingBroadcaster) BroadcastToUser(userID uuid.UUID, event *events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{Scope: events.ScopeUser, UserID: userID, Event: event})
}

func (b *recordingBroadcaster) BroadcastToAll(event *events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{Scope: events.ScopeAll, Event: event})
}

func (b *recordingBroadcaster) byType(eventType string) []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedEvent
	for _, e := range b.events {
		if e.Event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// fakeLookuper serves canned profiles, or fails when failing is set.
type fakeLookuper struct {
	profiles map[uuid.UUID]profile.PublicProfile
	failing  bool
}

func (f *fakeLookuper) Lookup(_ context.Context, userID uuid.UUID, _ string) (profile.PublicProfile, error) {
	if f.failing {
		return profile.PublicProfile{}, fmt.Errorf("profile service unreachable")
	}
	if p, ok := f.profiles[userID]; ok {
		return p, nil
	}
	return profile.PublicProfile{}, fmt.Errorf("no such user")
}

// env bundles everything a service test needs against one database.
type env struct {
	db          *gorm.DB
	convRepo    repository.ConversationRepository
	msgRepo     repository.MessageRepository
	threadRepo  repository.ThreadRepository
	schedRepo   repository.ScheduleRepository
	notifRepo   repository.NotificationRepository
	access      *proxy.AccessControl
	broadcaster *recordingBroadcaster
	lookuper    *fakeLookuper
	notifier    *NotificationService
	chat        *ChatService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db := newTestDB(t)
	e := &env{
		db:          db,
		convRepo:    repository.NewConversationRepository(db),
		msgRepo:     repository.NewMessageRepository(db),
		threadRepo:  repository.NewThreadRepository(db),
		schedRepo:   repository.NewScheduleRepository(db),
		notifRepo:   repository.NewNotificationRepository(db),
		broadcaster: &recordingBroadcaster{},
		lookuper:    &fakeLookuper{profiles: map[uuid.UUID]profile.PublicProfile{}},
	}
	e.access = proxy.NewAccessControl(e.convRepo, e.msgRepo, e.threadRepo)
	e.notifier = NewNotificationService(e.notifRepo, e.broadcaster, logger.NewNop())
	e.chat = NewChatService(db, e.convRepo, e.msgRepo, e.access, e.lookuper, e.notifier, e.broadcaster, logger.NewNop())
	return e
}

// seedGroup creates a group conversation with the first user as admin and
// the rest as members.
func (e *env) seedGroup(t *testing.T, adminOnly bool, userIDs ...uuid.UUID) conversation.Conversation {
	t.Helper()
	require.NotEmpty(t, userIDs)

	now := time.Now()
	conv := conversation.Conversation{
		ID:            uuid.New(),
		Type:          conversation.TypeGroup,
		AdminOnlyChat: adminOnly,
		CreatedBy:     uuid.NullUUID{UUID: userIDs[0], Valid: true},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for i, id := range userIDs {
		role := conversation.RoleMember
		if i == 0 {
			role = conversation.RoleAdmin
		}
		// Stagger joined_at so promotion order is deterministic.
		conv.Participants = append(conv.Participants, conversation.Participant{
			UserID: id, Role: role, IsActive: true, JoinedAt: now.Add(time.Duration(i) * time.Second),
		})
	}
	require.NoError(t, e.convRepo.Create(context.Background(), &conv))
	return conv
}

func (e *env) seedMessage(t *testing.T, conversationID, senderID uuid.UUID, content string) message.Message {
	t.Helper()
	msg, err := e.chat.Send(context.Background(), SendMessageInput{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Type:           message.TypeText,
	})
	require.NoError(t, err)
	return msg.Message
}
