package services

import (
	"context"
	"testing"

	"chathub/internal/domain/message"
	"chathub/internal/events"
	"chathub/internal/profile"
	chathub_errors "chathub/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendBroadcastsAndNotifiesOthers(t *testing.T) {
	e := newEnv(t)
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, alice, bob, carol)
	e.lookuper.profiles[alice] = profile.PublicProfile{ID: alice, Username: "alice", FullName: "Alice A"}

	enriched, err := e.chat.Send(context.Background(), SendMessageInput{
		ConversationID: conv.ID,
		SenderID:       alice,
		Content:        "hello",
		Type:           message.TypeText,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", enriched.Sender.Username)
	assert.Equal(t, "hello", enriched.Message.Content.String)

	broadcasts := e.broadcaster.byType(events.EventNewMessage)
	require.Len(t, broadcasts, 1)
	assert.Equal(t, conv.ID, broadcasts[0].ConversationID)

	// Recipients get one notification each; the sender gets none.
	pushes := e.broadcaster.byType(events.EventNotification)
	require.Len(t, pushes, 2)
	recipients := map[uuid.UUID]bool{pushes[0].UserID: true, pushes[1].UserID: true}
	assert.True(t, recipients[bob])
	assert.True(t, recipients[carol])
	assert.False(t, recipients[alice])

	count, err := e.notifier.CountUnread(context.Background(), bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSendStampsConversationLastMessageAt(t *testing.T) {
	e := newEnv(t)
	alice, bob := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, alice, bob)

	e.seedMessage(t, conv.ID, alice, "first")

	got, err := e.convRepo.GetByID(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.True(t, got.LastMessageAt.Valid)
}

func TestSendFallsBackToSentinelSender(t *testing.T) {
	e := newEnv(t)
	alice, bob := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, alice, bob)
	e.lookuper.failing = true

	enriched, err := e.chat.Send(context.Background(), SendMessageInput{
		ConversationID: conv.ID,
		SenderID:       alice,
		Content:        "hi",
		Type:           message.TypeText,
	})
	require.NoError(t, err)
	assert.Equal(t, profile.Sentinel(alice), enriched.Sender)
}

func TestSendRejectsNonParticipant(t *testing.T) {
	e := newEnv(t)
	alice, bob := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, alice, bob)

	_, err := e.chat.Send(context.Background(), SendMessageInput{
		ConversationID: conv.ID,
		SenderID:       uuid.New(),
		Content:        "let me in",
		Type:           message.TypeText,
	})
	assert.ErrorIs(t, err, chathub_errors.ErrForbidden)
}

func TestSendAdminOnlyChat(t *testing.T) {
	e := newEnv(t)
	admin, member := uuid.New(), uuid.New()
	conv := e.seedGroup(t, true, admin, member)

	_, err := e.chat.Send(context.Background(), SendMessageInput{
		ConversationID: conv.ID,
		SenderID:       member,
		Content:        "blocked",
		Type:           message.TypeText,
	})
	assert.ErrorIs(t, err, chathub_errors.ErrForbidden)

	_, err = e.chat.Send(context.Background(), SendMessageInput{
		ConversationID: conv.ID,
		SenderID:       admin,
		Content:        "allowed",
		Type:           message.TypeText,
	})
	assert.NoError(t, err)
}

func TestSendAdminOnlyChatExemptsThreads(t *testing.T) {
	e := newEnv(t)
	admin, member := uuid.New(), uuid.New()
	conv := e.seedGroup(t, true, admin, member)
	parent := e.seedMessage(t, conv.ID, admin, "root")

	threads := NewThreadService(e.convRepo, e.msgRepo, e.threadRepo, e.access, e.broadcaster)
	thread, err := threads.Create(context.Background(), admin, conv.ID, parent.ID, "side talk")
	require.NoError(t, err)

	_, err = e.chat.Send(context.Background(), SendMessageInput{
		ConversationID: conv.ID,
		SenderID:       member,
		Content:        "reply inside thread",
		Type:           message.TypeText,
		ThreadID:       &thread.ID,
	})
	assert.NoError(t, err)
}

func TestSendValidatesInput(t *testing.T) {
	e := newEnv(t)
	alice, bob := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, alice, bob)

	cases := []SendMessageInput{
		{ConversationID: conv.ID, SenderID: alice, Type: message.TypeText},
		{ConversationID: conv.ID, SenderID: alice, Type: message.TypeImage},
		{ConversationID: conv.ID, SenderID: alice, Type: "POLL", Content: "x"},
	}
	for _, in := range cases {
		_, err := e.chat.Send(context.Background(), in)
		assert.ErrorIs(t, err, chathub_errors.ErrInvalidInput)
	}
}

func TestSendRejectsForeignReply(t *testing.T) {
	e := newEnv(t)
	alice, bob := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, alice, bob)
	other := e.seedGroup(t, false, alice, bob)
	foreign := e.seedMessage(t, other.ID, alice, "elsewhere")

	_, err := e.chat.Send(context.Background(), SendMessageInput{
		ConversationID: conv.ID,
		SenderID:       alice,
		Content:        "reply",
		Type:           message.TypeText,
		ReplyToID:      &foreign.ID,
	})
	assert.ErrorIs(t, err, chathub_errors.ErrInvalidInput)
}

func TestMessagesRequiresMembership(t *testing.T) {
	e := newEnv(t)
	alice, bob := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, alice, bob)
	e.seedMessage(t, conv.ID, alice, "hello")

	_, err := e.chat.Messages(context.Background(), conv.ID, uuid.New(), nil, 10)
	assert.ErrorIs(t, err, chathub_errors.ErrForbidden)

	msgs, err := e.chat.Messages(context.Background(), conv.ID, bob, nil, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}
