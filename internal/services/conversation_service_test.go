package services

import (
	"context"
	"testing"

	"chathub/internal/domain/conversation"
	"chathub/internal/events"
	chathub_errors "chathub/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConvService(e *env) *ConversationService {
	return NewConversationService(e.db, e.convRepo, e.access, e.broadcaster, nopLogger())
}

func TestCreateDirectIsDeduplicated(t *testing.T) {
	e := newEnv(t)
	svc := newConvService(e)
	alice, bob := uuid.New(), uuid.New()

	first, err := svc.CreateDirect(context.Background(), alice, bob)
	require.NoError(t, err)
	assert.Equal(t, conversation.TypeDirect, first.Type)

	// Same pair, either direction, resolves to the existing conversation.
	again, err := svc.CreateDirect(context.Background(), bob, alice)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestCreateDirectWithSelfRejected(t *testing.T) {
	e := newEnv(t)
	svc := newConvService(e)
	alice := uuid.New()

	_, err := svc.CreateDirect(context.Background(), alice, alice)
	assert.ErrorIs(t, err, chathub_errors.ErrInvalidInput)
}

func TestCreateGroupDeduplicatesMembers(t *testing.T) {
	e := newEnv(t)
	svc := newConvService(e)
	alice, bob := uuid.New(), uuid.New()

	conv, err := svc.CreateGroup(context.Background(), alice, "team", []uuid.UUID{bob, bob, alice})
	require.NoError(t, err)
	require.Len(t, conv.Participants, 2)

	roles := map[uuid.UUID]string{}
	for _, p := range conv.Participants {
		roles[p.UserID] = p.Role
	}
	assert.Equal(t, conversation.RoleAdmin, roles[alice])
	assert.Equal(t, conversation.RoleMember, roles[bob])
}

func TestAddParticipantReactivatesFormerMember(t *testing.T) {
	e := newEnv(t)
	svc := newConvService(e)
	admin, member := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, admin, member)
	ctx := context.Background()

	require.NoError(t, svc.Leave(ctx, conv.ID, member))
	require.NoError(t, svc.AddParticipant(ctx, admin, conv.ID, member))

	p, err := e.convRepo.GetParticipant(ctx, conv.ID, member)
	require.NoError(t, err)
	assert.True(t, p.IsActive)
}

func TestAddParticipantActiveMemberIsConflict(t *testing.T) {
	e := newEnv(t)
	svc := newConvService(e)
	admin, member := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, admin, member)

	err := svc.AddParticipant(context.Background(), admin, conv.ID, member)
	assert.ErrorIs(t, err, chathub_errors.ErrConflict)
}

func TestParticipantManagementRequiresAdmin(t *testing.T) {
	e := newEnv(t)
	svc := newConvService(e)
	admin, member, other := uuid.New(), uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, admin, member, other)
	ctx := context.Background()

	assert.ErrorIs(t, svc.AddParticipant(ctx, member, conv.ID, uuid.New()), chathub_errors.ErrForbidden)
	assert.ErrorIs(t, svc.RemoveParticipant(ctx, member, conv.ID, other), chathub_errors.ErrForbidden)
	assert.ErrorIs(t, svc.SetAdminOnlyChat(ctx, member, conv.ID, true), chathub_errors.ErrForbidden)
}

func TestDemotingLastAdminRejected(t *testing.T) {
	e := newEnv(t)
	svc := newConvService(e)
	admin, member := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, admin, member)

	err := svc.UpdateRole(context.Background(), admin, conv.ID, admin, conversation.RoleMember)
	assert.ErrorIs(t, err, chathub_errors.ErrInvalidTransition)
}

func TestLastAdminLeavingPromotesOldestMember(t *testing.T) {
	e := newEnv(t)
	svc := newConvService(e)
	admin, older, newer := uuid.New(), uuid.New(), uuid.New()
	// seedGroup staggers joined_at in argument order.
	conv := e.seedGroup(t, false, admin, older, newer)
	ctx := context.Background()

	require.NoError(t, svc.Leave(ctx, conv.ID, admin))

	p, err := e.convRepo.GetParticipant(ctx, conv.ID, older)
	require.NoError(t, err)
	assert.Equal(t, conversation.RoleAdmin, p.Role)

	p, err = e.convRepo.GetParticipant(ctx, conv.ID, newer)
	require.NoError(t, err)
	assert.Equal(t, conversation.RoleMember, p.Role)
}

func TestNonLastAdminLeavingPromotesNobody(t *testing.T) {
	e := newEnv(t)
	svc := newConvService(e)
	admin, member := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, admin, member)
	ctx := context.Background()

	require.NoError(t, svc.UpdateRole(ctx, admin, conv.ID, member, conversation.RoleAdmin))
	require.NoError(t, svc.Leave(ctx, conv.ID, admin))

	admins, err := e.convRepo.CountActiveAdmins(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), admins)
}

func TestSetAdminOnlyChat(t *testing.T) {
	e := newEnv(t)
	svc := newConvService(e)
	admin, member := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, admin, member)
	ctx := context.Background()

	require.NoError(t, svc.SetAdminOnlyChat(ctx, admin, conv.ID, true))
	got, err := e.convRepo.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.True(t, got.AdminOnlyChat)
}

func TestMarkReadBroadcastsReceipt(t *testing.T) {
	e := newEnv(t)
	svc := newConvService(e)
	alice, bob := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, alice, bob)

	require.NoError(t, svc.MarkRead(context.Background(), conv.ID, bob))

	broadcasts := e.broadcaster.byType(events.EventMessagesRead)
	require.Len(t, broadcasts, 1)
	assert.Equal(t, conv.ID, broadcasts[0].ConversationID)

	p, err := e.convRepo.GetParticipant(context.Background(), conv.ID, bob)
	require.NoError(t, err)
	assert.True(t, p.LastReadAt.Valid)
}

func TestLeftMemberCannotSendOrRead(t *testing.T) {
	e := newEnv(t)
	svc := newConvService(e)
	admin, member := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, admin, member)
	ctx := context.Background()

	require.NoError(t, svc.Leave(ctx, conv.ID, member))

	_, err := e.chat.Send(ctx, SendMessageInput{
		ConversationID: conv.ID,
		SenderID:       member,
		Content:        "still here?",
		Type:           "TEXT",
	})
	assert.ErrorIs(t, err, chathub_errors.ErrForbidden)
	assert.ErrorIs(t, svc.MarkRead(ctx, conv.ID, member), chathub_errors.ErrForbidden)
}
