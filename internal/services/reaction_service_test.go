package services

import (
	"context"
	"testing"

	"chathub/internal/events"
	chathub_errors "chathub/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReactionAddDuplicateIsConflict(t *testing.T) {
	e := newEnv(t)
	alice, bob := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, alice, bob)
	msg := e.seedMessage(t, conv.ID, alice, "react to me")
	svc := NewReactionService(e.msgRepo, e.access, e.broadcaster)

	state, err := svc.Add(context.Background(), bob, msg.ID, "👍")
	require.NoError(t, err)
	require.Len(t, state.Reactions, 1)
	assert.Equal(t, 1, state.Reactions[0].Count)

	_, err = svc.Add(context.Background(), bob, msg.ID, "👍")
	assert.ErrorIs(t, err, chathub_errors.ErrConflict)
}

func TestReactionRemoveWithoutAddIsNotFound(t *testing.T) {
	e := newEnv(t)
	alice, bob := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, alice, bob)
	msg := e.seedMessage(t, conv.ID, alice, "nothing here")
	svc := NewReactionService(e.msgRepo, e.access, e.broadcaster)

	_, err := svc.Remove(context.Background(), bob, msg.ID, "👍")
	assert.ErrorIs(t, err, chathub_errors.ErrNotFound)
}

func TestReactionAddRemoveAddSucceeds(t *testing.T) {
	e := newEnv(t)
	alice, bob := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, alice, bob)
	msg := e.seedMessage(t, conv.ID, alice, "toggle")
	svc := NewReactionService(e.msgRepo, e.access, e.broadcaster)

	_, err := svc.Add(context.Background(), bob, msg.ID, "🔥")
	require.NoError(t, err)
	_, err = svc.Remove(context.Background(), bob, msg.ID, "🔥")
	require.NoError(t, err)
	state, err := svc.Add(context.Background(), bob, msg.ID, "🔥")
	require.NoError(t, err)
	require.Len(t, state.Reactions, 1)
	assert.Equal(t, 1, state.Reactions[0].Count)
}

func TestReactionGroupingKeepsFirstAppearanceOrder(t *testing.T) {
	e := newEnv(t)
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, alice, bob, carol)
	msg := e.seedMessage(t, conv.ID, alice, "popular")
	svc := NewReactionService(e.msgRepo, e.access, e.broadcaster)

	ctx := context.Background()
	_, err := svc.Add(ctx, bob, msg.ID, "👍")
	require.NoError(t, err)
	_, err = svc.Add(ctx, carol, msg.ID, "🎉")
	require.NoError(t, err)
	state, err := svc.Add(ctx, alice, msg.ID, "👍")
	require.NoError(t, err)

	require.Len(t, state.Reactions, 2)
	assert.Equal(t, "👍", state.Reactions[0].Emoji)
	assert.Equal(t, 2, state.Reactions[0].Count)
	assert.ElementsMatch(t, []uuid.UUID{bob, alice}, state.Reactions[0].UserIDs)
	assert.Equal(t, "🎉", state.Reactions[1].Emoji)
	assert.Equal(t, 1, state.Reactions[1].Count)
}

func TestReactionMutationBroadcastsFullState(t *testing.T) {
	e := newEnv(t)
	alice, bob := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, alice, bob)
	msg := e.seedMessage(t, conv.ID, alice, "watched")
	svc := NewReactionService(e.msgRepo, e.access, e.broadcaster)

	_, err := svc.Add(context.Background(), bob, msg.ID, "👀")
	require.NoError(t, err)

	broadcasts := e.broadcaster.byType(events.EventReactionUpdated)
	require.Len(t, broadcasts, 1)
	assert.Equal(t, conv.ID, broadcasts[0].ConversationID)
	state, ok := broadcasts[0].Event.Payload.(ReactionState)
	require.True(t, ok)
	assert.Equal(t, msg.ID, state.MessageID)
	require.Len(t, state.Reactions, 1)
	assert.Equal(t, "👀", state.Reactions[0].Emoji)
}

func TestReactionRequiresMembership(t *testing.T) {
	e := newEnv(t)
	alice, bob := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, alice, bob)
	msg := e.seedMessage(t, conv.ID, alice, "private")
	svc := NewReactionService(e.msgRepo, e.access, e.broadcaster)

	_, err := svc.Add(context.Background(), uuid.New(), msg.ID, "👍")
	assert.ErrorIs(t, err, chathub_errors.ErrForbidden)
}
