package services

import (
	"context"
	"testing"
	"time"

	"chathub/internal/domain/message"
	"chathub/internal/events"
	chathub_errors "chathub/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduleService(e *env) *ScheduleService {
	return NewScheduleService(e.db, e.schedRepo, e.access, e.chat, e.notifier, nopLogger())
}

func scheduleIn(t *testing.T, svc *ScheduleService, conv, sender uuid.UUID, content string, in time.Duration) message.ScheduledMessage {
	t.Helper()
	scheduled, err := svc.Create(context.Background(), SendMessageInput{
		ConversationID: conv,
		SenderID:       sender,
		Content:        content,
		Type:           message.TypeText,
	}, time.Now().Add(in))
	require.NoError(t, err)
	return scheduled
}

func TestScheduleCreateValidatesUpFront(t *testing.T) {
	e := newEnv(t)
	svc := newScheduleService(e)
	alice, bob := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, alice, bob)
	ctx := context.Background()

	// Past schedule time.
	_, err := svc.Create(ctx, SendMessageInput{
		ConversationID: conv.ID, SenderID: alice, Content: "late", Type: message.TypeText,
	}, time.Now().Add(-time.Minute))
	assert.ErrorIs(t, err, chathub_errors.ErrInvalidInput)

	// Non-participant.
	_, err = svc.Create(ctx, SendMessageInput{
		ConversationID: conv.ID, SenderID: uuid.New(), Content: "x", Type: message.TypeText,
	}, time.Now().Add(time.Minute))
	assert.ErrorIs(t, err, chathub_errors.ErrForbidden)

	// Empty text payload.
	_, err = svc.Create(ctx, SendMessageInput{
		ConversationID: conv.ID, SenderID: alice, Type: message.TypeText,
	}, time.Now().Add(time.Minute))
	assert.ErrorIs(t, err, chathub_errors.ErrInvalidInput)
}

func TestMaterializeDeliversAndNotifiesSender(t *testing.T) {
	e := newEnv(t)
	svc := newScheduleService(e)
	alice, bob := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, alice, bob)
	scheduled := scheduleIn(t, svc, conv.ID, alice, "later", time.Millisecond)

	require.NoError(t, svc.Materialize(context.Background(), scheduled))

	// Row moved to SENT.
	got, err := e.schedRepo.GetByID(context.Background(), scheduled.ID)
	require.NoError(t, err)
	assert.Equal(t, message.ScheduleStatusSent, got.Status)
	assert.True(t, got.SentAt.Valid)

	// One real message exists with the scheduled payload.
	msgs, err := e.msgRepo.GetConversationMessages(context.Background(), conv.ID, nil, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "later", msgs[0].Content.String)

	// Room got the normal new-message event.
	require.Len(t, e.broadcaster.byType(events.EventNewMessage), 1)

	// Only the author's user room got the reconciliation event.
	sent := e.broadcaster.byType(events.EventScheduledMessageSent)
	require.Len(t, sent, 1)
	assert.Equal(t, events.ScopeUser, sent[0].Scope)
	assert.Equal(t, alice, sent[0].UserID)
	payload, ok := sent[0].Event.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, scheduled.ID, payload["scheduledMessageId"])
}

func TestMaterializeTwiceProducesOneMessage(t *testing.T) {
	e := newEnv(t)
	svc := newScheduleService(e)
	alice, bob := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, alice, bob)
	scheduled := scheduleIn(t, svc, conv.ID, alice, "once", time.Millisecond)

	require.NoError(t, svc.Materialize(context.Background(), scheduled))
	// A second pass over the same stale row is a silent no-op.
	require.NoError(t, svc.Materialize(context.Background(), scheduled))

	msgs, err := e.msgRepo.GetConversationMessages(context.Background(), conv.ID, nil, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	assert.Len(t, e.broadcaster.byType(events.EventScheduledMessageSent), 1)
}

func TestCancelPendingOnly(t *testing.T) {
	e := newEnv(t)
	svc := newScheduleService(e)
	alice, bob := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, alice, bob)
	ctx := context.Background()

	scheduled := scheduleIn(t, svc, conv.ID, alice, "maybe", time.Hour)
	require.NoError(t, svc.Cancel(ctx, scheduled.ID, alice))

	got, err := e.schedRepo.GetByID(ctx, scheduled.ID)
	require.NoError(t, err)
	assert.Equal(t, message.ScheduleStatusCancelled, got.Status)

	// A cancelled row never materializes even when due.
	due, err := svc.Due(ctx, time.Now().Add(2*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	// Cancelling a sent row reports NotFound; pending-scoped lookups do not
	// see it.
	sent := scheduleIn(t, svc, conv.ID, alice, "gone", time.Millisecond)
	require.NoError(t, svc.Materialize(ctx, sent))
	assert.ErrorIs(t, svc.Cancel(ctx, sent.ID, alice), chathub_errors.ErrNotFound)
}

func TestCancelForeignRowIsNotFound(t *testing.T) {
	e := newEnv(t)
	svc := newScheduleService(e)
	alice, bob := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, alice, bob)

	scheduled := scheduleIn(t, svc, conv.ID, alice, "mine", time.Hour)
	assert.ErrorIs(t, svc.Cancel(context.Background(), scheduled.ID, bob), chathub_errors.ErrNotFound)
}

func TestListBySenderFiltersStatus(t *testing.T) {
	e := newEnv(t)
	svc := newScheduleService(e)
	alice, bob := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, alice, bob)
	ctx := context.Background()

	pending := scheduleIn(t, svc, conv.ID, alice, "pending", time.Hour)
	done := scheduleIn(t, svc, conv.ID, alice, "done", time.Millisecond)
	require.NoError(t, svc.Materialize(ctx, done))

	rows, err := svc.ListBySender(ctx, alice, message.ScheduleStatusPending)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, pending.ID, rows[0].ID)

	all, err := svc.ListBySender(ctx, alice, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.ListBySender(ctx, alice, "SHIPPED")
	assert.ErrorIs(t, err, chathub_errors.ErrInvalidInput)
}

func TestDueReturnsOnlyRipePendingRows(t *testing.T) {
	e := newEnv(t)
	svc := newScheduleService(e)
	alice, bob := uuid.New(), uuid.New()
	conv := e.seedGroup(t, false, alice, bob)
	ctx := context.Background()

	ripe := scheduleIn(t, svc, conv.ID, alice, "ripe", time.Millisecond)
	scheduleIn(t, svc, conv.ID, alice, "future", time.Hour)

	time.Sleep(5 * time.Millisecond)
	due, err := svc.Due(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, ripe.ID, due[0].ID)
}
