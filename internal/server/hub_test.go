package server

import (
	"encoding/json"
	"testing"

	"chathub/internal/events"
	"chathub/internal/registry"
	"chathub/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestHub builds a hub with no redis bridge, so broadcasts deliver
// straight to local sockets.
func newTestHub() (*Hub, *registry.Registry) {
	reg := registry.New()
	return NewHub(reg, nil, logger.NewNop()), reg
}

func drain(t *testing.T, c *Client) *events.Event {
	t.Helper()
	select {
	case data := <-c.send:
		var e events.Event
		require.NoError(t, json.Unmarshal(data, &e))
		return &e
	default:
		t.Fatal("no frame queued")
		return nil
	}
}

func TestBroadcastToConversationReachesRoomOnly(t *testing.T) {
	hub, _ := newTestHub()
	alice, bob := uuid.New(), uuid.New()
	inRoom := NewClient(nil, alice, "")
	outside := NewClient(nil, bob, "")
	hub.addClient(inRoom)
	hub.addClient(outside)

	conv := uuid.New()
	hub.joinRoom(inRoom, conv)

	// Consume the presence events queued at registration.
	for len(inRoom.send) > 0 {
		<-inRoom.send
	}
	for len(outside.send) > 0 {
		<-outside.send
	}

	hub.BroadcastToConversation(conv, events.New(events.EventNewMessage, "hi"))

	got := drain(t, inRoom)
	assert.Equal(t, events.EventNewMessage, got.Type)
	assert.Empty(t, outside.send)
}

func TestBroadcastToUserReachesAllConnections(t *testing.T) {
	hub, _ := newTestHub()
	alice := uuid.New()
	first := NewClient(nil, alice, "")
	second := NewClient(nil, alice, "")
	other := NewClient(nil, uuid.New(), "")
	hub.addClient(first)
	hub.addClient(second)
	hub.addClient(other)

	for _, c := range []*Client{first, second, other} {
		for len(c.send) > 0 {
			<-c.send
		}
	}

	hub.BroadcastToUser(alice, events.New(events.EventNotification, "ping"))

	assert.Equal(t, events.EventNotification, drain(t, first).Type)
	assert.Equal(t, events.EventNotification, drain(t, second).Type)
	assert.Empty(t, other.send)
}

func TestPresenceBroadcastOnStatusFlips(t *testing.T) {
	hub, reg := newTestHub()
	watcher := NewClient(nil, uuid.New(), "")
	hub.addClient(watcher)
	for len(watcher.send) > 0 {
		<-watcher.send
	}

	bob := uuid.New()
	first := NewClient(nil, bob, "")
	second := NewClient(nil, bob, "")

	hub.addClient(first)
	got := drain(t, watcher)
	assert.Equal(t, events.EventUserStatusChange, got.Type)

	// A second connection is not a transition.
	hub.addClient(second)
	assert.Empty(t, watcher.send)

	hub.removeClient(first)
	assert.Empty(t, watcher.send)
	assert.True(t, reg.IsOnline(bob))

	hub.removeClient(second)
	got = drain(t, watcher)
	assert.Equal(t, events.EventUserStatusChange, got.Type)
	assert.False(t, reg.IsOnline(bob))
}

func TestRemoveClientCleansRooms(t *testing.T) {
	hub, _ := newTestHub()
	client := NewClient(nil, uuid.New(), "")
	hub.addClient(client)

	conv := uuid.New()
	hub.joinRoom(client, conv)
	require.Equal(t, 1, hub.RoomSize(conv))

	hub.removeClient(client)
	assert.Equal(t, 0, hub.RoomSize(conv))

	// The send channel is closed so the write pump exits.
	_, open := <-client.send
	for open {
		_, open = <-client.send
	}
}

func TestLeaveConversationStopsDelivery(t *testing.T) {
	hub, _ := newTestHub()
	client := NewClient(nil, uuid.New(), "")
	hub.addClient(client)
	conv := uuid.New()
	hub.joinRoom(client, conv)
	for len(client.send) > 0 {
		<-client.send
	}

	hub.leaveRoom(client, conv)
	hub.BroadcastToConversation(conv, events.New(events.EventNewMessage, "gone"))
	assert.Empty(t, client.send)
}
