package services

import (
	"chathub/internal/events"

	"github.com/google/uuid"
)

// Broadcaster is the narrow slice of the hub the services push through.
// Conversation scope reaches sockets that joined the room; user scope reaches
// every connection of one user; all scope is the global presence channel.
type Broadcaster interface {
	BroadcastToConversation(conversationID uuid.UUID, event *events.Event)
	BroadcastToUser(userID uuid.UUID, event *events.Event)
	BroadcastToAll(event *events.Event)
}
