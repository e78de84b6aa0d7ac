package events

import (
	"github.com/google/uuid"
)

// Event is the wire envelope for every server-to-client push.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func New(eventType string, payload interface{}) *Event {
	return &Event{Type: eventType, Payload: payload}
}

// ErrorPayload is the payload of an error event. The connection stays open;
// the code tells the client which action was rejected and why.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// Envelope wraps an Event for the redis bridge, carrying routing scope so a
// peer instance can deliver it to the right sockets.
type Envelope struct {
	// Scope is one of "conversation", "user", "all".
	Scope          string     `json:"scope"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
	UserID         *uuid.UUID `json:"user_id,omitempty"`
	Event          *Event     `json:"event"`
}

const (
	ScopeConversation = "conversation"
	ScopeUser         = "user"
	ScopeAll          = "all"
)
