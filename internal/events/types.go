package events

// Client-to-server message types.
const (
	ClientJoinConversation = "join-conversation"
	ClientSendMessage      = "send-message"
	ClientTyping           = "typing"
	ClientMarkRead         = "mark-read"
	ClientGetOnlineUsers   = "get-online-users"
)

// Server-to-client event types.
const (
	EventNewMessage           = "new-message"
	EventUserTyping           = "user-typing"
	EventMessagesRead         = "messages-read"
	EventUserStatusChange     = "user-status-change"
	EventOnlineUsers          = "online-users"
	EventNotification         = "notification"
	EventThreadCreated        = "thread-created"
	EventReactionUpdated      = "reaction-updated"
	EventScheduledMessageSent = "scheduled-message-sent"
	EventError                = "error"
)

// Error codes carried in error events and REST error responses.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInvalidInput = "INVALID_INPUT"
	CodeInternal     = "INTERNAL"
)

// Redis channel names for the cross-instance bridge.
const (
	ChannelBroadcast = "chathub:broadcast"
)
