package server

import (
	"context"
	"encoding/json"
	"sync"

	"chathub/internal/events"
	"chathub/internal/registry"
	"chathub/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// joinRequest moves a client in or out of a conversation room.
type joinRequest struct {
	client         *Client
	conversationID uuid.UUID
	join           bool
}

// Hub routes events to live sockets. Clients are indexed twice, by user for
// user-scope pushes and by conversation room for room broadcasts. When a
// redis bridge is attached, every broadcast goes out through pub/sub and
// comes back in through the subscription, so single-instance and
// multi-instance deployments share one delivery path.
type Hub struct {
	mu sync.RWMutex

	// clients maps user id to that user's live connections by connection id.
	clients map[uuid.UUID]map[string]*Client

	// rooms maps conversation id to the clients that joined it.
	rooms map[uuid.UUID]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	membership chan joinRequest

	registry *registry.Registry
	bridge   *events.RedisBridge
	log      *logger.Logger
}

func NewHub(reg *registry.Registry, bridge *events.RedisBridge, log *logger.Logger) *Hub {
	h := &Hub{
		clients:    make(map[uuid.UUID]map[string]*Client),
		rooms:      make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		membership: make(chan joinRequest, 512),
		registry:   reg,
		bridge:     bridge,
		log:        log,
	}
	reg.SetStatusHandler(func(userID uuid.UUID, online bool) {
		status := "offline"
		if online {
			status = "online"
		}
		h.BroadcastToAll(events.New(events.EventUserStatusChange, map[string]interface{}{
			"userId": userID,
			"status": status,
		}))
	})
	return h
}

// Run drives the hub's event loop until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case req := <-h.membership:
			if req.join {
				h.joinRoom(req.client, req.conversationID)
			} else {
				h.leaveRoom(req.client, req.conversationID)
			}
		}
	}
}

func (h *Hub) Register(client *Client)   { h.register <- client }
func (h *Hub) Unregister(client *Client) { h.unregister <- client }

// JoinConversation subscribes a client to a conversation room. The caller
// has already checked membership.
func (h *Hub) JoinConversation(client *Client, conversationID uuid.UUID) {
	h.membership <- joinRequest{client: client, conversationID: conversationID, join: true}
}

func (h *Hub) LeaveConversation(client *Client, conversationID uuid.UUID) {
	h.membership <- joinRequest{client: client, conversationID: conversationID, join: false}
}

// BroadcastToConversation pushes an event to every socket in the room, on
// this instance and its peers.
func (h *Hub) BroadcastToConversation(conversationID uuid.UUID, event *events.Event) {
	if h.bridge != nil {
		h.publish(&events.Envelope{
			Scope:          events.ScopeConversation,
			ConversationID: &conversationID,
			Event:          event,
		})
		return
	}
	h.DeliverToConversation(conversationID, event)
}

// BroadcastToUser pushes an event to every connection of one user.
func (h *Hub) BroadcastToUser(userID uuid.UUID, event *events.Event) {
	if h.bridge != nil {
		h.publish(&events.Envelope{
			Scope:  events.ScopeUser,
			UserID: &userID,
			Event:  event,
		})
		return
	}
	h.DeliverToUser(userID, event)
}

// BroadcastToAll pushes an event to every connected socket.
func (h *Hub) BroadcastToAll(event *events.Event) {
	if h.bridge != nil {
		h.publish(&events.Envelope{Scope: events.ScopeAll, Event: event})
		return
	}
	h.DeliverToAll(event)
}

// DeliverToConversation writes to this instance's sockets only. The redis
// bridge calls it for envelopes received over pub/sub.
func (h *Hub) DeliverToConversation(conversationID uuid.UUID, event *events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Logger.Error("event not serializable", zap.String("type", event.Type), zap.Error(err))
		return
	}
	h.mu.RLock()
	for client := range h.rooms[conversationID] {
		client.Send(data)
	}
	h.mu.RUnlock()
}

func (h *Hub) DeliverToUser(userID uuid.UUID, event *events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Logger.Error("event not serializable", zap.String("type", event.Type), zap.Error(err))
		return
	}
	h.mu.RLock()
	for _, client := range h.clients[userID] {
		client.Send(data)
	}
	h.mu.RUnlock()
}

func (h *Hub) DeliverToAll(event *events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Logger.Error("event not serializable", zap.String("type", event.Type), zap.Error(err))
		return
	}
	h.mu.RLock()
	for _, conns := range h.clients {
		for _, client := range conns {
			client.Send(data)
		}
	}
	h.mu.RUnlock()
}

func (h *Hub) publish(env *events.Envelope) {
	if err := h.bridge.Publish(context.Background(), env); err != nil {
		h.log.Logger.Error("bridge publish failed", zap.String("scope", env.Scope), zap.Error(err))
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	conns, ok := h.clients[client.UserID]
	if !ok {
		conns = make(map[string]*Client)
		h.clients[client.UserID] = conns
	}
	conns[client.ID] = client
	h.mu.Unlock()

	h.registry.Register(client.UserID, client.ID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	for conversationID := range client.rooms {
		if members, ok := h.rooms[conversationID]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, conversationID)
			}
		}
	}
	if conns, ok := h.clients[client.UserID]; ok {
		delete(conns, client.ID)
		if len(conns) == 0 {
			delete(h.clients, client.UserID)
		}
	}
	close(client.send)
	h.mu.Unlock()

	h.registry.Unregister(client.UserID, client.ID)
}

func (h *Hub) joinRoom(client *Client, conversationID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[conversationID]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[conversationID] = members
	}
	members[client] = struct{}{}
	client.rooms[conversationID] = struct{}{}
}

func (h *Hub) leaveRoom(client *Client, conversationID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[conversationID]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, conversationID)
		}
	}
	delete(client.rooms, conversationID)
}

// RoomSize reports how many sockets joined a conversation on this instance.
func (h *Hub) RoomSize(conversationID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}
