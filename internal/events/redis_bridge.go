package events

import (
	"context"
	"encoding/json"

	"chathub/pkg/logger"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LocalDeliverer is the hub-side sink the bridge feeds received envelopes into.
type LocalDeliverer interface {
	DeliverToConversation(conversationID uuid.UUID, event *Event)
	DeliverToUser(userID uuid.UUID, event *Event)
	DeliverToAll(event *Event)
}

// RedisBridge fans broadcast envelopes out through redis pub/sub so sockets
// attached to peer instances receive them too. Every instance, including the
// publisher, delivers via its subscription; there is one delivery path.
type RedisBridge struct {
	client *goredis.Client
	log    *logger.Logger
}

func NewRedisBridge(client *goredis.Client, log *logger.Logger) *RedisBridge {
	return &RedisBridge{client: client, log: log}
}

func (b *RedisBridge) Publish(ctx context.Context, env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, ChannelBroadcast, data).Err()
}

// Run subscribes and pumps envelopes into the local deliverer until the
// context is cancelled.
func (b *RedisBridge) Run(ctx context.Context, sink LocalDeliverer) {
	pubsub := b.client.Subscribe(ctx, ChannelBroadcast)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Logger.Warn("bridge: bad envelope", zap.Error(err))
				continue
			}
			b.deliver(sink, &env)
		}
	}
}

func (b *RedisBridge) deliver(sink LocalDeliverer, env *Envelope) {
	if env.Event == nil {
		return
	}
	switch env.Scope {
	case ScopeConversation:
		if env.ConversationID != nil {
			sink.DeliverToConversation(*env.ConversationID, env.Event)
		}
	case ScopeUser:
		if env.UserID != nil {
			sink.DeliverToUser(*env.UserID, env.Event)
		}
	case ScopeAll:
		sink.DeliverToAll(env.Event)
	default:
		b.log.Logger.Warn("bridge: unknown scope", zap.String("scope", env.Scope))
	}
}
