package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// TypingStore tracks who is typing in a conversation. Entries expire on
// their own so a client that vanishes mid-keystroke does not leave a stuck
// indicator.
type TypingStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewTypingStore(client *goredis.Client) *TypingStore {
	return &TypingStore{client: client, ttl: 10 * time.Second}
}

func typingKey(conversationID string) string {
	return fmt.Sprintf("typing:%s", conversationID)
}

func (s *TypingStore) SetTyping(ctx context.Context, conversationID, userID string, isTyping bool) error {
	key := typingKey(conversationID)

	if isTyping {
		pipe := s.client.Pipeline()
		pipe.SAdd(ctx, key, userID)
		pipe.Expire(ctx, key, s.ttl)
		_, err := pipe.Exec(ctx)
		return err
	}

	return s.client.SRem(ctx, key, userID).Err()
}

// GetTypingUsers returns users currently typing in a conversation.
func (s *TypingStore) GetTypingUsers(ctx context.Context, conversationID string) ([]string, error) {
	return s.client.SMembers(ctx, typingKey(conversationID)).Result()
}
