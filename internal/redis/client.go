package redis

import (
	"chathub/internal/config"

	goredis "github.com/redis/go-redis/v9"
)

// NewClient builds a redis client from config. Instances are injected, not
// global, so tests can run isolated clients side by side.
func NewClient(cfg config.RedisConfig) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
