package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Dedup remembers processed message ids for a consumer.
type Dedup struct {
	RDB     *redis.Client
	Service string
}

// FirstSeen atomically marks id as processed and reports whether this call was the first.
func (d *Dedup) FirstSeen(ctx context.Context, id string) (bool, error) {
	return d.RDB.SetNX(ctx, key(KeyDedup, d.Service, id), "1", TTLDedup).Result()
}

// Forget drops the marker so that a failed message can be processed again.
func (d *Dedup) Forget(ctx context.Context, id string) error {
	return d.RDB.Del(ctx, key(KeyDedup, d.Service, id)).Err()
}
