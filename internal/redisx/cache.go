package redisx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// keepNewestScript stores the purchase only if nothing newer is cached.
// The hash holds the version under "v" and the json under "d".
const keepNewestScript = `
local cur = redis.call('HGET', KEYS[1], 'v')
if cur and tonumber(cur) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 'd', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`

// PurchaseCache is a best-effort read cache; failures only cost a database read.
// Writes never replace a cached purchase with an older version.
type PurchaseCache struct {
	RDB *redis.Client
}

func (c *PurchaseCache) Get(ctx context.Context, id uuid.UUID) (orders.Purchase, bool) {
	raw, err := c.RDB.HGet(ctx, key(KeyPurchase, id), "d").Bytes()
	if err != nil {
		return orders.Purchase{}, false
	}
	var p orders.Purchase
	if err := json.Unmarshal(raw, &p); err != nil {
		return orders.Purchase{}, false
	}
	return p, true
}

// Set caches p unless the cache already holds the same or a later version.
func (c *PurchaseCache) Set(ctx context.Context, p orders.Purchase) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode purchase: %w", err)
	}
	err = c.RDB.Eval(ctx, keepNewestScript, []string{key(KeyPurchase, p.ID)},
		p.Version, b, TTLPurchaseCache.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("cache purchase: %w", err)
	}
	return nil
}

func (c *PurchaseCache) Invalidate(ctx context.Context, id uuid.UUID) {
	_ = c.RDB.Del(ctx, key(KeyPurchase, id)).Err()
}
