package redisx

import (
	"fmt"
	"time"
)

const (
	// Idempotent mutation: idem:{scope}:{idempotency-key} -> stored response or in-progress marker
	KeyIdempotency = "idem:%s:%s"

	// Purchase read cache: purchase:{purchase_id} -> hash {v: version, d: purchase json}
	KeyPurchase = "purchase:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency     = 24 * time.Hour
	TTLIdempotencyLock = 30 * time.Second
	TTLPurchaseCache   = 5 * time.Minute
	TTLDedup           = 48 * time.Hour
)

func key(format string, args ...any) string { return fmt.Sprintf(format, args...) }
