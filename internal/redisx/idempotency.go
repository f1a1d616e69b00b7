package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const inProgress = "in-progress"

// ErrInProgress is returned while another request with the same key is still running.
var ErrInProgress = errors.New("request with this idempotency key is in progress")

// StoredResponse is the first response to a keyed request. Fingerprint
// identifies the request body it answered.
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// IdempotencyStore keeps the first response of a keyed mutation so that client
// retries replay it instead of applying the mutation twice.
type IdempotencyStore struct {
	RDB *redis.Client
}

// Begin claims (scope, key). It returns the stored response when the request
// already completed, ErrInProgress when it is still running, or (nil, nil)
// when the caller now owns the key and must call Complete or Abort.
func (s *IdempotencyStore) Begin(ctx context.Context, scope, idemKey string) (*StoredResponse, error) {
	k := key(KeyIdempotency, scope, idemKey)
	ok, err := s.RDB.SetNX(ctx, k, inProgress, TTLIdempotencyLock).Result()
	if err != nil {
		return nil, fmt.Errorf("claim idempotency key: %w", err)
	}
	if ok {
		return nil, nil
	}
	raw, err := s.RDB.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; treat as a concurrent claim
		return nil, ErrInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}
	if raw == inProgress {
		return nil, ErrInProgress
	}
	var resp StoredResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("decode stored response: %w", err)
	}
	return &resp, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, scope, idemKey string, resp StoredResponse) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.RDB.Set(ctx, key(KeyIdempotency, scope, idemKey), b, TTLIdempotency).Err()
}

// Abort releases the key so the request can be retried from scratch.
func (s *IdempotencyStore) Abort(ctx context.Context, scope, idemKey string) error {
	return s.RDB.Del(ctx, key(KeyIdempotency, scope, idemKey)).Err()
}
