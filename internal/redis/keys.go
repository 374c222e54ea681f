package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// KeyStore holds the short-lived coordination keys of background jobs:
// a leader lock per job and once-only markers.
type KeyStore struct {
	client *redis.Client
}

func NewKeyStore(client *redis.Client) *KeyStore {
	return &KeyStore{client: client}
}

// TryLock takes key for ttl without waiting. The returned token is needed to unlock.
func (s *KeyStore) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("try lock %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (s *KeyStore) Unlock(ctx context.Context, key, token string) error {
	return release(ctx, s.client, key, token)
}

// MarkOnce returns true only for the first caller that marks key within ttl.
func (s *KeyStore) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark %s: %w", key, err)
	}
	return ok, nil
}

// Forget drops a marker so the next MarkOnce on key succeeds again.
func (s *KeyStore) Forget(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("forget %s: %w", key, err)
	}
	return nil
}
