package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// KVRepository is the advisory key-value store behind week pointers and
// seen-post sets. Scopes namespace keys per user (and course/year); values
// are last-writer-wins, which is acceptable for single-user advisory state.
type KVRepository struct {
	client *redis.Client
}

// NewKVRepository constructs a KVRepository.
func NewKVRepository(client *redis.Client) *KVRepository {
	return &KVRepository{client: client}
}

// Get returns the value stored under scope/key and whether it was present.
func (r *KVRepository) Get(ctx context.Context, scope, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, kvKey(scope, key)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("kv get %s/%s: %w", scope, key, err)
	}
	return value, true, nil
}

// Set stores the value under scope/key without expiry.
func (r *KVRepository) Set(ctx context.Context, scope, key, value string) error {
	if err := r.client.Set(ctx, kvKey(scope, key), value, 0).Err(); err != nil {
		return fmt.Errorf("kv set %s/%s: %w", scope, key, err)
	}
	return nil
}

// AddToSet adds a member to the set stored under scope/key.
func (r *KVRepository) AddToSet(ctx context.Context, scope, key, member string) error {
	if err := r.client.SAdd(ctx, kvKey(scope, key), member).Err(); err != nil {
		return fmt.Errorf("kv sadd %s/%s: %w", scope, key, err)
	}
	return nil
}

// SetMembers returns all members of the set stored under scope/key.
func (r *KVRepository) SetMembers(ctx context.Context, scope, key string) ([]string, error) {
	members, err := r.client.SMembers(ctx, kvKey(scope, key)).Result()
	if err != nil {
		return nil, fmt.Errorf("kv smembers %s/%s: %w", scope, key, err)
	}
	return members, nil
}

func kvKey(scope, key string) string {
	return fmt.Sprintf("kv:%s:%s", scope, key)
}
