package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/competitive-scan/internal/domain"
)

const (
	redisKeyPrefix = "scan:cache:"
	scanBatchSize  = 200
)

// RedisStore keeps entries as JSON strings that Redis expires on its own at
// ExpiresAt. The Cache still checks expiry itself.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Store over client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(providerName, key string) string {
	return redisKeyPrefix + providerName + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, providerName, key string) (*domain.CacheEntry, error) {
	raw, err := s.client.Get(ctx, s.key(providerName, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry domain.CacheEntry
	if unmarshalErr := json.Unmarshal(raw, &entry); unmarshalErr != nil {
		return nil, fmt.Errorf("decode cache entry: %w", unmarshalErr)
	}
	return &entry, nil
}

func (s *RedisStore) Upsert(ctx context.Context, entry *domain.CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	redisKey := s.key(entry.Provider, entry.CacheKey)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisKey, raw, 0)
		pipe.ExpireAt(ctx, redisKey, entry.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, providerName, key string) error {
	if err := s.client.Del(ctx, s.key(providerName, key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// DeleteMatching scans for matching keys and deletes them in batches.
func (s *RedisStore) DeleteMatching(ctx context.Context, providerName, pattern string) (int64, error) {
	if pattern == "" {
		pattern = "*"
	}

	var removed int64
	iter := s.client.Scan(ctx, 0, s.key(providerName, pattern), scanBatchSize).Iterator()
	batch := make([]string, 0, scanBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.client.Del(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
		removed += n
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatchSize {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan: %w", err)
	}

	return removed, flush()
}
