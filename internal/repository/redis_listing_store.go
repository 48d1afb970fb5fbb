package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/studybot/pkg/errors"
)

const scanBatch = 200

// RedisListingStore keeps JSON encoded event listings in Redis under a key prefix.
type RedisListingStore struct {
	client redis.UniversalClient
	prefix string
	logger *zap.Logger
}

// NewRedisListingStore constructs the store.
func NewRedisListingStore(client redis.UniversalClient, prefix string, logger *zap.Logger) *RedisListingStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisListingStore{client: client, prefix: prefix, logger: logger}
}

// Get decodes the listing under key into dest, or returns ErrCacheMiss.
func (s *RedisListingStore) Get(ctx context.Context, key string, dest interface{}) error {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return appErrors.ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// A listing written by an older shape is treated as absent.
		s.logger.Debug("discarding undecodable listing", zap.String("key", key), zap.Error(err))
		return appErrors.ErrCacheMiss
	}
	return nil
}

// Set encodes value and stores it with ttl.
func (s *RedisListingStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode listing %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.prefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// DeleteByPattern unlinks every key under the prefix matching pattern, one
// scan page per round trip.
func (s *RedisListingStore) DeleteByPattern(ctx context.Context, pattern string) error {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := s.client.Unlink(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis unlink %s: %w", pattern, err)
			}
			removed += len(keys)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	s.logger.Debug("listings invalidated", zap.String("pattern", pattern), zap.Int("count", removed))
	return nil
}
