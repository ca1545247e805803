package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sebsoto/mcp/internal/llm"
	"github.com/sebsoto/mcp/internal/version"
)

// transcriptKeyPrefix namespaces transcript keys in a shared Redis.
const transcriptKeyPrefix = "mcp:session"

// RedisStore persists transcripts as JSON values in Redis, letting sessions
// survive gateway restarts and letting Redis expire abandoned transcripts on
// its own via the idle TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an existing Redis client. ttl is applied on every save
// and refreshed on every load, so only genuinely idle transcripts expire.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) SaveTranscript(ctx context.Context, key string, messages []llm.Message) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	redisKey := version.TranscriptKey(transcriptKeyPrefix, key)
	if err := s.rdb.Set(ctx, redisKey, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write transcript to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadTranscript(ctx context.Context, key string) ([]llm.Message, error) {
	redisKey := version.TranscriptKey(transcriptKeyPrefix, key)
	payload, err := s.rdb.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript from redis: %w", err)
	}

	var messages []llm.Message
	if err := json.Unmarshal(payload, &messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}

	// A loaded transcript is active again; push its expiry out.
	s.rdb.Expire(ctx, redisKey, s.ttl)

	return messages, nil
}

func (s *RedisStore) DeleteTranscript(ctx context.Context, key string) error {
	redisKey := version.TranscriptKey(transcriptKeyPrefix, key)
	if err := s.rdb.Del(ctx, redisKey).Err(); err != nil {
		return fmt.Errorf("failed to delete transcript from redis: %w", err)
	}
	return nil
}
