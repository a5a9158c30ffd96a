package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"vaaniagent/internal/config"
)

// RedisSink pushes events onto a per-agent list, VAANI_JOURNAL:<agentID>,
// trimmed to the newest MaxLen entries.
type RedisSink struct {
	client *redis.Client
	key    string
	maxLen int64
}

// NewRedisSink creates a RedisSink. The connection is established lazily.
func NewRedisSink(cfg config.JournalRedisConfig, agentID string) *RedisSink {
	return &RedisSink{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		key:    JournalKey(agentID),
		maxLen: cfg.MaxLen,
	}
}

// JournalKey returns the Redis list key for an agent.
func JournalKey(agentID string) string {
	return fmt.Sprintf("VAANI_JOURNAL:%s", agentID)
}

// Record appends the event and trims the list.
func (s *RedisSink) Record(ctx context.Context, event *Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.key, value)
	if s.maxLen > 0 {
		pipe.LTrim(ctx, s.key, -s.maxLen, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("Redis RPUSH %s failed: %w", s.key, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
