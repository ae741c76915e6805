package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tg-reviewer/internal/domain"
	"tg-reviewer/internal/infra/metrics"
)

// RedisStore хранит историю под одним ключом Redis.
type RedisStore struct {
	client *redis.Client
	key    string
}

var _ domain.HistoryStore = (*RedisStore)(nil)

// NewRedisStore создаёт хранилище истории по указанному ключу.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

// Load читает историю. Без ключа история пустая.
func (s *RedisStore) Load(ctx context.Context) (refs []domain.ConversationRef, err error) {
	start := time.Now()
	defer func() { metrics.ObserveNetworkRequest("redis", "history_get", s.key, start, err) }()

	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return decode(raw)
}

// Save перезаписывает историю.
func (s *RedisStore) Save(ctx context.Context, refs []domain.ConversationRef) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveNetworkRequest("redis", "history_set", s.key, start, err) }()

	payload, err := encode(refs)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("set history: %w", err)
	}
	return nil
}
