package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/tutor/config"
)

// RedisStore keeps session history in redis with a TTL, so history survives
// process restarts and idle sessions expire on their own.
type RedisStore struct {
	client     *redis.Client
	maxHistory int
	ttl        time.Duration
}

func NewRedisStore(cfg config.SessionConfig, rcfg config.RedisConfig) *RedisStore {
	max := cfg.MaxHistory
	if max < 1 {
		max = 2
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     rcfg.Addr,
			Password: rcfg.Password,
			DB:       rcfg.DB,
		}),
		maxHistory: max,
		ttl:        ttl,
	}
}

func historyKey(id string) string {
	return fmt.Sprintf("session:%s:history", id)
}

func (s *RedisStore) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if err := s.client.Set(ctx, historyKey(id), "[]", s.ttl).Err(); err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	return id, nil
}

func (s *RedisStore) load(ctx context.Context, id string) ([]Exchange, error) {
	val, err := s.client.Get(ctx, historyKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	var exchanges []Exchange
	if err := json.Unmarshal([]byte(val), &exchanges); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return exchanges, nil
}

func (s *RedisStore) HistoryText(ctx context.Context, id string) (string, error) {
	exchanges, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	return FlattenExchanges(exchanges), nil
}

func (s *RedisStore) AddExchange(ctx context.Context, id, user, assistant string) error {
	exchanges, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	exchanges = append(exchanges, Exchange{User: user, Assistant: assistant})
	if len(exchanges) > s.maxHistory {
		exchanges = exchanges[len(exchanges)-s.maxHistory:]
	}
	data, err := json.Marshal(exchanges)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", id, err)
	}
	if err := s.client.Set(ctx, historyKey(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving session %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, historyKey(id)).Err(); err != nil {
		return fmt.Errorf("clearing session %s: %w", id, err)
	}
	return nil
}
