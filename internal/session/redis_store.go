package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "sess:"

// RedisStore хранит сессии в Redis под ключами sess:<code>
// с нативным истечением (SET ... EX ttl). Значение — JSON-сериализованный Record.
// Методы возвращают ошибки бэкенда; наружу их не выпускает обёртка Fallback.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore разбирает URL подключения (redis://...) и создаёт клиент.
// Доступность бэкенда проверяется отдельно через Ping.
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisStore{
		client: redis.NewClient(opts),
		ttl:    ttl,
	}, nil
}

// Ping однократная проверка доступности при старте процесса.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close закрывает соединения клиента.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) get(ctx context.Context, code string) (Record, bool, error) {
	data, err := s.client.Get(ctx, keyPrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("redis get: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec, true, nil
}

func (s *RedisStore) set(ctx context.Context, code string, prompt string) error {
	rec := Record{Prompt: prompt, Timestamp: time.Now()}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+code, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
