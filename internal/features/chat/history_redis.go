// Package chat — history_redis.go: история в Redis, общая для нескольких экземпляров бота.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix — префикс ключей истории.
const DefaultRedisPrefix = "chat:history:"

// RedisHistory хранит историю пользователя списком JSON-строк под ключом prefix+userID.
type RedisHistory struct {
	client *redis.Client
	prefix string
	ttl    time.Duration // 0 — без срока жизни
}

func NewRedisHistory(client *redis.Client, ttl time.Duration) *RedisHistory {
	return &RedisHistory{client: client, prefix: DefaultRedisPrefix, ttl: ttl}
}

var _ HistoryStore = (*RedisHistory)(nil)

func (r *RedisHistory) key(userID int64) string {
	return r.prefix + strconv.FormatInt(userID, 10)
}

func (r *RedisHistory) Get(ctx context.Context, userID int64) ([]Message, error) {
	raw, err := r.client.LRange(ctx, r.key(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения истории из Redis: %w", err)
	}
	history := make([]Message, 0, len(raw))
	for _, item := range raw {
		var m Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("повреждённая запись истории: %w", err)
		}
		history = append(history, m)
	}
	return history, nil
}

// Save заменяет список целиком в одной MULTI/EXEC.
func (r *RedisHistory) Save(ctx context.Context, userID int64, history []Message) error {
	values := make([]any, 0, len(history))
	for _, m := range history {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("ошибка сериализации истории: %w", err)
		}
		values = append(values, string(b))
	}

	key := r.key(userID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.RPush(ctx, key, values...)
			if r.ttl > 0 {
				pipe.Expire(ctx, key, r.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка записи истории в Redis: %w", err)
	}
	return nil
}

func (r *RedisHistory) Clear(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("ошибка очистки истории в Redis: %w", err)
	}
	return nil
}
