package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/krishangMittal/PlayMyJam/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// RoomCache caches room lookups by code.
type RoomCache interface {
	Get(ctx context.Context, code string) (*domain.Room, error)
	Set(ctx context.Context, room *domain.Room, ttl time.Duration) error
	Delete(ctx context.Context, codes ...string) error
	Flush(ctx context.Context) error
}

// RedisRoomCache implements RoomCache on Redis string keys.
type RedisRoomCache struct {
	client *redis.Client
	prefix string
}

// NewRedisRoomCache wraps a connected client. Keys are "<prefix>:code:<roomCode>".
func NewRedisRoomCache(client *redis.Client, prefix string) *RedisRoomCache {
	return &RedisRoomCache{
		client: client,
		prefix: prefix,
	}
}

func (c *RedisRoomCache) buildKey(code string) string {
	return fmt.Sprintf("%s:code:%s", c.prefix, code)
}

func (c *RedisRoomCache) Get(ctx context.Context, code string) (*domain.Room, error) {
	data, err := c.client.Get(ctx, c.buildKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var room domain.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return &room, nil
}

func (c *RedisRoomCache) Set(ctx context.Context, room *domain.Room, ttl time.Duration) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := c.client.Set(ctx, c.buildKey(room.Code), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (c *RedisRoomCache) Delete(ctx context.Context, codes ...string) error {
	if len(codes) == 0 {
		return nil
	}

	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = c.buildKey(code)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// Flush deletes every cached room under the prefix.
func (c *RedisRoomCache) Flush(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+":code:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan redis: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}
