package helpers

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient initializes a redis client
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// RedisMarkOnce sets key with ttl only if it does not exist yet.
// It returns true when this call claimed the key.
func RedisMarkOnce(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return rdb.SetNX(ctx, key, "1", ttl).Result()
}

func RedisDel(ctx context.Context, rdb *redis.Client, key string) error {
	return rdb.Del(ctx, key).Err()
}

// RedisDeduper claims idempotency keys in redis.
type RedisDeduper struct {
	RDB    *redis.Client
	Prefix string
	TTL    time.Duration
}

func NewRedisDeduper(rdb *redis.Client, prefix string, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{RDB: rdb, Prefix: prefix, TTL: ttl}
}

func (d *RedisDeduper) Claim(ctx context.Context, id string) (bool, error) {
	return RedisMarkOnce(ctx, d.RDB, d.Prefix+id, d.TTL)
}

// Release frees a claimed key so a redelivery can try again.
func (d *RedisDeduper) Release(ctx context.Context, id string) error {
	return RedisDel(ctx, d.RDB, d.Prefix+id)
}
