package infra

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection parameters for the Redis store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RedisStore persists dedup records in a single Redis hash, field = dedup
// key, value = unix seconds.
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore connects and pings Redis.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Key == "" {
		cfg.Key = "spread-monitor:notifications"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return &RedisStore{rdb: rdb, key: cfg.Key}, nil
}

// Load reads every record in the hash. Unparseable values are skipped.
func (s *RedisStore) Load(ctx context.Context) (map[string]int64, error) {
	raw, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: hgetall %s: %w", s.key, err)
	}

	records := make(map[string]int64, len(raw))
	for k, v := range raw {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		records[k] = ts
	}
	return records, nil
}

// Save replaces the hash with records in one transaction.
func (s *RedisStore) Save(ctx context.Context, records map[string]int64) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.key)
	if len(records) > 0 {
		fields := make(map[string]any, len(records))
		for k, ts := range records {
			fields[k] = strconv.FormatInt(ts, 10)
		}
		pipe.HSet(ctx, s.key, fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: save %s: %w", s.key, err)
	}
	return nil
}

// Close closes the connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
