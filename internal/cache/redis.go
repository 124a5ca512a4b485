package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultRedisKey is the Redis hash holding the scan cache.
	DefaultRedisKey = "linkguard:scancache"

	// DefaultRedisTTL expires the whole hash if the service stops
	// refreshing it. Matches the read-side entry TTL.
	DefaultRedisTTL = 24 * time.Hour
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379")
	URL string

	// Key is the Redis hash key (defaults to "linkguard:scancache")
	Key string

	// TTL is the time-to-live for the hash (defaults to 24 hours)
	TTL time.Duration
}

// RedisStore implements Store using Redis for distributed persistence.
// Suitable for multi-instance deployments behind a load balancer.
// Each entry lives in one hash field named by the xxhash of its normalized
// URL, keeping field names fixed-width regardless of URL length; the URL
// itself travels inside the serialized entry.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// redisEntry wraps an Entry with its map key for hash-field round-trips.
type redisEntry struct {
	Key   string `json:"key"`
	Entry Entry  `json:"entry"`
}

// NewRedisStore creates a new Redis-backed cache store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = DefaultRedisKey
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultRedisTTL
	}

	slog.Info("redis cache store connected", "key", key, "ttl", ttl)

	return &RedisStore{
		client: client,
		key:    key,
		ttl:    ttl,
	}, nil
}

// Load retrieves the cache snapshot from Redis.
func (s *RedisStore) Load(ctx context.Context) (map[string]Entry, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load cache from redis: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	snapshot := make(map[string]Entry, len(fields))
	for field, raw := range fields {
		var re redisEntry
		if err := json.Unmarshal([]byte(raw), &re); err != nil {
			slog.Warn("skipping unreadable cache entry in redis", "field", field, "error", err)
			continue
		}
		snapshot[re.Key] = re.Entry
	}
	return snapshot, nil
}

// Save replaces the Redis hash with the given snapshot.
func (s *RedisStore) Save(ctx context.Context, entries map[string]Entry) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key)

	if len(entries) > 0 {
		fields := make(map[string]interface{}, len(entries))
		for key, entry := range entries {
			raw, err := json.Marshal(redisEntry{Key: key, Entry: entry})
			if err != nil {
				return fmt.Errorf("failed to marshal cache entry: %w", err)
			}
			fields[hashField(key)] = raw
		}
		pipe.HSet(ctx, s.key, fields)
		pipe.Expire(ctx, s.key, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save cache to redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// hashField derives a fixed-width hash-field name from a normalized URL.
func hashField(key string) string {
	return strconv.FormatUint(xxhash.Sum64String(key), 16)
}
