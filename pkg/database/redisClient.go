package database

import (
	"github.com/redis/go-redis/v9"
)

// InitRedis opens the KV store connection pool. Adapted from the
// teacher's pkg/database/redisClient.go to parse redis:// URLs (the
// original hardcoded Addr/DB) since spec.md's redis_url setting carries
// auth and DB index.
func InitRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	opts.PoolSize = 50 // spec.md §5: one KV connection pool (max 50)
	return redis.NewClient(opts), nil
}
