package risklog

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// redisKey is the sorted set holding risk events, scored by timestamp.
const redisKey = "guard:mev:events"

// RedisStore keeps risk events in a Redis sorted set. Same advisory
// semantics as the file store: pruning is best-effort, only a failed
// read surfaces an error.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store on the given Redis address.
func NewRedisStore(addr string) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// Append adds an event scored by its timestamp.
func (s *RedisStore) Append(ctx context.Context, e Entry) error {
	member := strconv.FormatInt(e.Timestamp, 10)
	return s.client.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(e.Timestamp),
		Member: member,
	}).Err()
}

// RecentSince returns entries younger than window and drops older ones
// best-effort.
func (s *RedisStore) RecentSince(ctx context.Context, now time.Time, window time.Duration) ([]Entry, error) {
	cutoff := now.Add(-window).UnixMilli()

	members, err := s.client.ZRangeByScore(ctx, redisKey, &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(cutoff, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}

	if err := s.client.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(cutoff, 10)).Err(); err != nil {
		log.Warn().Err(err).Msg("Risk event prune failed")
	}

	entries := make([]Entry, 0, len(members))
	for _, m := range members {
		ts, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Timestamp: ts})
	}
	return entries, nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
