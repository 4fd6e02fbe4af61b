package history

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yhkl-dev/SonicCLI/domain"
)

// RedisStore appends entries to the stream play_history:<user>
type RedisStore struct {
	rdb    *redis.Client
	stream string
}

// NewRedisStore wraps an existing client
func NewRedisStore(rdb *redis.Client, userID string) *RedisStore {
	return &RedisStore{
		rdb:    rdb,
		stream: StreamKey(userID),
	}
}

// NewRedisStoreFromURL connects using a redis:// url
func NewRedisStoreFromURL(redisURL, userID string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisStore(redis.NewClient(opt), userID), nil
}

// StreamKey returns the stream holding userID's history
func StreamKey(userID string) string {
	return "play_history:" + userID
}

func (s *RedisStore) Record(ctx context.Context, entry domain.HistoryEntry) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	err := s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"songId":    entry.SongID,
			"title":     entry.Title,
			"timestamp": strconv.FormatInt(ts.UnixMilli(), 10),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
