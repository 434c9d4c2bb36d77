package presence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const heartbeatKey = "presence:pharmacist"

// RedisStore keeps the heartbeat in a single redis key. The TTL is a safety
// net well above the liveness window; the window itself is evaluated against
// the stored timestamp, not key expiry.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, window time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: 4 * window}
}

func (s *RedisStore) SetHeartbeat(ctx context.Context, at time.Time) error {
	return s.rdb.Set(ctx, heartbeatKey, at.Format(time.RFC3339Nano), s.ttl).Err()
}

func (s *RedisStore) LastHeartbeat(ctx context.Context) (time.Time, bool, error) {
	v, err := s.rdb.Get(ctx, heartbeatKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, heartbeatKey).Err()
}
