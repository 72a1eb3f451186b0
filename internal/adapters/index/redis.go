package index

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/eduquest/internal/domain/model"
	"github.com/okian/eduquest/pkg/metrics"
)

const (
	defaultRedisKey = "eduquest:leaderboard"
	rebuildBatch    = 500
)

// Redis is an Index stored in a Redis sorted set scored by points. Redis
// orders equal scores by member, so callers must re-sort candidates; the
// returned set always contains every user tied with the boundary.
type Redis struct {
	client redis.UniversalClient
	key    string
}

// NewRedis wraps an existing client. An empty key uses the default.
func NewRedis(client redis.UniversalClient, key string) *Redis {
	if key == "" {
		key = defaultRedisKey
	}
	return &Redis{client: client, key: key}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr, password string, db int, key string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return NewRedis(client, key), nil
}

func (r *Redis) Upsert(ctx context.Context, u model.User) error {
	if err := r.client.ZAdd(ctx, r.key, redis.Z{Score: float64(u.Points), Member: u.ID}).Err(); err != nil {
		return fmt.Errorf("redis: upsert %s: %w", u.ID, err)
	}
	return nil
}

func (r *Redis) Candidates(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	top, err := r.client.ZRevRangeWithScores(ctx, r.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: top %d: %w", limit, err)
	}
	if len(top) < limit {
		out := make([]string, 0, len(top))
		for _, z := range top {
			out = append(out, memberID(z.Member))
		}
		return out, nil
	}

	boundary := strconv.FormatFloat(top[len(top)-1].Score, 'f', -1, 64)
	ids, err := r.client.ZRevRangeByScore(ctx, r.key, &redis.ZRangeBy{Min: boundary, Max: "+inf"}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: range from %s: %w", boundary, err)
	}
	return ids, nil
}

func (r *Redis) Rebuild(ctx context.Context, users []model.User) error {
	start := time.Now()
	tmp := r.key + ":rebuild"

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, tmp)
	for i := 0; i < len(users); i += rebuildBatch {
		end := min(i+rebuildBatch, len(users))
		members := make([]redis.Z, 0, end-i)
		for _, u := range users[i:end] {
			members = append(members, redis.Z{Score: float64(u.Points), Member: u.ID})
		}
		pipe.ZAdd(ctx, tmp, members...)
	}
	if len(users) > 0 {
		pipe.Rename(ctx, tmp, r.key)
	} else {
		pipe.Del(ctx, r.key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: rebuild: %w", err)
	}

	metrics.RecordIndexRebuild(float64(time.Since(start).Microseconds())/1000, len(users))
	return nil
}

func (r *Redis) Len(ctx context.Context) (int, error) {
	n, err := r.client.ZCard(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: card: %w", err)
	}
	return int(n), nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func memberID(m any) string {
	if s, ok := m.(string); ok {
		return s
	}
	return fmt.Sprint(m)
}
