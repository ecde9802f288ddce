package attendance

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"rollbook/internal/calendar"
)

// SummaryCache stores computed month summaries keyed by month, range end and
// a version token. Invalidation bumps the version instead of deleting
// entries, so a summary computed before an invalidation is written under a
// key nobody reads again. Get returns nil on a miss.
type SummaryCache interface {
	// Version returns the current token for month. It changes after
	// InvalidateMonth(month) and after InvalidateAll.
	Version(ctx context.Context, month calendar.Month) (string, error)
	Get(ctx context.Context, month calendar.Month, end time.Time, version string) (*MonthSummary, error)
	Set(ctx context.Context, month calendar.Month, end time.Time, version string, s MonthSummary) error
	InvalidateMonth(ctx context.Context, month calendar.Month) error
	// InvalidateAll drops every month, e.g. after a roster change.
	InvalidateAll(ctx context.Context) error
}

// RedisSummaryCache implements SummaryCache on Redis strings. Each month has
// a counter and the whole cache shares an epoch; both are part of the key.
type RedisSummaryCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ SummaryCache = (*RedisSummaryCache)(nil)

// NewRedisSummaryCache builds a cache with the given entry TTL.
func NewRedisSummaryCache(client *redis.Client, ttl time.Duration) *RedisSummaryCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisSummaryCache{client: client, prefix: "rollbook:summary", ttl: ttl}
}

func (c *RedisSummaryCache) key(month calendar.Month, end time.Time, version string) string {
	return c.prefix + ":" + month.String() + ":" + end.Format(calendar.DateLayout) + ":" + version
}

func (c *RedisSummaryCache) monthVersionKey(month calendar.Month) string {
	return c.prefix + "-version:" + month.String()
}

func (c *RedisSummaryCache) epochKey() string {
	return c.prefix + "-epoch"
}

func (c *RedisSummaryCache) Version(ctx context.Context, month calendar.Month) (string, error) {
	vals, err := c.client.MGet(ctx, c.epochKey(), c.monthVersionKey(month)).Result()
	if err != nil {
		return "", err
	}
	counter := func(v interface{}) string {
		if s, ok := v.(string); ok {
			return s
		}
		return "0"
	}
	return "e" + counter(vals[0]) + ".v" + counter(vals[1]), nil
}

func (c *RedisSummaryCache) Get(ctx context.Context, month calendar.Month, end time.Time, version string) (*MonthSummary, error) {
	raw, err := c.client.Get(ctx, c.key(month, end, version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s MonthSummary
	if err := sonic.Unmarshal(raw, &s); err != nil {
		return nil, errors.Wrap(err, "decode cached summary")
	}
	return &s, nil
}

func (c *RedisSummaryCache) Set(ctx context.Context, month calendar.Month, end time.Time, version string, s MonthSummary) error {
	raw, err := sonic.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode summary")
	}
	return c.client.Set(ctx, c.key(month, end, version), raw, c.ttl).Err()
}

// InvalidateMonth bumps the month counter. Entries under the old version
// age out with their TTL.
func (c *RedisSummaryCache) InvalidateMonth(ctx context.Context, month calendar.Month) error {
	return c.client.Incr(ctx, c.monthVersionKey(month)).Err()
}

func (c *RedisSummaryCache) InvalidateAll(ctx context.Context) error {
	return c.client.Incr(ctx, c.epochKey()).Err()
}
