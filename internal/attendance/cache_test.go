package attendance

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollbook/internal/calendar"
	"rollbook/internal/store"
)

// cacheContract checks that invalidation hides entries written under an
// older version, including ones written after the invalidation.
func cacheContract(t *testing.T, c SummaryCache) {
	ctx := context.Background()
	march := calendar.Month{Year: 2025, Month: time.March}
	end := day("2025-04-02")
	sum := MonthSummary{Month: "2025-04", End: "2025-04-02", WorkingDays: 2, Summary: []StudentSummary{
		{Enrollment: "E1", Name: "Alice", Present: 2, Percentage: 100},
	}}

	v0, err := c.Version(ctx, april)
	require.NoError(t, err)
	got, err := c.Get(ctx, april, end, v0)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Set(ctx, april, end, v0, sum))
	got, err = c.Get(ctx, april, end, v0)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sum, *got)

	marchV0, err := c.Version(ctx, march)
	require.NoError(t, err)
	require.NoError(t, c.InvalidateMonth(ctx, april))

	v1, err := c.Version(ctx, april)
	require.NoError(t, err)
	assert.NotEqual(t, v0, v1)
	got, err = c.Get(ctx, april, end, v1)
	require.NoError(t, err)
	assert.Nil(t, got)

	// a late write under the old version stays invisible
	require.NoError(t, c.Set(ctx, april, end, v0, sum))
	got, err = c.Get(ctx, april, end, v1)
	require.NoError(t, err)
	assert.Nil(t, got)

	marchV1, err := c.Version(ctx, march)
	require.NoError(t, err)
	assert.Equal(t, marchV0, marchV1)

	require.NoError(t, c.InvalidateAll(ctx))
	marchV2, err := c.Version(ctx, march)
	require.NoError(t, err)
	assert.NotEqual(t, marchV1, marchV2)
	v2, err := c.Version(ctx, april)
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)
}

func TestMapCacheContract(t *testing.T) {
	cacheContract(t, newMapCache())
}

func TestRedisSummaryCacheContract(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	r := store.NewRedis(addr)
	defer r.Close()

	c := NewRedisSummaryCache(r.Client, time.Minute)
	c.prefix = fmt.Sprintf("rollbook_test_%d:summary", time.Now().UnixNano())
	defer func() {
		ctx := context.Background()
		keys, _ := r.Client.Keys(ctx, c.prefix+"*").Result()
		if len(keys) > 0 {
			_ = r.Client.Del(ctx, keys...).Err()
		}
	}()
	cacheContract(t, c)
}
