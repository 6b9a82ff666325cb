package queue

import (
	"context"
	"testing"
	"time"

	"blog_api/internal/domain/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*RedisJobQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisJobQueue(rdb, "cleanup"), mr
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()

	rdb, err := ConnectRedis(context.Background(), addr, "", 0)
	require.NoError(t, err)
	rdb.Close()

	// The listener is gone after Close, so the address must be kept.
	mr.Close()
	_, err = ConnectRedis(context.Background(), addr, "", 0)
	assert.Error(t, err)
}

func TestRedisJobQueue_FIFO(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, model.CleanupJob{Type: model.JobBlogOrphan, BlogID: "b1"}))
	require.NoError(t, q.Enqueue(ctx, model.CleanupJob{Type: model.JobUserPurge, UserID: "u1"}))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	first, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, model.JobBlogOrphan, first.Type)
	assert.Equal(t, "b1", first.BlogID)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.EnqueuedAt.IsZero())

	second, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, model.JobUserPurge, second.Type)
	assert.Equal(t, "u1", second.UserID)
}

func TestRedisJobQueue_DequeueEmpty(t *testing.T) {
	q, _ := newTestQueue(t)

	_, err := q.Dequeue(context.Background(), 100*time.Millisecond)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestRedisJobQueue_DequeueGarbage(t *testing.T) {
	q, mr := newTestQueue(t)
	_, err := mr.Lpush("cleanup", "{not json")
	require.NoError(t, err)

	_, err = q.Dequeue(context.Background(), time.Second)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmpty)
}

func TestRedisJobQueue_Lock(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	release, ok, err := q.Lock(ctx, "lock:job-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = q.Lock(ctx, "lock:job-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists("lock:job-1"))

	_, ok, err = q.Lock(ctx, "lock:job-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisJobQueue_ReleaseKeepsForeignLock(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	release, ok, err := q.Lock(ctx, "lock:job-2", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// Lock expired and was taken by someone else.
	require.NoError(t, mr.Set("lock:job-2", "someone-else"))

	require.NoError(t, release(ctx))
	got, err := mr.Get("lock:job-2")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}
