package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"blog_api/internal/domain/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by Dequeue when nothing arrived before the timeout.
var ErrEmpty = errors.New("queue: empty")

// ConnectRedis returns a client that has answered a PING.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to redis: %w", err)
	}
	return rdb, nil
}

// releaseScript deletes the lock only if we still hold it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

// RedisJobQueue is a FIFO of cleanup jobs on a Redis list: LPUSH to enqueue,
// BRPOP to dequeue.
type RedisJobQueue struct {
	rdb  *redis.Client
	name string
}

func NewRedisJobQueue(rdb *redis.Client, name string) *RedisJobQueue {
	return &RedisJobQueue{rdb: rdb, name: name}
}

// Enqueue assigns an id and timestamp when missing and pushes the job.
func (q *RedisJobQueue) Enqueue(ctx context.Context, job model.CleanupJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal cleanup job: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("push cleanup job to %s: %w", q.name, err)
	}
	return nil
}

// Dequeue blocks up to timeout. It returns ErrEmpty on timeout.
func (q *RedisJobQueue) Dequeue(ctx context.Context, timeout time.Duration) (*model.CleanupJob, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmpty
		}
		return nil, err
	}
	// res is [queueName, value]
	if len(res) < 2 || res[1] == "" {
		return nil, ErrEmpty
	}
	var job model.CleanupJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decode cleanup job: %w", err)
	}
	return &job, nil
}

// Lock takes key with SET NX PX. The returned release func only deletes the
// key while it still carries our value.
func (q *RedisJobQueue) Lock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	value := uuid.NewString()
	ok, err := q.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, q.rdb, []string{key}, value).Err()
	}
	return release, true, nil
}

// Len reports the number of pending jobs.
func (q *RedisJobQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.name).Result()
}
