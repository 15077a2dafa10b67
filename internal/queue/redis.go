package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultQueueKey = "appapost:queue:posts"

// RedisStore keeps jobs in a sorted set scored by their not-before
// unix time, so due jobs are a single range query. Claiming removes
// the member, which is safe for the single-worker deployment this
// serves; multiple workers would need a Lua claim script.
type RedisStore struct {
	client goredis.UniversalClient
	key    string
}

func NewRedisStore(client goredis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = defaultQueueKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	err = s.client.ZAdd(ctx, s.key, goredis.Z{
		Score:  float64(job.NotBefore.Unix()),
		Member: string(payload),
	}).Err()
	if err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

func (s *RedisStore) DequeueDue(ctx context.Context, now time.Time, limit int) ([]Job, error) {
	members, err := s.client.ZRangeByScore(ctx, s.key, &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range due jobs: %w", err)
	}

	jobs := make([]Job, 0, len(members))
	for _, member := range members {
		if err := s.client.ZRem(ctx, s.key, member).Err(); err != nil {
			return jobs, fmt.Errorf("claim job: %w", err)
		}
		var job Job
		if err := json.Unmarshal([]byte(member), &job); err != nil {
			// Poison member, already removed; skip it.
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return int(n), nil
}
