// Package queue is the boundary with the host scheduler: jobs arrive on
// a Redis list one at a time, results go back on another.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/flowsmartly/avatar-worker/internal/job"
)

// ErrMalformedJob marks a payload that was dequeued but could not be
// decoded. The job is consumed either way, so the caller still owes the
// scheduler a result for it.
var ErrMalformedJob = errors.New("malformed job payload")

type Queue struct {
	client    *redis.Client
	jobKey    string
	resultKey string
}

func New(redisURL, jobKey, resultKey string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Queue{client: client, jobKey: jobKey, resultKey: resultKey}, nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

// Dequeue blocks up to timeout for the next job. A nil job with nil
// error means nothing was available.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*job.Job, error) {
	result, err := q.client.BLPop(ctx, timeout, q.jobKey).Result()
	if err == redis.Nil {
		return nil, nil // No job available
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected redis response")
	}

	var j job.Job
	if err := json.Unmarshal([]byte(result[1]), &j); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}

	return &j, nil
}

// PublishResult hands the job's result back to the host scheduler.
func (q *Queue) PublishResult(ctx context.Context, res *job.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	return q.client.RPush(ctx, q.resultKey, data).Err()
}

// PendingJobs returns the current job backlog length.
func (q *Queue) PendingJobs(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.jobKey).Result()
}
