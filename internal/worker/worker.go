// Package worker runs the long-lived consume loop: one job at a time
// from the host scheduler, one result back for every job. Concurrency is
// the scheduler's business, achieved by running more worker instances.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowsmartly/avatar-worker/internal/job"
	"github.com/flowsmartly/avatar-worker/internal/queue"
)

const dequeueWait = 5 * time.Second

// JobSource is the host-scheduler boundary: it hands over one job at a
// time and carries every job's result back.
type JobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*job.Job, error)
	PublishResult(ctx context.Context, res *job.Result) error
}

// JobRunner executes one job and always yields a result.
type JobRunner interface {
	Run(ctx context.Context, j *job.Job) *job.Result
}

type Worker struct {
	queue  JobSource
	runner JobRunner
	logger *slog.Logger
}

func New(q JobSource, r JobRunner, logger *slog.Logger) *Worker {
	return &Worker{queue: q, runner: r, logger: logger}
}

// Run consumes jobs until ctx is cancelled. A bad job never stops the
// loop: the handler converts every failure into a structured result, and
// even an undecodable payload is answered with an error result.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker shutting down")
			return nil
		default:
		}

		j, err := w.queue.Dequeue(ctx, dequeueWait)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("worker shutting down")
				return nil
			}

			w.logger.Error("dequeue failed", slog.String("error", err.Error()))

			// A malformed payload consumed a real job, so the scheduler
			// still gets a result for it. Queue transport faults don't.
			if errors.Is(err, queue.ErrMalformedJob) {
				w.report(ctx, job.Failed(fmt.Sprintf("Handler error: %v", err)))
			}
			continue
		}

		if j == nil {
			continue // Nothing queued, poll again
		}

		res := w.runner.Run(ctx, j)
		w.report(ctx, res)

		if res.Succeeded() {
			w.logger.Info("job succeeded", slog.String("job_id", res.JobID))
		} else {
			w.logger.Warn("job failed",
				slog.String("job_id", j.ID),
				slog.String("error", res.Error),
			)
		}
	}
}

func (w *Worker) report(ctx context.Context, res *job.Result) {
	if err := w.queue.PublishResult(ctx, res); err != nil {
		w.logger.Error("failed to publish result", slog.String("error", err.Error()))
	}
}
