package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tribunal-dev/tribunal/internal/core"
)

// queueCapacity bounds how many accepted webhook events may wait for a
// worker before Dispatch starts refusing.
const queueCapacity = 100

// dispatcher fans accepted review events out over a fixed worker pool.
// Backpressure is explicit: a full queue refuses the event rather than
// blocking the webhook handler.
type dispatcher struct {
	job     core.Job
	queue   chan *core.GitHubEvent
	workers int
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewDispatcher starts a pool of maxWorkers goroutines draining the review
// queue. A non-positive maxWorkers runs a single worker.
func NewDispatcher(job core.Job, maxWorkers int, logger *slog.Logger) core.JobDispatcher {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	d := &dispatcher{
		job:     job,
		workers: maxWorkers,
		queue:   make(chan *core.GitHubEvent, queueCapacity),
		logger:  logger,
	}
	for i := range d.workers {
		d.wg.Add(1)
		go d.work(i)
	}
	return d
}

func (d *dispatcher) work(id int) {
	defer d.wg.Done()
	d.logger.Info("review worker started", "worker", id)

	for event := range d.queue {
		if err := d.job.Run(context.Background(), event); err != nil {
			d.logger.Error("review job failed",
				"worker", id,
				"repo", event.RepoFullName,
				"pr", event.PRNumber,
				"error", err,
			)
		}
	}
	d.logger.Info("review worker stopped", "worker", id)
}

// Dispatch queues an event for review without blocking the caller.
func (d *dispatcher) Dispatch(_ context.Context, event *core.GitHubEvent) error {
	select {
	case d.queue <- event:
		d.logger.Info("review job queued", "repo", event.RepoFullName, "pr", event.PRNumber)
		return nil
	default:
		return fmt.Errorf("review queue is full")
	}
}

// Stop drains the queue and waits for in-flight jobs to finish.
func (d *dispatcher) Stop() {
	d.logger.Info("stopping dispatcher, draining review queue")
	close(d.queue)
	d.wg.Wait()
}
