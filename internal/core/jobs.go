package core

import (
	"context"
)

// JobDispatcher accepts and queues review runs for asynchronous processing.
// It decouples the event source (the webhook handler) from job execution.
type JobDispatcher interface {
	// Dispatch queues a GitHubEvent for processing. It returns an error if
	// the job cannot be queued (for example a full queue), which gives the
	// caller backpressure.
	Dispatch(ctx context.Context, event *GitHubEvent) error

	// Stop drains the queue and waits for in-flight jobs to finish.
	Stop()
}

// Job is a single executable review run triggered by a GitHubEvent.
type Job interface {
	Run(ctx context.Context, event *GitHubEvent) error
}
