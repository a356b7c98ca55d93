// Package worker implements the poll loop that claims pending jobs and
// dispatches them to their handler, and the retry bookkeeping around
// failures.
package worker

import (
	"context"
	"log"
	"math"
	"sync/atomic"
	"time"

	"github.com/postpilot/postpilot/internal/job"
	"github.com/postpilot/postpilot/internal/models"
	"github.com/postpilot/postpilot/internal/pipeline"
)

// Handler executes one claimed job.
type Handler interface {
	Handle(ctx context.Context, job *models.Job) error
}

type Worker struct {
	ID           int
	jobs         job.JobRepoInterface
	handler      Handler
	pollInterval time.Duration
	inFlight     *atomic.Int64
	quit         chan struct{}
}

func NewWorker(id int, repo job.JobRepoInterface, handler Handler, pollInterval time.Duration, inFlight *atomic.Int64) *Worker {
	return &Worker{
		ID:           id,
		jobs:         repo,
		handler:      handler,
		pollInterval: pollInterval,
		inFlight:     inFlight,
		quit:         make(chan struct{}),
	}
}

// Start launches the poll loop. When a job was claimed the loop goes
// straight back for the next one; otherwise it sleeps for the poll
// interval.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		for {
			claimed, err := w.pullAndProcess(ctx)
			if err != nil {
				log.Printf("[worker %d] claim error: %v", w.ID, err)
			}

			if claimed {
				select {
				case <-w.quit:
					return
				case <-ctx.Done():
					return
				default:
					continue
				}
			}

			select {
			case <-time.After(w.pollInterval):
			case <-w.quit:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (w *Worker) pullAndProcess(ctx context.Context) (bool, error) {
	claimed, err := w.jobs.AcquireNext(ctx, time.Now())
	if err != nil || claimed == nil {
		return false, err
	}

	w.inFlight.Add(1)
	defer w.inFlight.Add(-1)

	w.process(ctx, claimed)
	return true, nil
}

func (w *Worker) process(ctx context.Context, j *models.Job) {
	log.Printf("[worker %d] job %d (%s) attempt %d/%d", w.ID, j.ID, j.Type, j.Attempts, j.MaxAttempts)

	err := w.handler.Handle(ctx, j)
	if err == nil {
		if markErr := w.jobs.MarkCompleted(ctx, j.ID); markErr != nil {
			log.Printf("[worker %d] mark job %d completed: %v", w.ID, j.ID, markErr)
		}
		return
	}

	if !isRetryable(err) || j.Attempts >= j.MaxAttempts {
		log.Printf("[worker %d] job %d failed terminally: %v", w.ID, j.ID, err)
		if markErr := w.jobs.MarkFailed(ctx, j.ID, err.Error()); markErr != nil {
			log.Printf("[worker %d] mark job %d failed: %v", w.ID, j.ID, markErr)
		}
		return
	}

	nextRun := time.Now().Add(retryBackoff(j.Attempts))
	log.Printf("[worker %d] job %d will retry at %s: %v", w.ID, j.ID, nextRun.Format(time.RFC3339), err)
	if retryErr := w.jobs.RetryLater(ctx, j.ID, err.Error(), nextRun); retryErr != nil {
		log.Printf("[worker %d] retry job %d: %v", w.ID, j.ID, retryErr)
	}
}

func (w *Worker) Stop() { close(w.quit) }

// retryBackoff grows exponentially with the attempt count, capped at five
// minutes.
func retryBackoff(attempts int) time.Duration {
	seconds := math.Pow(2, float64(attempts))
	if seconds > 300 {
		seconds = 300
	}
	return time.Duration(seconds) * time.Second
}

func isRetryable(err error) bool {
	if IsPermanent(err) {
		return false
	}
	return pipeline.IsTransient(err)
}
