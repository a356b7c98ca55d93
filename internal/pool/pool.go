// Package pool owns the worker lifecycle: it runs the configured number
// of pollers (the job-concurrency ceiling), tracks how many jobs are
// mid-flight, and recovers jobs whose worker died mid-execution.
package pool

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/postpilot/postpilot/internal/job"
	"github.com/postpilot/postpilot/internal/worker"
)

type WorkerPool struct {
	workers      []*worker.Worker
	jobs         job.JobRepoInterface
	lockDuration time.Duration
	inFlight     atomic.Int64
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
}

func NewWorkerPool(count int, repo job.JobRepoInterface, handler worker.Handler, pollInterval, lockDuration time.Duration) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &WorkerPool{jobs: repo, lockDuration: lockDuration, ctx: ctx, cancel: cancel}

	for i := 1; i <= count; i++ {
		p.workers = append(p.workers, worker.NewWorker(i, repo, handler, pollInterval, &p.inFlight))
	}
	return p
}

func (p *WorkerPool) Start() {
	for _, w := range p.workers {
		w.Start(p.ctx)
	}

	p.wg.Add(1)
	go p.janitor()
}

// InFlight reports how many jobs are currently being processed.
func (p *WorkerPool) InFlight() int64 {
	return p.inFlight.Load()
}

// janitor releases jobs stuck in processing for more than twice the lock
// duration, so a crashed worker's job becomes claimable again.
func (p *WorkerPool) janitor() {
	defer p.wg.Done()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			stuck, err := p.jobs.ListStuckJobs(p.ctx, p.lockDuration*2)
			if err != nil {
				log.Printf("[pool] list stuck jobs: %v", err)
				continue
			}
			for _, j := range stuck {
				log.Printf("[pool] recovering stuck job %d", j.ID)
				if err := p.jobs.Release(p.ctx, j.ID); err != nil {
					log.Printf("[pool] release job %d: %v", j.ID, err)
				}
			}
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *WorkerPool) Stop() {
	p.cancel()
	for _, w := range p.workers {
		w.Stop()
	}
	p.wg.Wait()
}
