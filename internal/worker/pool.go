package worker

import (
	"context"
	"sort"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution.
// Position is the job's submission order, used to restore input order.
type Result interface {
	GetError() error
	Position() int
}

// Pool manages a pool of workers that execute jobs concurrently
type Pool struct {
	workers    int
	jobQueue   chan Job
	results    chan Result
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once

	// collected is owned by the collector goroutine until collectorDone closes
	collected     []Result
	collectorDone chan struct{}
}

// NewPool creates a pool whose jobs run under a child of parent.
// Cancelling parent stops workers after their current job.
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		workers:       workers,
		jobQueue:      make(chan Job, workers*2),
		results:       make(chan Result, workers*2),
		ctx:           ctx,
		cancelFunc:    cancel,
		collectorDone: make(chan struct{}),
	}
}

// Start starts the workers and the result collector.
// It must be called before Wait or Shutdown.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	go p.collect()
}

// collect drains results as they arrive so Submit never waits on a reader
func (p *Pool) collect() {
	defer close(p.collectorDone)
	for result := range p.results {
		p.collected = append(p.collected, result)
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.results <- job.Execute(p.ctx)
		}
	}
}

// Submit submits a job to the pool for execution.
// It returns false when the pool was cancelled before the job was queued.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- job:
		return true
	}
}

// Wait closes the queue, waits for all jobs and returns their results
// ordered by Position
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	<-p.collectorDone
	p.cancelFunc()

	results := p.collected
	sort.Slice(results, func(i, j int) bool {
		return results[i].Position() < results[j].Position()
	})
	return results
}

// Shutdown cancels the pool and waits for running jobs to return
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
	<-p.collectorDone
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
