// Package worker runs independent repair runs concurrently and provides
// the per-host rate limiter used by network checkers.
package worker

import (
	"context"
	"sort"
	"sync"
)

// Job is one unit of work.
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is what a job produced.
type Result interface {
	Err() error
}

type indexed struct {
	seq    int
	result Result
}

// Pool executes submitted jobs on a fixed number of goroutines.
type Pool struct {
	workers int
	jobs    chan indexedJob
	results chan indexed
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	next    int
	once    sync.Once

	collected []indexed
	drained   chan struct{}
}

type indexedJob struct {
	seq int
	job Job
}

// NewPool returns a pool of at least one worker whose jobs run under ctx.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		workers: workers,
		jobs:    make(chan indexedJob, workers*2),
		results: make(chan indexed, workers*2),
		ctx:     ctx,
		cancel:  cancel,
		drained: make(chan struct{}),
	}
}

// Start launches the workers and the result collector.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
	go func() {
		defer close(p.drained)
		for r := range p.results {
			p.collected = append(p.collected, r)
		}
	}()
}

func (p *Pool) work() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case j, ok := <-p.jobs:
			if !ok {
				return
			}
			// the collector drains until results is closed, so a finished
			// job's result is always delivered
			p.results <- indexed{seq: j.seq, result: j.job.Execute(p.ctx)}
		}
	}
}

// Submit queues a job. It reports false when the pool was shut down
// before the job could be queued. Submit must not be called after Wait.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	seq := p.next
	p.next++
	select {
	case <-p.ctx.Done():
		return false
	case p.jobs <- indexedJob{seq: seq, job: job}:
		return true
	}
}

// Wait closes the queue, waits for the workers and returns the results in
// submission order. Jobs still queued when the pool's context ends are
// never executed and have no result.
func (p *Pool) Wait() []Result {
	close(p.jobs)
	p.wg.Wait()
	p.closeResults()
	<-p.drained

	sort.Slice(p.collected, func(i, j int) bool { return p.collected[i].seq < p.collected[j].seq })
	out := make([]Result, len(p.collected))
	for i, r := range p.collected {
		out[i] = r.result
	}
	p.cancel()
	return out
}

// Shutdown cancels running jobs and stops the workers.
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.once.Do(func() { close(p.results) })
}
