package service

import "sync"

type poolJob struct {
	run  func() error
	done chan error
}

// WorkerPool is a FIFO job queue drained by a fixed number of worker
// goroutines. Each analysis run builds its own pool of size 1 and
// tears it down afterwards: stages of one run are strictly serialized
// to bound the resource usage of the external tooling, while unrelated
// runs stay fully isolated from each other.
type WorkerPool struct {
	jobs chan poolJob
	wg   sync.WaitGroup
}

func NewWorkerPool(size int) *WorkerPool {
	if size < 1 {
		size = 1
	}

	p := &WorkerPool{
		// Two queued stages per worker is plenty, submissions beyond
		// that block until the queue drains
		jobs: make(chan poolJob, size*2),
	}

	p.wg.Add(size)
	for range size {
		go p.worker()
	}

	return p
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		job.done <- job.run()
	}
}

// Submit queues a job and returns a channel delivering its result.
// Jobs run in submission order. A job's error is handed back untouched,
// the pool never retries.
func (p *WorkerPool) Submit(run func() error) <-chan error {
	job := poolJob{run: run, done: make(chan error, 1)}
	p.jobs <- job
	return job.done
}

// DrainAndClose waits for every queued job to finish and releases the
// workers. Submitting after DrainAndClose panics.
func (p *WorkerPool) DrainAndClose() {
	close(p.jobs)
	p.wg.Wait()
}
