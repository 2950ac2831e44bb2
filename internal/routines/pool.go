// Package routines provides a bounded go-routine pool.
package routines

import "sync"

// Pool runs queued functions concurrently in a fixed number of go-routines.
type Pool struct {
	workCh chan func()
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// NewPool creates a pool and starts workers go-routines.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}

	p := Pool{
		workCh: make(chan func(), workers),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return &p
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for fn := range p.workCh {
		fn()
	}
}

// Queue schedules fn to be run by the pool.
// It blocks while all workers are busy and the queue is full.
// Calling Queue after Wait panics.
func (p *Pool) Queue(fn func()) {
	p.workCh <- fn
}

// Wait waits until all queued functions finished and terminates the
// workers.
// It can be called multiple times.
func (p *Pool) Wait() {
	p.closeOnce.Do(func() {
		close(p.workCh)
	})

	p.wg.Wait()
}
