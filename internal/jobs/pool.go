package jobs

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Task is a unit of background work.
type Task func(ctx context.Context)

// Pool runs tasks on a fixed number of workers fed by a buffered queue.
type Pool struct {
	tasks  chan Task
	g      *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines. queue is the number of tasks that may
// wait before Submit blocks.
func NewPool(workers, queue int, log *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queue < 0 {
		queue = 0
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		tasks:  make(chan Task, queue),
		g:      &errgroup.Group{},
		ctx:    ctx,
		cancel: cancel,
		log:    log,
	}
	for i := 0; i < workers; i++ {
		id := i
		p.g.Go(func() error {
			for t := range p.tasks {
				p.run(id, t)
			}
			return nil
		})
	}
	return p
}

func (p *Pool) run(worker int, t Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("pool: task panicked", zap.Int("worker", worker), zap.String("panic", fmt.Sprint(r)))
		}
	}()
	t(p.ctx)
}

// Submit queues t. It blocks while the queue is full and returns ErrClosed
// after Close or ctx's error if ctx ends first.
func (p *Pool) Submit(ctx context.Context, t Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.tasks <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	err := p.g.Wait()
	p.cancel()
	return err
}
