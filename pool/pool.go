package pool

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var (
	// ErrPoolDestroyed is returned by every dispatch operation once the
	// pool has been sealed, and by Close itself when called twice.
	ErrPoolDestroyed = errors.New("task pool already destroyed")

	// ErrNilTask is returned when a dispatched task (or any element of a
	// batch) has no callable. Batches are rejected whole: no element is
	// enqueued.
	ErrNilTask = errors.New("task has no callable")

	// ErrShutdownTimeout is returned by Shutdown when Close did not
	// finish within the given timeout.
	ErrShutdownTimeout = errors.New("error in shutting down: timeout reached")
)

// Task is a unit of work with no inputs and no result.
type Task func()

// Func is a unit of work producing a value of type R or an error.
type Func[R any] func() (R, error)

// Pool is a fixed-size group of workers executing dispatched tasks.
// All dispatch operations are safe for concurrent use; Close must be
// initiated by exactly one goroutine. The zero value is not usable,
// construct with New. A Pool must not be copied after first use: it
// owns running goroutines that share its state.
type Pool struct {
	size    int
	tasks   *taskQueue
	logger  *zap.Logger
	onPanic func(recovered any)
	limiter *rate.Limiter

	// mu guards the acceptance gate: dispatchers enqueue under the read
	// lock, Close seals under the write lock. Once the seal is visible
	// no accepted submission can still be mid-enqueue.
	mu        sync.RWMutex
	destroyed atomic.Bool

	workers errgroup.Group
}

// New creates a pool and immediately starts its workers. The worker
// count defaults to runtime.GOMAXPROCS(0).
func New(opts ...Option) *Pool {
	cfg := newConfig(opts...)

	p := &Pool{
		size:    cfg.workerCount,
		tasks:   newTaskQueue(cfg.queueCapacity),
		logger:  cfg.logger,
		onPanic: cfg.panicHandler,
		limiter: cfg.rateLimiter,
	}

	for i := 0; i < p.size; i++ {
		p.workers.Go(p.worker)
	}

	p.logger.Debug("task pool started",
		zap.Int("workers", p.size),
		zap.Int("queue_capacity", p.tasks.cap()))
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Close seals the pool and tears it down: no dispatch is accepted once
// Close has begun, every worker is signalled and joined, and the queue
// is drained so that every task accepted before the seal runs exactly
// once. A second Close returns ErrPoolDestroyed.
func (p *Pool) Close() error {
	p.mu.Lock()
	if !p.destroyed.CompareAndSwap(false, true) {
		p.mu.Unlock()
		return ErrPoolDestroyed
	}
	p.mu.Unlock()

	p.logger.Debug("task pool sealed", zap.Int("pending_tasks", p.tasks.len()))

	// One shutdown item per worker. Work queued before the seal sits
	// ahead of these in FIFO order and is consumed first, but a worker
	// may exit while tasks linger behind another worker's sentinel;
	// those are caught by the drain below.
	for i := 0; i < p.size; i++ {
		p.tasks.enqueue(item{shutdown: true})
	}
	_ = p.workers.Wait()

	p.drain()

	p.logger.Debug("task pool closed", zap.Int("workers", p.size))
	return nil
}

// Shutdown runs the Close protocol bounded by a timeout (0 = wait
// forever). On timeout Close keeps running in the background and
// ErrShutdownTimeout is returned.
func (p *Pool) Shutdown(timeout time.Duration) error {
	done := make(chan struct{})
	var closeErr error

	go func() {
		closeErr = p.Close()
		close(done)
	}()

	if err := waitUntil(done, timeout); err != nil {
		return err
	}
	return closeErr
}

// put places one item on the queue under the acceptance gate.
func (p *Pool) put(it item) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.destroyed.Load() {
		return ErrPoolDestroyed
	}
	p.tasks.enqueue(it)
	return nil
}

// putBulk places a whole batch on the queue under the acceptance gate.
func (p *Pool) putBulk(items []item) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.destroyed.Load() {
		return ErrPoolDestroyed
	}
	p.tasks.enqueueBulk(items)
	return nil
}

// drain launches one drainer per worker slot. Drainers pull remaining
// tasks via try-dequeue and execute them; they terminate collectively
// through the round barrier once a full pass finds the queue empty for
// every drainer at once.
func (p *Pool) drain() {
	barrier := newDrainBarrier(p.size)

	var g errgroup.Group
	for i := 0; i < p.size; i++ {
		g.Go(func() error {
			p.drainer(barrier)
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Pool) drainer(barrier *drainBarrier) {
	tok := p.tasks.token()
	for {
		sawWork := false
		for {
			it, ok := p.tasks.tryDequeue(tok)
			if !ok {
				break
			}
			sawWork = true
			if !it.shutdown {
				p.runTask(it.run)
			}
		}
		if barrier.await(sawWork) {
			return
		}
	}
}

// drainBarrier coordinates the drainers' quiescence check. Each drainer
// finishes a pass and arrives reporting whether it drained anything; a
// round in which all parties arrive clean means every drainer observed
// the queue empty at once, so no in-flight work remains and everyone is
// released for good. Any work seen by anyone sends the whole group into
// another pass.
type drainBarrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	parties int
	arrived int
	round   uint64
	dirty   bool
	quiet   bool
}

func newDrainBarrier(parties int) *drainBarrier {
	b := &drainBarrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// await blocks until every drainer has finished the current pass and
// reports whether that pass was collectively quiet.
func (b *drainBarrier) await(sawWork bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sawWork {
		b.dirty = true
	}
	b.arrived++

	if b.arrived == b.parties {
		b.quiet = !b.dirty
		b.dirty = false
		b.arrived = 0
		b.round++
		b.cond.Broadcast()
		return b.quiet
	}

	round := b.round
	for round == b.round {
		b.cond.Wait()
	}
	return b.quiet
}
