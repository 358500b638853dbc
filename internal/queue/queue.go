// Package queue provides the blocking MPMC queue used for task transport.
//
// The implementation is the classic Vyukov bounded MPMC ring: every slot
// carries a sequence number that encodes whether it is ready for a producer
// or a consumer, and head/tail advance by CAS. Blocking consumers spin
// briefly and then park on a notification channel.
package queue

import (
	"runtime"
	"sync/atomic"

	"github.com/avelios/taskpool/internal/algorithms"
)

const (
	// Cache line size for padding to prevent false sharing
	cacheLinePadding = 128
	// Default capacity, large enough that producers essentially never wait
	defaultCapacity = 65536
	// Consecutive empty polls before a blocking consumer parks
	maxSpinAttempts = 10
)

// slot is a single cell in the ring buffer. The sequence number
// synchronizes producers and consumers claiming the cell.
type slot[T any] struct {
	sequence uint64
	value    T
	// Padding to prevent false sharing between slots
	_ [cacheLinePadding - 16]byte
}

// Queue is a lock-free multi-producer multi-consumer FIFO queue.
//
// The ring has fixed capacity; Enqueue never fails and never drops, it
// backs off until a slot frees up when the ring is full. Consumers pull
// through a per-goroutine Token which amortizes the spin-or-park decision
// across calls without touching shared state.
type Queue[T any] struct {
	ring []slot[T]
	// Capacity mask (capacity - 1) for fast modulo
	mask uint64

	// Head and tail positions with padding to prevent false sharing
	_    [cacheLinePadding]byte
	head uint64
	_    [cacheLinePadding - 8]byte
	tail uint64
	_    [cacheLinePadding - 8]byte

	// Wakeup channel for parked consumers (buffered, never closed)
	notifyC chan struct{}

	capacity int
}

// Token carries consumer-local dequeue state. Every consumer goroutine
// must own exactly one token; a token must not be shared.
type Token struct {
	misses int
	parks  uint64
	_      [cacheLinePadding - 16]byte
}

// Parks reports how often this consumer went to sleep waiting for work.
func (t *Token) Parks() uint64 {
	return t.parks
}

// New creates a queue with the given capacity rounded up to a power of
// two. A capacity <= 0 selects the default.
func New[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	capacity = nextPowerOfTwo(capacity)

	ring := make([]slot[T], capacity)
	for i := range ring {
		ring[i].sequence = uint64(i)
	}

	return &Queue[T]{
		ring:     ring,
		mask:     uint64(capacity - 1),
		notifyC:  make(chan struct{}, 1),
		capacity: capacity,
	}
}

// Token creates a consumer token for use with WaitDequeue and TryDequeue.
func (q *Queue[T]) Token() *Token {
	return &Token{}
}

// Enqueue inserts one value. It never drops: if the ring is momentarily
// full the producer backs off and retries until a slot is released.
func (q *Queue[T]) Enqueue(value T) {
	var spin algorithms.Spin
	q.enqueueSlot(value, &spin)
}

// EnqueueBulk inserts all values in order. Elements of a concurrent bulk
// enqueue may interleave; FIFO order within one call is preserved.
func (q *Queue[T]) EnqueueBulk(values []T) {
	var spin algorithms.Spin
	for _, v := range values {
		q.enqueueSlot(v, &spin)
		spin.Reset()
	}
}

func (q *Queue[T]) enqueueSlot(value T, spin *algorithms.Spin) {
	for {
		tail := atomic.LoadUint64(&q.tail)
		s := &q.ring[tail&q.mask]
		seq := atomic.LoadUint64(&s.sequence)
		diff := int64(seq) - int64(tail)

		if diff == 0 {
			if atomic.CompareAndSwapUint64(&q.tail, tail, tail+1) {
				s.value = value
				atomic.StoreUint64(&s.sequence, tail+1)
				q.notify()
				return
			}
			continue
		}

		// diff < 0: ring full, a consumer has not released the slot yet.
		// diff > 0: stale tail, another producer advanced it.
		spin.Wait()
	}
}

// WaitDequeue blocks the calling consumer until a value is available.
func (q *Queue[T]) WaitDequeue(tok *Token) T {
	for {
		if v, ok := q.TryDequeue(tok); ok {
			return v
		}
		if tok.misses <= maxSpinAttempts {
			runtime.Gosched()
			continue
		}

		tok.misses = 0
		tok.parks++
		<-q.notifyC
	}
}

// TryDequeue removes and returns the oldest value without blocking.
// It returns false if the queue is empty.
func (q *Queue[T]) TryDequeue(tok *Token) (T, bool) {
	var zero T
	for {
		head := atomic.LoadUint64(&q.head)
		s := &q.ring[head&q.mask]
		seq := atomic.LoadUint64(&s.sequence)
		diff := int64(seq) - int64(head+1)

		if diff < 0 {
			tok.misses++
			return zero, false
		}

		if diff == 0 && atomic.CompareAndSwapUint64(&q.head, head, head+1) {
			value := s.value
			s.value = zero
			// Release the slot to producers: next sequence for this cell
			// is head + capacity.
			atomic.StoreUint64(&s.sequence, head+q.mask+1)
			tok.misses = 0

			// Propagate the wakeup so one notification chains through
			// all parked consumers while items remain.
			if q.Len() > 0 {
				q.notify()
			}
			return value, true
		}

		// Lost the race to another consumer; reload and retry.
		runtime.Gosched()
	}
}

// Len returns the approximate number of queued items.
func (q *Queue[T]) Len() int {
	head := atomic.LoadUint64(&q.head)
	tail := atomic.LoadUint64(&q.tail)
	if tail > head {
		return int(tail - head)
	}
	return 0
}

// Cap returns the ring capacity.
func (q *Queue[T]) Cap() int {
	return q.capacity
}

func (q *Queue[T]) notify() {
	select {
	case q.notifyC <- struct{}{}:
	default:
	}
}

// nextPowerOfTwo returns the next power of 2 >= n
func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	if n&(n-1) == 0 {
		return n
	}

	power := 1
	for power < n {
		power *= 2
	}
	return power
}
