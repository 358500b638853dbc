package pool

import (
	"github.com/avelios/taskpool/internal/queue"
)

// item is what the task queue transports: either a unit of work or a
// shutdown signal instructing the receiving worker to terminate.
type item struct {
	run      Task
	shutdown bool
}

// taskQueue adapts the blocking MPMC queue to the pool's needs. The pool
// and its workers only ever see this surface; the underlying queue is
// interchangeable as long as it provides bulk enqueue, blocking dequeue
// with a consumer token, and non-blocking try-dequeue.
type taskQueue struct {
	q *queue.Queue[item]
}

func newTaskQueue(capacity int) *taskQueue {
	return &taskQueue{q: queue.New[item](capacity)}
}

func (tq *taskQueue) token() *queue.Token {
	return tq.q.Token()
}

func (tq *taskQueue) enqueue(it item) {
	tq.q.Enqueue(it)
}

func (tq *taskQueue) enqueueBulk(items []item) {
	tq.q.EnqueueBulk(items)
}

// waitDequeue blocks the calling worker until an item is available.
func (tq *taskQueue) waitDequeue(tok *queue.Token) item {
	return tq.q.WaitDequeue(tok)
}

// tryDequeue is the non-blocking variant used by shutdown drainers.
func (tq *taskQueue) tryDequeue(tok *queue.Token) (item, bool) {
	return tq.q.TryDequeue(tok)
}

func (tq *taskQueue) len() int {
	return tq.q.Len()
}

func (tq *taskQueue) cap() int {
	return tq.q.Cap()
}
