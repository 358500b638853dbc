// Package pool provides a fixed-size task pool: a group of worker
// goroutines executing caller-supplied nullary callables asynchronously,
// with future handles for observing results and failures.
//
// The pool offers several dispatch disciplines on top of one primitive
// enqueue: independent fan-out, synchronous fan-out-join, ordered serial
// batches, and once-only dispatch. Value-returning forms hand back a
// *Future that resolves to the task's value or its captured failure.
//
// # Basic Usage
//
//	p := pool.New(pool.WithWorkerCount(4))
//	defer p.Close()
//
//	_ = p.Dispatch(func() { fmt.Println("hello from a worker") })
//
//	f, _ := pool.Submit(p, func() (int, error) { return 6 * 7, nil })
//	v, err := f.Get()
//
// # Dispatch Disciplines
//
//   - Dispatch / DispatchBulk: fire-and-forget, tasks run concurrently
//   - DispatchSync: blocks until every task in the batch has run
//   - DispatchSerial: the batch runs back-to-back on a single worker,
//     in input order
//   - DispatchOnce: at-most-once execution through a caller-owned
//     *sync.Once
//
// Dispatch, DispatchBulk, DispatchSync and DispatchSerial have
// value-returning counterparts (Submit, SubmitBulk, SubmitSync,
// SubmitSerial) implemented as generic free functions. DispatchOnce has
// no value-returning form.
//
// # Shutdown
//
// Close seals the pool (subsequent dispatches fail with
// ErrPoolDestroyed), signals the workers, and then drains the queue so
// that every task accepted before the seal runs exactly once. Shutdown
// is the same protocol bounded by a timeout.
//
// # Failure Handling
//
// Value-returning dispatches capture task errors and panics in the
// returned future; resolving the future surfaces them. Void dispatches
// have no result slot: a panicking void task is recovered by the worker,
// logged, and handed to the handler configured with WithPanicHandler.
// Callers who need to observe failures should prefer the value forms.
//
// # Completion Helpers
//
// OnSuccess, OnFailure and OnComplete attach terminal observers to a
// future on their own goroutine, independent of any pool. They remain
// safe to use after the pool that produced the future has been closed.
package pool
