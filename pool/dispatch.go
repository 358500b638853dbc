package pool

import (
	"slices"
	"sync"
)

// check is the acceptance gate every dispatch operation runs first: the
// pool must not be destroyed and no supplied task may be nil. Bulk
// callers pass the whole batch so rejection happens before any element
// is enqueued. The gate is advisory against a racing Close; put and
// putBulk re-check under the lock that Close seals through.
func (p *Pool) check(tasks ...Task) error {
	if p.destroyed.Load() {
		return ErrPoolDestroyed
	}
	for _, t := range tasks {
		if t == nil {
			return ErrNilTask
		}
	}
	return nil
}

// Dispatch enqueues one task for asynchronous execution. There is no
// handle; failures are only visible to the pool's panic handler. Use
// Submit to observe a result.
func (p *Pool) Dispatch(task Task) error {
	if err := p.check(task); err != nil {
		return err
	}
	return p.put(item{run: task})
}

// DispatchBulk enqueues the whole batch in one queue operation. Tasks
// execute concurrently and independently; an empty batch is a no-op.
func (p *Pool) DispatchBulk(tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}
	if err := p.check(tasks...); err != nil {
		return err
	}

	items := make([]item, len(tasks))
	for i, t := range tasks {
		items[i] = item{run: t}
	}
	return p.putBulk(items)
}

// DispatchSync dispatches every task in the batch and blocks until all
// of them have run. The tasks execute concurrently; only the caller is
// synchronous.
//
// Task failures are not surfaced here: a panicking task still releases
// its completion latch while unwinding, but the failure goes to the
// pool's panic handler, not to the caller. Use SubmitSync when failures
// must be observed.
func (p *Pool) DispatchSync(tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}
	if err := p.check(tasks...); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(len(tasks))

	items := make([]item, len(tasks))
	for i, t := range tasks {
		items[i] = item{run: func() {
			defer wg.Done()
			t()
		}}
	}
	if err := p.putBulk(items); err != nil {
		return err
	}

	wg.Wait()
	return nil
}

// DispatchSerial packages the batch into a single composite task that
// executes the inputs in input order on one worker. Batch elements
// never interleave with each other; they may interleave with unrelated
// tasks running on other workers.
//
// A panic in one element abandons the rest of the composite (the
// worker recovers it like any other void-task failure). SubmitSerial
// isolates element failures instead.
func (p *Pool) DispatchSerial(tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}
	if err := p.check(tasks...); err != nil {
		return err
	}

	batch := slices.Clone(tasks)
	return p.put(item{run: func() {
		for _, t := range batch {
			t()
		}
	}})
}

// DispatchOnce executes task through the caller-owned flag: among all
// dispatches sharing the flag, at most one task runs to completion and
// the rest become no-ops.
func (p *Pool) DispatchOnce(flag *sync.Once, task Task) error {
	if flag == nil {
		return ErrNilTask
	}
	if err := p.check(task); err != nil {
		return err
	}
	return p.put(item{run: func() {
		flag.Do(task)
	}})
}
