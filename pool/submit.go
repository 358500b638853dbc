package pool

import "slices"

// The value-returning dispatch surface lives in free functions because
// Go methods cannot introduce type parameters. Every form wraps its
// tasks into void closures that store the outcome into a result slot
// and rides the same queue as the void surface.

// Submit enqueues a value-returning task and returns the future through
// which the caller observes its value or its failure (an error return
// or a recovered panic).
func Submit[R any](p *Pool, fn Func[R]) (*Future[R], error) {
	if err := checkFuncs(p, fn); err != nil {
		return nil, err
	}

	f := newFuture[R]()
	if err := p.put(item{run: futureTask(f, fn)}); err != nil {
		return nil, err
	}
	return f, nil
}

// SubmitBulk dispatches each task independently and returns the futures
// in input order. Tasks execute concurrently; completion order is
// unspecified. An empty batch returns no futures.
func SubmitBulk[R any](p *Pool, fns []Func[R]) ([]*Future[R], error) {
	if len(fns) == 0 {
		return nil, nil
	}
	if err := checkFuncs(p, fns...); err != nil {
		return nil, err
	}

	futures := make([]*Future[R], len(fns))
	items := make([]item, len(fns))
	for i, fn := range fns {
		futures[i] = newFuture[R]()
		items[i] = item{run: futureTask(futures[i], fn)}
	}
	if err := p.putBulk(items); err != nil {
		return nil, err
	}
	return futures, nil
}

// SubmitSync dispatches the batch and gathers every future in input
// order. The returned slice is positionally aligned with the input and
// the error is the first failure in input order; every task has run by
// the time SubmitSync returns, failed or not.
func SubmitSync[R any](p *Pool, fns []Func[R]) ([]R, error) {
	futures, err := SubmitBulk(p, fns)
	if err != nil {
		return nil, err
	}

	results := make([]R, len(futures))
	var firstErr error
	for i, f := range futures {
		v, err := f.Get()
		if err != nil && firstErr == nil {
			firstErr = err
		}
		results[i] = v
	}
	return results, firstErr
}

// SubmitSerial runs the batch in input order on a single worker. Each
// element completes its own future independently: a failed element does
// not keep later elements from running.
func SubmitSerial[R any](p *Pool, fns []Func[R]) ([]*Future[R], error) {
	if len(fns) == 0 {
		return nil, nil
	}
	if err := checkFuncs(p, fns...); err != nil {
		return nil, err
	}

	batch := slices.Clone(fns)
	futures := make([]*Future[R], len(batch))
	for i := range futures {
		futures[i] = newFuture[R]()
	}

	err := p.put(item{run: func() {
		for i, fn := range batch {
			runInto(futures[i], fn)
		}
	}})
	if err != nil {
		return nil, err
	}
	return futures, nil
}

// checkFuncs mirrors the void acceptance gate for value-returning
// batches.
func checkFuncs[R any](p *Pool, fns ...Func[R]) error {
	if p.destroyed.Load() {
		return ErrPoolDestroyed
	}
	for _, fn := range fns {
		if fn == nil {
			return ErrNilTask
		}
	}
	return nil
}

// futureTask wraps fn into a void task that resolves f when executed.
func futureTask[R any](f *Future[R], fn Func[R]) Task {
	return func() {
		runInto(f, fn)
	}
}

// runInto executes fn and stores its outcome into f, converting a panic
// into a captured failure so the slot is always resolved.
func runInto[R any](f *Future[R], fn Func[R]) {
	defer func() {
		if r := recover(); r != nil {
			var zero R
			f.complete(zero, panicError(r))
		}
	}()

	v, err := fn()
	f.complete(v, err)
}
