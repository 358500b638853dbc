package pool

import (
	"context"

	"go.uber.org/zap"
)

// worker is the main loop of one pool goroutine: block on the queue,
// execute, repeat until a shutdown item arrives. Workers never
// re-enqueue work and never touch lifecycle state.
func (p *Pool) worker() error {
	tok := p.tasks.token()
	for {
		it := p.tasks.waitDequeue(tok)
		if it.shutdown {
			return nil
		}
		p.runTask(it.run)
	}
}

// runTask executes one void task. The pool must survive any task
// failure: a recovered panic is logged and handed to the configured
// handler. Value-returning dispatches wrap their own recovery and
// capture failures into the future before the call ever reaches here.
func (p *Pool) runTask(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("recovered panic from task", zap.Error(panicError(r)))
			if p.onPanic != nil {
				p.onPanic(r)
			}
		}
	}()

	if p.limiter != nil {
		_ = p.limiter.Wait(context.Background())
	}
	task()
}
