package pool

import (
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Option is a functional option for configuring the pool.
type Option func(*poolConfig)

type poolConfig struct {
	workerCount   int
	queueCapacity int
	logger        *zap.Logger
	panicHandler  func(recovered any)
	rateLimiter   *rate.Limiter
}

// WithWorkerCount sets the number of workers.
// If not specified, defaults to runtime.GOMAXPROCS(0).
func WithWorkerCount(count int) Option {
	return func(cfg *poolConfig) {
		if count > 0 {
			cfg.workerCount = count
		}
	}
}

// WithQueueCapacity sets the capacity of the task queue's ring buffer,
// rounded up to a power of two. Producers briefly back off when the ring
// is momentarily full; no task is ever dropped. Defaults to 65536.
func WithQueueCapacity(capacity int) Option {
	return func(cfg *poolConfig) {
		if capacity > 0 {
			cfg.queueCapacity = capacity
		}
	}
}

// WithLogger sets the logger used for lifecycle events and recovered
// panics. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *poolConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithPanicHandler installs a handler invoked with the recovered value
// whenever a void task panics. Value-returning tasks capture panics in
// their future instead and never reach the handler.
func WithPanicHandler(handler func(recovered any)) Option {
	return func(cfg *poolConfig) {
		cfg.panicHandler = handler
	}
}

// WithRateLimit caps task execution throughput across all workers.
// tasksPerSecond is the sustained rate, burst the number of tasks that
// may start back-to-back. Useful when tasks hit external services.
// Each queued item takes one token: a DispatchSerial or SubmitSerial
// batch counts as a single task, and its elements run back-to-back.
// If not specified, no rate limiting is applied.
//
// Example:
//
//	WithRateLimit(10, 5) // Allow 10 tasks/sec with burst of 5
func WithRateLimit(tasksPerSecond float64, burst int) Option {
	return func(cfg *poolConfig) {
		if tasksPerSecond > 0 && burst > 0 {
			cfg.rateLimiter = rate.NewLimiter(rate.Limit(tasksPerSecond), burst)
		}
	}
}

func newConfig(opts ...Option) *poolConfig {
	cfg := &poolConfig{
		workerCount: runtime.GOMAXPROCS(0),
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.workerCount < 1 {
		cfg.workerCount = 1
	}
	return cfg
}
