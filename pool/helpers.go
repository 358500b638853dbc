package pool

import (
	"fmt"
	"runtime"
	"time"
)

// waitUntil blocks until either the done channel is closed or the
// timeout is reached. A timeout <= 0 waits forever.
func waitUntil(d <-chan struct{}, timeout time.Duration) error {
	if timeout <= 0 {
		<-d
		return nil
	}

	select {
	case <-d:
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}

// panicError converts a recovered panic value into an error carrying
// the stack trace of the panicking goroutine.
func panicError(recovered any) error {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return fmt.Errorf("task panic: %v\nstack trace:\n%s", recovered, buf[:n])
}
