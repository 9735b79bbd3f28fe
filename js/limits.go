package js

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/aphofstede/v8js/errext"
)

// interrupter interrupts one run at most once and never after the run ended.
type interrupter struct {
	mu      sync.Mutex
	vm      *goja.Runtime
	stopped bool
	fired   bool
}

func (in *interrupter) interrupt(reason error) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.stopped || in.fired {
		return false
	}
	in.fired = true
	in.vm.Interrupt(reason)
	return true
}

func (in *interrupter) stop() {
	in.mu.Lock()
	in.stopped = true
	in.mu.Unlock()
	in.vm.ClearInterrupt()
}

// watch enforces the time and memory limits and ctx cancellation for one
// run. The returned func must be called once the run returned; after it
// returns no watchdog goroutine is left and the runtime isn't interrupted.
func (r *Runtime) watch(ctx context.Context) (stop func()) {
	in := &interrupter{vm: r.vm}

	var timer *time.Timer
	if limit := r.opts.TimeLimitDuration(); limit > 0 {
		timer = time.AfterFunc(limit, func() {
			if in.interrupt(errext.NewTimeLimitException(limit)) {
				r.logger.WithField("limit", limit).Debug("Script time limit reached")
			}
		})
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	if ctx.Done() != nil || r.opts.MemoryLimitBytes() > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.watchResources(ctx, in, done)
		}()
	}

	return func() {
		if timer != nil {
			timer.Stop()
		}
		close(done)
		wg.Wait()
		in.stop()
	}
}

func (r *Runtime) watchResources(ctx context.Context, in *interrupter, done <-chan struct{}) {
	limit := r.opts.MemoryLimitBytes()
	var baseline uint64
	var tick <-chan time.Time
	if limit > 0 {
		baseline = heapAlloc()
		ticker := time.NewTicker(r.opts.MemoryCheckEvery())
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			if in.interrupt(errext.WrapEngineException(ctx.Err(), "script interrupted")) {
				r.logger.WithError(ctx.Err()).Debug("Script interrupted")
			}
			return
		case <-tick:
			used := heapAlloc()
			if used > baseline && used-baseline > limit {
				if in.interrupt(errext.NewMemoryLimitException(limit)) {
					r.logger.WithFields(map[string]interface{}{
						"limit": limit,
						"used":  used - baseline,
					}).Debug("Script memory limit reached")
				}
				return
			}
		}
	}
}

func heapAlloc() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc
}
