package display

import (
	"context"
	"sync"
	"time"
)

// DebounceInterval is how long a display-change event is held before its
// handler runs; a burst of WM_DISPLAYCHANGE messages during docking
// collapses into one handler invocation.
const DebounceInterval = time.Second

// Debouncer coalesces display-change events. Each Trigger cancels and
// supersedes any in-flight handler, so only the latest event's handler
// survives the debounce window.
type Debouncer struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewDebouncer() *Debouncer {
	return &Debouncer{}
}

// Trigger schedules handler to run after the debounce interval, cancelling
// any previously scheduled or running handler first. The handler receives
// a context it must honor: a later Trigger cancels it.
func (d *Debouncer) Trigger(handler func(ctx context.Context)) {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.mu.Unlock()

	go func() {
		select {
		case <-time.After(DebounceInterval):
			handler(ctx)
		case <-ctx.Done():
		}
	}()
}

// Stop cancels any pending or running handler.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
