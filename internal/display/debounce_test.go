package display

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerLatestTriggerSupersedes(t *testing.T) {
	d := NewDebouncer()
	defer d.Stop()

	var first, second atomic.Int32
	d.Trigger(func(ctx context.Context) { first.Add(1) })
	d.Trigger(func(ctx context.Context) { second.Add(1) })

	time.Sleep(DebounceInterval + 500*time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	d := NewDebouncer()

	var ran atomic.Int32
	d.Trigger(func(ctx context.Context) { ran.Add(1) })
	d.Stop()

	time.Sleep(DebounceInterval + 200*time.Millisecond)
	assert.Equal(t, int32(0), ran.Load())
}
