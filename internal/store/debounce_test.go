package store

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerOnlyFinalTriggerFires(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	var fired atomic.Int32
	var got atomic.Value

	for _, q := range []string{"g", "gl", "glu", "glucose"} {
		q := q
		d.Trigger(func() {
			fired.Add(1)
			got.Store(q)
		})
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)

	require.Equal(t, int32(1), fired.Load(), "superseded callbacks must never fire")
	assert.Equal(t, "glucose", got.Load())
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var fired atomic.Int32
	d.Trigger(func() { fired.Add(1) })
	d.Cancel()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())

	// cancel with nothing pending must not panic
	d.Cancel()
}

func TestDebouncerReusableAfterFire(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)

	var fired atomic.Int32
	d.Trigger(func() { fired.Add(1) })
	time.Sleep(40 * time.Millisecond)
	d.Trigger(func() { fired.Add(1) })
	time.Sleep(40 * time.Millisecond)

	assert.Equal(t, int32(2), fired.Load())
}
