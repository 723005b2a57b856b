package partstock

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestWorkerPoolRunsAllTasks(t *testing.T) {
	wp := NewWorkerPool(4, zap.NewNop())

	var (
		wg    sync.WaitGroup
		count atomic.Int64
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		wp.Submit(func() {
			defer wg.Done()
			count.Add(1)
		})
	}
	wg.Wait()
	wp.Shutdown()

	assert.Equal(t, int64(100), count.Load())
}

func TestWorkerPoolRecoversFromPanic(t *testing.T) {
	wp := NewWorkerPool(1, zap.NewNop())

	var (
		wg   sync.WaitGroup
		done atomic.Bool
	)
	wg.Add(2)
	wp.Submit(func() {
		defer wg.Done()
		panic("boom")
	})
	wp.Submit(func() {
		defer wg.Done()
		done.Store(true)
	})
	wg.Wait()
	wp.Shutdown()

	assert.True(t, done.Load(), "a panicking task must not kill the worker")
}
