package partstock

import (
	"sync"

	"go.uber.org/zap"
)

// WorkerPool fans expiration work out over a fixed number of goroutines so
// one slow reservation cannot stall a whole sweep.
type WorkerPool struct {
	tasks  chan func()
	wg     sync.WaitGroup
	logger *zap.Logger
}

func NewWorkerPool(size int, logger *zap.Logger) *WorkerPool {
	wp := &WorkerPool{
		tasks:  make(chan func(), 256),
		logger: logger,
	}

	wp.wg.Add(size)
	for i := 0; i < size; i++ {
		go wp.worker()
	}

	return wp
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for task := range wp.tasks {
		wp.run(task)
	}
}

func (wp *WorkerPool) run(task func()) {
	defer func() {
		if p := recover(); p != nil {
			wp.logger.Error("panic in worker task", zap.Any("panic", p))
		}
	}()
	task()
}

func (wp *WorkerPool) Submit(task func()) {
	wp.tasks <- task
}

func (wp *WorkerPool) Shutdown() {
	close(wp.tasks)
	wp.wg.Wait()
}
