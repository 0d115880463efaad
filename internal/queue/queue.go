package queue

import (
	"fmt"
	"runtime/debug"
	"sync"

	"studio-backend/internal/logger"

	"go.uber.org/zap"
)

type Job struct {
	Fn   func() error
	Errc chan error
}

// RequestQueueManager runs request handlers on a fixed pool of workers. A
// panicking job is reported on its error channel instead of killing the worker.
type RequestQueueManager struct {
	JobQueue   chan Job
	MaxWorkers int
	wg         sync.WaitGroup
}

func NewRequestQueueManager(queueSize int, maxWorkers int) *RequestQueueManager {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	manager := &RequestQueueManager{
		JobQueue:   make(chan Job, queueSize),
		MaxWorkers: maxWorkers,
	}
	manager.startWorkers()
	return manager
}

func (rqm *RequestQueueManager) startWorkers() {
	for i := 0; i < rqm.MaxWorkers; i++ {
		rqm.wg.Add(1)
		go func(workerID int) {
			defer rqm.wg.Done()
			logger.L().Debug("worker started", zap.Int("worker_id", workerID))
			for job := range rqm.JobQueue {
				err := run(job.Fn)
				if job.Errc != nil {
					job.Errc <- err
				}
			}
			logger.L().Debug("worker stopped", zap.Int("worker_id", workerID))
		}(i)
	}
}

func run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("job panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("queue: job panicked: %v", r)
		}
	}()
	return fn()
}

func (rqm *RequestQueueManager) EnqueueJob(job Job) {
	rqm.JobQueue <- job
}

// Depth is the number of jobs waiting for a worker.
func (rqm *RequestQueueManager) Depth() int {
	return len(rqm.JobQueue)
}

func (rqm *RequestQueueManager) Shutdown() {
	close(rqm.JobQueue)
	rqm.wg.Wait()
}
