package mailer

import (
	"sync"

	"github.com/vibast-solutions/ms-go-shop/app/metrics"

	"github.com/sirupsen/logrus"
)

// Queue runs background tasks on a fixed pool of workers fed by a buffered
// channel. Submit never blocks: when the buffer is full the task is dropped.
type Queue struct {
	tasks  chan func()
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewQueue(workers, size int) *Queue {
	if workers < 1 {
		workers = 1
	}
	if size < 0 {
		size = 0
	}

	q := &Queue{tasks: make(chan func(), size)}
	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.work()
	}
	return q
}

func (q *Queue) Submit(task func()) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		logrus.Warn("Mail queue closed, task dropped")
		metrics.RecordMailDropped()
		return
	}

	select {
	case q.tasks <- task:
	default:
		logrus.Warn("Mail queue full, task dropped")
		metrics.RecordMailDropped()
	}
}

// Close stops accepting tasks and waits for the queued ones to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	q.wg.Wait()
}

func (q *Queue) work() {
	defer q.wg.Done()

	for task := range q.tasks {
		q.run(task)
	}
}

func (q *Queue) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Error("Mail task panicked")
		}
	}()

	task()
}
