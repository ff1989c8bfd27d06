package scheduler

import (
	"errors"
	"sync"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("grammarls.scheduler")

var ErrStopped = errors.New("scheduler stopped")

// Task is a unit of background work. Tasks with the same non-empty Key are
// coalesced while one of them is still queued.
type Task struct {
	Name    string
	Key     string
	Execute func() error
}

type Scheduler struct {
	taskQueue       chan Task
	lowPriorityLock sync.Mutex
	stopChan        chan struct{}
	wg              sync.WaitGroup

	// sendMu is held for reading while sending so the queue is never
	// closed under a blocked sender.
	sendMu  sync.RWMutex
	mu      sync.Mutex
	pending map[string]bool
	stopped bool
}

// NewScheduler creates a new Scheduler with the specified queue size
func NewScheduler(queueSize int) *Scheduler {
	return &Scheduler{
		taskQueue: make(chan Task, queueSize),
		stopChan:  make(chan struct{}),
		pending:   map[string]bool{},
	}
}

// RunScheduler starts the scheduler loop
func (s *Scheduler) RunScheduler() {
	go func() {
		for {
			select {
			case task, ok := <-s.taskQueue:
				if !ok {
					return
				}
				s.execute(task)
			case <-s.stopChan:
				for task := range s.taskQueue {
					log.Debugf("draining %s", task.Name)
					s.execute(task)
				}
				return
			}
		}
	}()
}

func (s *Scheduler) execute(task Task) {
	defer s.wg.Done()
	s.mu.Lock()
	delete(s.pending, task.Key)
	s.mu.Unlock()

	log.Debugf("executing %s", task.Name)
	if err := task.Execute(); err != nil {
		log.Errorf("%s: %s", task.Name, err.Error())
	}
}

// enqueue reserves a queue slot for task. With block unset it gives up when
// the queue is full.
func (s *Scheduler) enqueue(task Task, block bool) (bool, error) {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false, ErrStopped
	}
	if task.Key != "" {
		if s.pending[task.Key] {
			s.mu.Unlock()
			return false, nil
		}
		s.pending[task.Key] = true
	}
	s.wg.Add(1)
	s.mu.Unlock()

	if block {
		s.taskQueue <- task
		return true, nil
	}
	select {
	case s.taskQueue <- task:
		return true, nil
	default:
		s.mu.Lock()
		delete(s.pending, task.Key)
		s.mu.Unlock()
		s.wg.Done()
		return false, nil
	}
}

// SchedulePeriodicTask periodically runs low-priority tasks without blocking
func (s *Scheduler) SchedulePeriodicTask(interval time.Duration, lowTask Task) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				go func() {
					s.lowPriorityLock.Lock()
					defer s.lowPriorityLock.Unlock()

					queued, err := s.enqueue(lowTask, false)
					switch {
					case err != nil:
					case queued:
						log.Debugf("scheduled %s", lowTask.Name)
					default:
						log.Debugf("skipped %s, queue is full or task pending", lowTask.Name)
					}
				}()
			case <-s.stopChan:
				return
			}
		}
	}()
}

// ScheduleHighPriorityTask queues task, blocking while the queue is full. It
// reports false when a task with the same key is already queued.
func (s *Scheduler) ScheduleHighPriorityTask(task Task) (bool, error) {
	return s.enqueue(task, true)
}

// StopScheduler waits for all tasks to complete and stops the scheduler
func (s *Scheduler) StopScheduler() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	log.Infof("stopping scheduler")
	close(s.stopChan)
	s.sendMu.Lock()
	close(s.taskQueue)
	s.sendMu.Unlock()
	s.wg.Wait()
	log.Infof("scheduler stopped")
}
