package scheduler

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-icesip/internal/util/logger"
)

var log = logger.Logger("sips.scheduler")

// ErrClosed 调度器已关闭
var ErrClosed = errors.New("scheduler: closed")

// Task 调度任务
type Task func()

// Scheduler 单消费者任务调度器
type Scheduler struct {
	name string

	mu     sync.Mutex
	tasks  []Task
	closed bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}

	// running 工作 goroutine 正在执行任务
	running atomic.Bool

	executed atomic.Uint64
	dropped  atomic.Uint64
}

// New 创建调度器并启动工作 goroutine
func New(name string) *Scheduler {
	s := &Scheduler{
		name: name,
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.loop()
	return s
}

// Run 投递任务，不阻塞
func (s *Scheduler) Run(task Task) error {
	if task == nil {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// Close 关闭调度器
//
// 可重复调用。返回被丢弃的任务数。空闲时等待工作 goroutine 退出；
// 有任务正在执行时（包括在任务内部调用）不等待，该任务结束后工作
// goroutine 随即退出，需要时通过 Done 等待。
func (s *Scheduler) Close() int {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}
	s.closed = true
	dropped := len(s.tasks)
	s.tasks = nil
	s.mu.Unlock()

	s.dropped.Add(uint64(dropped))
	close(s.quit)

	if !s.running.Load() {
		<-s.done
	}

	log.Debug("调度器已关闭", "name", s.name, "dropped", dropped, "executed", s.executed.Load())
	return dropped
}

// Done 工作 goroutine 退出时关闭
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Executed 已执行任务数
func (s *Scheduler) Executed() uint64 {
	return s.executed.Load()
}

func (s *Scheduler) loop() {
	defer close(s.done)

	for {
		select {
		case <-s.wake:
		case <-s.quit:
			return
		}

		for {
			batch := s.take()
			if len(batch) == 0 {
				break
			}
			for i, task := range batch {
				select {
				case <-s.quit:
					s.dropped.Add(uint64(len(batch) - i))
					return
				default:
				}
				s.exec(task)
			}
		}
	}
}

func (s *Scheduler) take() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.tasks
	s.tasks = nil
	return batch
}

func (s *Scheduler) exec(task Task) {
	s.running.Store(true)
	defer s.running.Store(false)
	defer func() {
		if r := recover(); r != nil {
			log.Error("调度任务 panic", "name", s.name, "panic", r)
		}
	}()
	task()
	s.executed.Add(1)
}
