/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttle

import (
	"container/heap"
	"sync"
	"time"
)

type delayedTask struct {
	at  time.Time
	seq uint64
	fn  func()
}

type taskHeap []delayedTask

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x interface{}) { *h = append(*h, x.(delayedTask)) }

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = delayedTask{}
	*h = old[:n-1]
	return t
}

// scheduler runs delayed tasks one by one in a single goroutine.
// After shutdown it accepts no new tasks, but the already scheduled ones still run in time.
type scheduler struct {
	mu       sync.Mutex
	tasks    taskHeap
	seq      uint64
	stopping bool
	wakeup   chan struct{}
	stopped  chan struct{}
}

func newScheduler() *scheduler {
	s := &scheduler{
		wakeup:  make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *scheduler) schedule(delay time.Duration, fn func()) bool {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return false
	}
	s.seq++
	heap.Push(&s.tasks, delayedTask{at: time.Now().Add(delay), seq: s.seq, fn: fn})
	s.mu.Unlock()
	s.notify()
	return true
}

func (s *scheduler) shutdown() {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()
	s.notify()
}

func (s *scheduler) notify() {
	select {
	case s.wakeup <- struct{}{}:
	default:
	}
}

func (s *scheduler) run() {
	defer close(s.stopped)
	for {
		s.mu.Lock()
		now := time.Now()
		var due []delayedTask
		for len(s.tasks) != 0 && !s.tasks[0].at.After(now) {
			due = append(due, heap.Pop(&s.tasks).(delayedTask))
		}
		pending := len(s.tasks)
		var wait time.Duration
		if pending != 0 {
			wait = s.tasks[0].at.Sub(now)
		}
		stopping := s.stopping
		s.mu.Unlock()

		for i := range due {
			due[i].fn()
		}
		if len(due) != 0 {
			continue
		}
		if pending == 0 {
			if stopping {
				return
			}
			<-s.wakeup
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-s.wakeup:
		}
		timer.Stop()
	}
}
