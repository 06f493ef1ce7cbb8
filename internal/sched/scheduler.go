// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sched

import (
	"container/list"
	"sync"
)

// Scheduler is a minimal cooperative fiber runtime: it satisfies the
// Runtime contract using real goroutines purely as stack containers.
// At most one fiber's user code executes at any instant — the handoff
// between fibers is a plain channel rendezvous, so there is no
// preemption and no data race between fibers, matching spec.md §5's
// single-threaded cooperative model even though the implementation
// sits on top of the Go scheduler.
//
// Scheduler 是一个最小化的协作式纤程运行时：它使用真正的 goroutine 仅作为
// 栈容器来满足 Runtime 契约。任意时刻只有一个纤程的用户代码在执行——纤程间
// 的切换只是一次 channel 握手，因此没有抢占，也没有数据竞争，这与规范中
// 单线程协作式调度的模型一致，尽管底层确实跑在 Go 自身的调度器之上。
//
// Grounded on runtime/proc.go's gopark/goready/schedule trio, radically
// simplified: one run-queue, no Ps/Ms, no work stealing, no preemption.
type Scheduler struct {
	mu      sync.Mutex
	runq    list.List // of *fiber, ready to run
	yieldc  chan struct{}
	current *fiber
	nextID  uint64
	live    sync.WaitGroup
}

type fiber struct {
	id     uint64
	resume chan struct{}
	queued bool
	done   bool
}

// New creates an idle scheduler with no fibers.
func New() *Scheduler {
	return &Scheduler{yieldc: make(chan struct{})}
}

// Spawn starts fn as a new fiber and marks it ready to run. fn receives
// its own handle so it never needs to call Current() for its own
// identity (though it may).
func (s *Scheduler) Spawn(fn func(Handle)) Handle {
	s.mu.Lock()
	s.nextID++
	f := &fiber{id: s.nextID, resume: make(chan struct{})}
	s.mu.Unlock()

	s.live.Add(1)
	go func() {
		<-f.resume
		fn(Handle{f})
		s.mu.Lock()
		f.done = true
		s.mu.Unlock()
		s.live.Done()
		s.yieldc <- struct{}{}
	}()

	s.mu.Lock()
	s.runq.PushBack(f)
	f.queued = true
	s.mu.Unlock()
	return Handle{f}
}

// Current implements Runtime. Safe to call only from inside a running
// fiber; outside of one it returns the zero Handle.
func (s *Scheduler) Current() Handle {
	s.mu.Lock()
	f := s.current
	s.mu.Unlock()
	return Handle{f}
}

// Suspend implements Runtime: it hands control back to the driver and
// blocks the calling fiber until some other fiber wakes it.
func (s *Scheduler) Suspend() {
	f := s.Current().f
	s.yieldc <- struct{}{}
	<-f.resume
}

// Wakeup implements Runtime. Idempotent: a fiber already queued or
// already finished is left alone (mirrors spec.md §6's "idempotent
// until it runs").
func (s *Scheduler) Wakeup(h Handle) {
	f := h.f
	if f == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.queued || f.done {
		return
	}
	f.queued = true
	s.runq.PushBack(f)
}

// Run drains the ready queue, handing control to exactly one fiber at
// a time, until no fiber is runnable. It returns when the queue empties
// — either because every spawned fiber has finished (Wait returns
// immediately after) or because every remaining fiber is blocked on a
// wait queue with nobody left to wake it (a caller-level deadlock; Wait
// will never return in that case, which is how tests catch the bug).
func (s *Scheduler) Run() {
	for {
		s.mu.Lock()
		e := s.runq.Front()
		if e == nil {
			s.mu.Unlock()
			return
		}
		f := e.Value.(*fiber)
		s.runq.Remove(e)
		f.queued = false
		s.current = f
		s.mu.Unlock()

		f.resume <- struct{}{}
		<-s.yieldc
	}
}

// Wait blocks until every fiber ever spawned on s has returned.
func (s *Scheduler) Wait() { s.live.Wait() }
