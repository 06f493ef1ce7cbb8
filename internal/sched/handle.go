// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sched is the coroutine-runtime collaborator that the message
// bus core consumes but does not own (see the top-level package doc for
// the split between core and collaborator).
//
// 协程运行时协作者：消息总线核心只消费这里暴露的 current/suspend/wakeup
// 契约，并不拥有调度器本身的实现。
package sched

// Handle is an opaque reference to a scheduled fiber, borrowed by wait
// queues but never owned by them (compare runtime.sudog.g, which points
// at a *g owned by the scheduler, not by the channel it blocks on).
type Handle struct {
	f *fiber
}

// Valid reports whether h refers to a fiber at all. The zero Handle is
// invalid and is never returned by Current inside a running fiber.
func (h Handle) Valid() bool { return h.f != nil }

// id is used only for logging/diagnostics; it has no scheduling meaning.
func (h Handle) id() uint64 {
	if h.f == nil {
		return 0
	}
	return h.f.id
}

// NewHandle returns a fresh handle with its own identity but no
// attachment to any Scheduler. It exists for tests that only need
// distinct, comparable identities (e.g. internal/waitqueue's unit
// tests and schedtest.Fake) without driving a real fiber.
func NewHandle() Handle { return Handle{f: &fiber{}} }
