// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cobus implements a cooperative in-process message bus: a
// container of bounded FIFO channels, identified by small integer
// descriptors, that multiplexes fixed-width word messages between
// fibers scheduled by an internal/sched.Scheduler.
//
// The hard engineering — the channel ring buffer, its two wait queues,
// and the close-time detach-before-free discipline — lives in
// internal/channel and internal/waitqueue. Bus is the container
// (spec.md §4.3) plus the blocking retry-loop API layer (spec.md
// §4.4) built on top of it. The coroutine runtime is an external
// collaborator (internal/sched) that Bus only consumes through the
// small sched.Runtime interface.
package cobus

import (
	"go.uber.org/zap"

	"github.com/veezhang/cobus/internal/channel"
	"github.com/veezhang/cobus/internal/sched"
)

// Bus is an ordered sequence of slots, each either empty or owning a
// channel (spec.md §3). The descriptor of a channel is its slot index.
type Bus struct {
	rt     sched.Runtime
	log    *zap.Logger
	slots  []*channel.Channel
	errno  Errno
	lasterr error
}

// Option configures a Bus at construction time, in the small
// functional-options idiom the teacher's constructors (makechan's
// size/elemtype parameters, NewWeighted(n int64) in x/sync/semaphore) use for
// constructor-time configuration.
type Option func(*Bus)

// WithLogger attaches a zap logger for slot-lifecycle and broadcast
// diagnostics. The default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(b *Bus) { b.log = log }
}

// New creates an empty bus driven by rt (spec.md §4.3's "new").
func New(rt sched.Runtime, opts ...Option) *Bus {
	b := &Bus{rt: rt, log: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Errno returns the last-error kind set by the most recently completed
// entry point on b, for callers who want the C-API flavor of spec.md
// §6 instead of checking the returned error directly.
func (b *Bus) Errno() Errno { return b.errno }

// LastError returns the Go error set by the most recently completed
// entry point, or nil on success.
func (b *Bus) LastError() error { return b.lasterr }

func (b *Bus) setErr(err error) error {
	b.lasterr = err
	b.errno = errnoFor(err)
	return err
}

// Open allocates a channel of the given capacity and returns its
// descriptor, selecting the lowest empty slot before growing the slot
// array (spec.md §4.3). Returns -1 only in principle for allocation
// failure; in this Go rendition allocation never fails short of OOM,
// which we do not attempt to recover from.
func (b *Bus) Open(capacity uint) int {
	c := channel.Open(b.rt, capacity)
	for i, slot := range b.slots {
		if slot == nil {
			b.slots[i] = c
			b.log.Debug("channel opened", zap.Int("descriptor", i), zap.Uint("capacity", capacity))
			b.setErr(nil)
			return i
		}
	}
	b.slots = append(b.slots, c)
	desc := len(b.slots) - 1
	b.log.Debug("channel opened", zap.Int("descriptor", desc), zap.Uint("capacity", capacity))
	b.setErr(nil)
	return desc
}

// lookup returns the channel at desc, or nil if the descriptor is out
// of range or its slot is empty.
func (b *Bus) lookup(desc int) *channel.Channel {
	if desc < 0 || desc >= len(b.slots) {
		return nil
	}
	return b.slots[desc]
}

// Close closes the channel at desc (spec.md §4.3 "close"): if the
// descriptor is out of range or its slot is empty, it returns without
// error. Otherwise it detaches the channel from the slot *before*
// tearing it down, so no concurrently-woken fiber can find it again
// through the bus (the central close-safety property of spec.md §5).
func (b *Bus) Close(desc int) {
	c := b.lookup(desc)
	if c == nil {
		b.setErr(nil)
		return
	}
	b.slots[desc] = nil
	// c.Close already wakes every detached waiter through the same
	// Runtime the bus was built with (internal/waitqueue.Queue wakes
	// via its rt on WakeAllDetach); we only need the count for logging.
	woken := c.Close()
	b.log.Debug("channel closed", zap.Int("descriptor", desc), zap.Int("waiters_released", len(woken)))
	b.setErr(nil)
}

// CloseAll closes every open slot and releases the slot array
// (spec.md §4.3 "delete"). It is the bus-wide teardown used by
// whatever owns the Bus when it is done with it.
func (b *Bus) CloseAll() {
	for desc := range b.slots {
		b.Close(desc)
	}
	b.slots = nil
	b.setErr(nil)
}

// openChannels returns every currently open channel, in slot order
// (the descriptors themselves are not returned). Used by Broadcast/TryBroadcast, which
// must reason about "every open channel" atomically.
func (b *Bus) openChannels() []*channel.Channel {
	var out []*channel.Channel
	for _, c := range b.slots {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}
