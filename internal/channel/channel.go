// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package channel implements the bounded ring-buffer channel spec.md
// §4.2 describes: a ring of fixed-width words plus two wait queues,
// one for senders blocked on a full buffer and one for receivers
// blocked on an empty one.
//
// Grounded on runtime/chan.go's hchan (qcount/dataqsiz/buf/sendx/recvx
// fields map directly to size/capacity/buffer/sendIndex/head below) and
// on runtime/sema.go's framing of sleep/wakeup as a pairing discipline
// rather than a condition guarantee.
package channel

import (
	"github.com/veezhang/cobus/internal/sched"
	"github.com/veezhang/cobus/internal/waitqueue"
)

// Result is the outcome of a non-blocking primitive.
type Result int

const (
	// Ok means the operation completed.
	Ok Result = iota
	// WouldBlock means the channel was in the wrong state (full for
	// send, empty for recv, any-channel-full for broadcast).
	WouldBlock
)

// Channel is a bounded FIFO of uint64 words, the fixed-width "word"
// message spec.md §1 scopes the core to.
//
// Invariants (spec.md §3): 0 <= size <= capacity; head in
// [0, max(capacity,1)); the word at logical position k resides at
// buffer[(head+k) mod capacity].
type Channel struct {
	rt sched.Runtime

	capacity uint
	buffer   []uint64 // nil when capacity == 0
	head     uint
	size     uint

	// rendezvous resolves spec.md §9's capacity-0 open question: a
	// zero-capacity channel carries no buffer and size is pinned at 0
	// at every observable point (see trySendRendezvous/tryRecvRendezvous
	// below for the full protocol). It is never counted toward size.
	rendezvous    *uint64
	hasRendezvous bool

	sendWaiters *waitqueue.Queue
	recvWaiters *waitqueue.Queue

	open bool
}

// Open allocates a ring of capacity words (or none if capacity == 0)
// and initializes both wait queues empty (spec.md §4.2 "Open").
func Open(rt sched.Runtime, capacity uint) *Channel {
	c := &Channel{
		rt:          rt,
		capacity:    capacity,
		sendWaiters: waitqueue.New(rt),
		recvWaiters: waitqueue.New(rt),
		open:        true,
	}
	if capacity > 0 {
		c.buffer = make([]uint64, capacity)
	}
	return c
}

// IsOpen reports whether the channel is still reachable (spec.md §3:
// "A channel is either open ... or closed").
func (c *Channel) IsOpen() bool { return c.open }

// Capacity returns the channel's fixed capacity.
func (c *Channel) Capacity() uint { return c.capacity }

// Len returns the current occupancy, for instrumented testing
// (spec.md §8's invariant assertions read this directly).
func (c *Channel) Len() uint { return c.size }

// SendWaiters and RecvWaiters expose the wait queues for instrumented
// testing of spec.md §8's waiter invariants; the blocking API layer
// also enqueues onto these directly.
func (c *Channel) SendWaiters() *waitqueue.Queue { return c.sendWaiters }
func (c *Channel) RecvWaiters() *waitqueue.Queue { return c.recvWaiters }

// TrySend implements spec.md §4.2's non-blocking send.
func (c *Channel) TrySend(word uint64) Result {
	if c.capacity == 0 {
		return c.trySendRendezvous(word)
	}
	if c.size == c.capacity {
		return WouldBlock
	}
	c.buffer[c.sendIndex()] = word
	c.size++
	c.recvWaiters.WakeFirst()
	return Ok
}

// TryRecv implements spec.md §4.2's non-blocking recv.
func (c *Channel) TryRecv() (uint64, Result) {
	if c.capacity == 0 {
		return c.tryRecvRendezvous()
	}
	if c.size == 0 {
		return 0, WouldBlock
	}
	word := c.buffer[c.head]
	c.head = (c.head + 1) % c.capacity
	c.size--
	c.sendWaiters.WakeFirst()
	return word, Ok
}

// TrySendV implements spec.md §4.4's vectorised send: copies
// min(len(words), capacity-size) words into the ring, wakes the first
// recv waiter iff at least one word was written, and returns the count
// written.
func (c *Channel) TrySendV(words []uint64) (int, Result) {
	if c.capacity == 0 {
		if len(words) == 0 {
			return 0, WouldBlock
		}
		r := c.trySendRendezvous(words[0])
		if r != Ok {
			return 0, WouldBlock
		}
		return 1, Ok
	}
	room := c.capacity - c.size
	n := uint(len(words))
	if n > room {
		n = room
	}
	if n == 0 {
		return 0, WouldBlock
	}
	idx := c.sendIndex()
	for i := uint(0); i < n; i++ {
		c.buffer[idx] = words[i]
		idx++
		if idx == c.capacity {
			idx = 0
		}
	}
	c.size += n
	c.recvWaiters.WakeFirst()
	return int(n), Ok
}

// TryRecvV implements spec.md §4.4's vectorised recv: drains up to
// len(out) words, returning the count read.
func (c *Channel) TryRecvV(out []uint64) (int, Result) {
	if c.capacity == 0 {
		if len(out) == 0 {
			return 0, WouldBlock
		}
		word, r := c.tryRecvRendezvous()
		if r != Ok {
			return 0, WouldBlock
		}
		out[0] = word
		return 1, Ok
	}
	n := c.size
	if uint(len(out)) < n {
		n = uint(len(out))
	}
	if n == 0 {
		return 0, WouldBlock
	}
	for i := uint(0); i < n; i++ {
		out[i] = c.buffer[c.head]
		c.head = (c.head + 1) % c.capacity
	}
	c.size -= n
	c.sendWaiters.WakeFirst()
	return int(n), Ok
}

// CanSend reports whether TrySend would succeed right now, without
// mutating any state. Broadcast uses this to check every open channel
// before committing a word to any of them (spec.md §4.4's
// all-or-nothing broadcast).
func (c *Channel) CanSend() bool {
	if c.capacity == 0 {
		return !c.hasRendezvous && c.recvWaiters.Len() > 0
	}
	return c.size < c.capacity
}

// Close detaches both wait queues before releasing the buffer
// (spec.md §4.2's "Close"): wake-all-detach both queues first, so that
// when any woken fiber next runs, its wait record is already detached
// and no operation it performs touches freed queue storage, then drop
// the buffer and the rendezvous cell. The two queues stay attached to
// the closed channel, empty.
//
// The caller (Bus) is responsible for removing the channel from its
// slot *before* calling Close, so no new operation can find the
// channel mid-teardown (spec.md §4.2's detach-slot-first ordering).
func (c *Channel) Close() []sched.Handle {
	woken := c.sendWaiters.WakeAllDetach()
	woken = append(woken, c.recvWaiters.WakeAllDetach()...)
	c.open = false
	c.buffer = nil
	c.rendezvous = nil
	c.hasRendezvous = false
	return woken
}

func (c *Channel) sendIndex() uint {
	idx := c.head + c.size
	if idx >= c.capacity {
		idx -= c.capacity
	}
	return idx
}

// trySendRendezvous implements the capacity-0 half of spec.md §9's
// resolved protocol: a send only succeeds when a receiver is already
// queued, by depositing directly into the rendezvous cell (never into
// size/buffer) and waking that receiver.
func (c *Channel) trySendRendezvous(word uint64) Result {
	if c.hasRendezvous {
		// A previous handoff hasn't been collected yet; under
		// single-fiber-at-a-time scheduling this only happens if a
		// second sender races ahead of the matching receiver.
		return WouldBlock
	}
	if c.recvWaiters.Len() == 0 {
		return WouldBlock
	}
	c.rendezvous = &word
	c.hasRendezvous = true
	c.recvWaiters.WakeFirst()
	return Ok
}

// tryRecvRendezvous is the receiver's half. If a sender has already
// deposited a word, take it and chain-wake the next blocked sender. If
// instead a sender is merely queued (blocked because no receiver was
// waiting yet when it tried), wake that sender so its retry can
// deposit, and report WouldBlock: this receiver must itself enqueue
// and wait for that deposit, exactly reproducing spec.md's scenario 2
// ("sender blocks until receiver's try_recv wakes it").
func (c *Channel) tryRecvRendezvous() (uint64, Result) {
	if c.hasRendezvous {
		word := *c.rendezvous
		c.rendezvous = nil
		c.hasRendezvous = false
		c.sendWaiters.WakeFirst()
		return word, Ok
	}
	if c.sendWaiters.Len() > 0 {
		c.sendWaiters.WakeFirst()
	}
	return 0, WouldBlock
}
