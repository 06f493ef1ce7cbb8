// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cobus

import "errors"

// Errno is the last-error kind spec.md §3 and §7 describe, kept per
// Bus. Every Bus entry point sets it, including to ErrNone on
// success (spec.md §7's policy), while also returning a plain Go
// error so callers who prefer idiomatic error handling never have to
// touch it.
type Errno int

const (
	// ErrNone means the last operation on the owning Bus succeeded.
	ErrNone Errno = iota
	// ErrNoChannel means the descriptor was out of range, its slot was
	// empty, or the channel was closed while the caller was blocked.
	ErrNoChannel
	// ErrWouldBlock means a non-blocking primitive found the channel
	// in the wrong state. Blocking primitives never surface this; when
	// the descriptor becomes invalid mid-wait they report ErrNoChannel.
	ErrWouldBlock
)

func (e Errno) String() string {
	switch e {
	case ErrNone:
		return "none"
	case ErrNoChannel:
		return "no channel"
	case ErrWouldBlock:
		return "would block"
	default:
		return "unknown errno"
	}
}

// sentinel errors for errors.Is-style checks against the error values
// returned alongside Errno.
var (
	// ErrClosedOrInvalid is returned when a descriptor is out of
	// range, empty, or was closed while the caller was blocked on it.
	ErrClosedOrInvalid = errors.New("cobus: no such channel")
	// ErrBlocked is returned by try-prefixed (non-blocking) entry
	// points when the channel is momentarily full (send) or empty
	// (recv), or, for TryBroadcast, when any open channel is full.
	ErrBlocked = errors.New("cobus: would block")
)

func errnoFor(err error) Errno {
	switch {
	case err == nil:
		return ErrNone
	case errors.Is(err, ErrClosedOrInvalid):
		return ErrNoChannel
	case errors.Is(err, ErrBlocked):
		return ErrWouldBlock
	default:
		return ErrNone
	}
}
