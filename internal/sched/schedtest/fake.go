// Package schedtest provides a deterministic, non-blocking stand-in
// for sched.Runtime, used by internal/channel and internal/waitqueue
// unit tests that only need to exercise try_* primitives and FIFO wake
// ordering without driving real fibers.
package schedtest

import "github.com/veezhang/cobus/internal/sched"

// Fake implements sched.Runtime. Every call to Current returns the same
// identity (there is exactly one "caller" in these tests); Wakeup just
// records which handles were woken, in order, so tests can assert
// fairness without a real scheduler loop.
type Fake struct {
	current sched.Handle
	Woken   []sched.Handle
}

// New returns a ready-to-use Fake.
func New() *Fake {
	return &Fake{current: sched.NewHandle()}
}

func (f *Fake) Current() sched.Handle { return f.current }

// Suspend panics: Fake is for try_* (non-suspending) code paths only.
// Blocking-path behavior is covered by tests built on a real
// sched.Scheduler instead.
func (f *Fake) Suspend() {
	panic("schedtest: Fake does not support suspension")
}

func (f *Fake) Wakeup(h sched.Handle) {
	f.Woken = append(f.Woken, h)
}

// Reset clears the recorded wakeups between test cases.
func (f *Fake) Reset() { f.Woken = nil }
