package sched

// Runtime is the small contract spec.md §6 asks the coroutine runtime to
// provide. internal/waitqueue and internal/channel depend only on this
// interface, never on the concrete Scheduler below, so that the core
// stays agnostic of how fibers are actually driven (goroutines here,
// something else in a test double).
type Runtime interface {
	// Current returns a handle for the calling fiber.
	Current() Handle

	// Suspend blocks the calling fiber until some other fiber calls
	// Wakeup on its handle. It must only be called from inside a fiber
	// started by Spawn.
	Suspend()

	// Wakeup marks the fiber referred to by h runnable. It is
	// idempotent: waking an already-runnable or already-finished
	// fiber is a no-op, matching spec.md §6's "idempotent until it
	// runs".
	Wakeup(h Handle)
}
