package cobus

import (
	"errors"
	"testing"

	"github.com/veezhang/cobus/internal/sched"
)

// TestBroadcastAtomicityOnFailure is spec.md §8's broadcast atomicity
// law: after a failed TryBroadcast, no channel's occupancy changed.
func TestBroadcastAtomicityOnFailure(t *testing.T) {
	b, _ := newTestBus()
	a := b.Open(2)
	c := b.Open(1)
	b.TrySend(c, 1) // fill c so broadcast can't proceed

	if err := b.TryBroadcast(5); !errors.Is(err, ErrBlocked) {
		t.Fatalf("TryBroadcast() = %v, want ErrBlocked", err)
	}
	if _, err := b.TryRecv(a); err == nil {
		t.Fatalf("channel a received a word from a failed broadcast")
	}
}

// TestBroadcastNoChannelsOpen covers spec.md §9's "no channels exist"
// case, which collapses to ErrNoChannel like "all closed".
func TestBroadcastNoChannelsOpen(t *testing.T) {
	b, _ := newTestBus()
	if err := b.TryBroadcast(1); !errors.Is(err, ErrClosedOrInvalid) {
		t.Fatalf("TryBroadcast() on empty bus = %v, want ErrClosedOrInvalid", err)
	}

	desc := b.Open(1)
	b.Close(desc)
	if err := b.TryBroadcast(1); !errors.Is(err, ErrClosedOrInvalid) {
		t.Fatalf("TryBroadcast() after all channels closed = %v, want ErrClosedOrInvalid", err)
	}
}

// TestErrnoTrackingPerEntryPoint exercises spec.md §7's policy that
// every entry point sets the last-error, including to ErrNone on
// success.
func TestErrnoTrackingPerEntryPoint(t *testing.T) {
	b, _ := newTestBus()
	desc := b.Open(1)

	if err := b.TrySend(desc, 1); err != nil {
		t.Fatalf("TrySend() = %v, want nil", err)
	}
	if b.Errno() != ErrNone {
		t.Fatalf("Errno() = %v, want ErrNone", b.Errno())
	}

	if err := b.TrySend(desc, 2); !errors.Is(err, ErrBlocked) {
		t.Fatalf("TrySend() on full channel = %v, want ErrBlocked", err)
	}
	if b.Errno() != ErrWouldBlock {
		t.Fatalf("Errno() = %v, want ErrWouldBlock", b.Errno())
	}

	if _, err := b.TryRecv(99); !errors.Is(err, ErrClosedOrInvalid) {
		t.Fatalf("TryRecv(99) = %v, want ErrClosedOrInvalid", err)
	}
	if b.Errno() != ErrNoChannel {
		t.Fatalf("Errno() = %v, want ErrNoChannel", b.Errno())
	}
}

// TestFairnessAcrossThreeSenders exercises spec.md §8's fairness law
// directly: blocked senders complete in enqueue order as slots free
// up one at a time.
func TestFairnessAcrossThreeSenders(t *testing.T) {
	b, s := newTestBus()
	desc := b.Open(1)
	b.TrySend(desc, 0) // fill it so all three block

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		s.Spawn(func(h sched.Handle) {
			if err := b.Send(desc, uint64(i)); err != nil {
				t.Errorf("sender %d: Send() = %v", i, err)
				return
			}
			order = append(order, i)
		})
	}
	s.Spawn(func(h sched.Handle) {
		for i := 0; i < 4; i++ {
			if _, err := b.Recv(desc); err != nil {
				t.Errorf("Recv() #%d = %v", i, err)
			}
		}
	})

	s.Run()
	s.Wait()

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("completion order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("completion order = %v, want %v", order, want)
		}
	}
}
