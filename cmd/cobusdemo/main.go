// Command cobusdemo is a tiny runnable wired on top of the cobus
// library, in the spirit of the other small cmd/ drivers shipped
// alongside the libraries in the retrieved reference pack. It is
// explicitly outside the message-bus core (spec.md §1 scopes "command
// line drivers" out of the core, not out of the repo).
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	cobus "github.com/veezhang/cobus"
	"github.com/veezhang/cobus/internal/sched"
)

func main() {
	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cobusdemo: logger init:", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	// Each demo gets its own Bus/Scheduler pair: fibers inside one
	// scheduler run cooperatively one at a time, but the two demos
	// have no shared state, so errgroup can legitimately fan them out
	// across real goroutines.
	var g errgroup.Group
	g.Go(func() error { runBoundedPipe(log.Named("bounded-pipe")); return nil })
	g.Go(func() error { runBroadcast(log.Named("broadcast")); return nil })
	if err := g.Wait(); err != nil {
		log.Error("demo failed", zap.Error(err))
		os.Exit(1)
	}
}

// runBoundedPipe demonstrates spec.md §8 scenario 1: a producer and a
// consumer on a capacity-2 channel.
func runBoundedPipe(log *zap.Logger) {
	s := sched.New()
	b := cobus.New(s, cobus.WithLogger(log))
	desc := b.Open(2)

	s.Spawn(func(h sched.Handle) {
		for _, word := range []uint64{1, 2, 3} {
			if err := b.Send(desc, word); err != nil {
				log.Error("send failed", zap.Error(err))
				return
			}
		}
	})
	s.Spawn(func(h sched.Handle) {
		for i := 0; i < 3; i++ {
			word, err := b.Recv(desc)
			if err != nil {
				log.Error("recv failed", zap.Error(err))
				return
			}
			log.Info("bounded pipe received", zap.Uint64("word", word))
		}
	})

	s.Run()
	s.Wait()
	b.Close(desc)
}

// runBroadcast demonstrates spec.md §8 scenario 5: a broadcast that
// must wait for one full channel to drain before it can proceed
// atomically.
func runBroadcast(log *zap.Logger) {
	s := sched.New()
	b := cobus.New(s, cobus.WithLogger(log))

	a := b.Open(1)
	c := b.Open(1)
	defer b.Close(a)
	defer b.Close(c)

	b.TrySend(c, 0xFACE)

	s.Spawn(func(h sched.Handle) {
		if err := b.Broadcast(0xBEEF); err != nil {
			log.Error("broadcast failed", zap.Error(err))
		}
	})
	s.Spawn(func(h sched.Handle) {
		word, err := b.Recv(c)
		if err != nil {
			log.Error("recv failed", zap.Error(err))
			return
		}
		log.Info("drained channel c to unblock broadcast", zap.Uint64("word", word))
	})

	s.Run()
	s.Wait()

	for _, desc := range []int{a, c} {
		word, err := b.TryRecv(desc)
		if err != nil {
			log.Error("expected broadcast word", zap.Int("descriptor", desc), zap.Error(err))
			continue
		}
		log.Info("broadcast delivered", zap.Int("descriptor", desc), zap.Uint64("word", word))
	}
}
