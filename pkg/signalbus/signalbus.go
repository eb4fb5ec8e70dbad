// Package signalbus installs POSIX signal handlers and hands them to the
// master/worker main loop as a cooperatively-drained queue, instead of
// running handler logic directly on the signal-delivery goroutine. This
// keeps the "handlers run between reap calls, never during a reap"
// ordering guarantee from §5.
package signalbus

import (
	"os"
	"os/signal"
)

// SignalBus buffers delivered signals until the owning loop drains them via
// Queue/TryNext. Signals are not merged — each delivery is queued
// individually and served in order.
type SignalBus struct {
	ch     chan os.Signal
	queue  chan os.Signal
	done   chan struct{}
	stopCh chan struct{}
}

// New installs signal.Notify for the given signals and starts the
// forwarding goroutine. Call Stop to uninstall.
func New(sigs ...os.Signal) *SignalBus {
	b := &SignalBus{
		ch:     make(chan os.Signal, 1),
		queue:  make(chan os.Signal, 64),
		done:   make(chan struct{}),
		stopCh: make(chan struct{}),
	}
	signal.Notify(b.ch, sigs...)
	go b.forward()
	return b
}

func (b *SignalBus) forward() {
	defer close(b.done)
	for {
		select {
		case sig := <-b.ch:
			select {
			case b.queue <- sig:
			case <-b.stopCh:
				return
			}
		case <-b.stopCh:
			return
		}
	}
}

// Queue exposes the channel the owning loop selects on alongside its other
// suspension points (waitpid-equivalent, timers, ...).
func (b *SignalBus) Queue() <-chan os.Signal { return b.queue }

// TryNext drains one pending signal without blocking, or returns (nil,
// false) if the queue is currently empty. Used by loops that want to fully
// drain the queue before re-entering their blocking wait, per §5's
// "drain the signal queue, then waitpid" ordering.
func (b *SignalBus) TryNext() (os.Signal, bool) {
	select {
	case sig := <-b.queue:
		return sig, true
	default:
		return nil, false
	}
}

// Stop uninstalls the signal handlers and stops the forwarding goroutine.
func (b *SignalBus) Stop() {
	signal.Stop(b.ch)
	close(b.stopCh)
	<-b.done
}
