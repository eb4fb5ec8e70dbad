package eventloop

import (
	"net"
	"testing"
	"time"
)

func TestPostRunsOnLoopGoroutine(t *testing.T) {
	l := New()
	done := make(chan struct{})
	go func() { _ = l.Run() }()

	l.Post(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("posted action never ran")
	}
	l.Stop()
}

func TestStopDrainsQueuedActionsBeforeExiting(t *testing.T) {
	l := New()
	ran := make(chan int, 1)

	runErr := make(chan error, 1)
	go func() { runErr <- l.Run() }()

	l.Post(func() { ran <- 1 })
	l.Stop()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("action queued before Stop should still have run")
	}
	select {
	case err := <-runErr:
		if err != nil {
			t.Errorf("Run() returned %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestRegisterAcceptDispatchesAcceptedConnections(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer ln.Close()

	l := New()
	go func() { _ = l.Run() }()
	defer l.Stop()

	accepted := make(chan AcceptedConnection, 1)
	if err := l.RegisterAccept("test", ln, func(c AcceptedConnection) {
		accepted <- c
	}); err != nil {
		t.Fatalf("RegisterAccept: %v", err)
	}

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("net.Dial: %v", err)
	}
	defer client.Close()

	select {
	case c := <-accepted:
		if c.ID() == 0 {
			t.Error("accepted connection should have a nonzero id")
		}
		_ = c.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("accepted connection was never dispatched")
	}
}

func TestUnregisterAcceptIsIdempotent(t *testing.T) {
	l := New()
	l.UnregisterAccept("never-registered")
}
