package command

import (
	"testing"
	"time"
)

func TestQueuePushPopFIFO(t *testing.T) {
	q := NewQueue(nil)
	q.Push(Command{Payload: PlayerInput{PlayerID: 1}})
	q.Push(Command{Payload: PlayerInput{PlayerID: 2}})

	first := q.Pop()
	second := q.Pop()

	if p, ok := first.Payload.(PlayerInput); !ok || p.PlayerID != 1 {
		t.Fatalf("expected player 1 first, got %+v", first)
	}
	if p, ok := second.Payload.(PlayerInput); !ok || p.PlayerID != 2 {
		t.Fatalf("expected player 2 second, got %+v", second)
	}
}

func TestQueueTryPopEmpty(t *testing.T) {
	q := NewQueue(nil)
	if _, ok := q.TryPop(); ok {
		t.Fatal("expected TryPop on empty open queue to return false")
	}
}

func TestQueuePushAssignsCommandID(t *testing.T) {
	q := NewQueue(nil)
	q.Push(Command{Payload: PlayerInput{PlayerID: 1}})
	q.Push(Command{Payload: PlayerInput{PlayerID: 1}})

	a := q.Pop()
	b := q.Pop()
	if a.CommandID == 0 || b.CommandID == 0 || a.CommandID == b.CommandID {
		t.Fatalf("expected distinct nonzero command ids, got %d and %d", a.CommandID, b.CommandID)
	}
}

func TestQueueShutdownWakesBlockedPop(t *testing.T) {
	q := NewQueue(nil)
	done := make(chan Command, 1)
	go func() { done <- q.Pop() }()

	q.Shutdown()

	select {
	case cmd := <-done:
		if !cmd.IsShutdown() {
			t.Fatalf("expected shutdown sentinel, got %+v", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Pop did not wake after Shutdown")
	}
}

func TestQueueTryPopAfterShutdownReturnsSentinel(t *testing.T) {
	q := NewQueue(nil)
	q.Shutdown()
	cmd, ok := q.TryPop()
	if !ok || !cmd.IsShutdown() {
		t.Fatalf("expected shutdown sentinel, got %+v ok=%v", cmd, ok)
	}
}

func TestQueuePushAfterShutdownInvokesOnDrop(t *testing.T) {
	var dropped Command
	var called bool
	q := NewQueue(func(cmd Command) {
		called = true
		dropped = cmd
	})
	q.Shutdown()
	q.Push(Command{Payload: PlayerInput{PlayerID: 99}})

	if !called {
		t.Fatal("expected onDrop to be invoked")
	}
	if p, ok := dropped.Payload.(PlayerInput); !ok || p.PlayerID != 99 {
		t.Fatalf("expected dropped command to carry original payload, got %+v", dropped)
	}
	if q.Len() != 0 {
		t.Fatalf("expected queue to remain empty after drop, got %d", q.Len())
	}
}

func TestQueueLen(t *testing.T) {
	q := NewQueue(nil)
	q.Push(Command{Payload: PlayerInput{PlayerID: 1}})
	q.Push(Command{Payload: PlayerInput{PlayerID: 2}})
	if q.Len() != 2 {
		t.Fatalf("expected length 2, got %d", q.Len())
	}
	q.Pop()
	if q.Len() != 1 {
		t.Fatalf("expected length 1 after pop, got %d", q.Len())
	}
}
