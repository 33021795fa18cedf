package mailbox

import (
	"sync"
	"testing"
	"time"
)

func TestSlot_KeepsLatest(t *testing.T) {
	s := New[int]()

	if _, ok := s.Take(); ok {
		t.Fatal("new slot not empty")
	}

	if s.Put(1) {
		t.Error("first put reported a replacement")
	}
	if !s.Put(2) {
		t.Error("second put should replace the first")
	}

	v, ok := s.Take()
	if !ok || v != 2 {
		t.Errorf("Take() = %d, %v; want 2, true", v, ok)
	}
	if _, ok := s.Take(); ok {
		t.Error("slot not empty after take")
	}
	if s.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", s.Dropped())
	}
}

func TestSlot_ReadySignal(t *testing.T) {
	s := New[string]()
	s.Put("a")
	s.Put("b")

	select {
	case <-s.Ready():
	case <-time.After(time.Second):
		t.Fatal("no ready signal")
	}

	// Two puts coalesce into one signal.
	select {
	case <-s.Ready():
		t.Fatal("unexpected second signal")
	default:
	}

	if v, _ := s.Take(); v != "b" {
		t.Errorf("Take() = %q, want b", v)
	}
}

func TestSlot_ConcurrentProducer(t *testing.T) {
	s := New[int]()
	const n = 1000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= n; i++ {
			s.Put(i)
		}
	}()

	last := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		select {
		case <-s.Ready():
			if v, ok := s.Take(); ok {
				if v <= last {
					t.Fatalf("values went backwards: %d after %d", v, last)
				}
				last = v
			}
		case <-done:
			if v, ok := s.Take(); ok {
				last = v
			}
			if last != n {
				t.Fatalf("last value = %d, want %d", last, n)
			}
			return
		}
	}
}
