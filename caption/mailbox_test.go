package caption

import (
	"sync"
	"testing"
	"time"
)

func TestMailboxPutTake(t *testing.T) {
	m := NewMailbox[string]()

	if _, ok := m.Take(); ok {
		t.Error("Take on empty mailbox should report empty")
	}

	m.Put("a")
	v, ok := m.Take()
	if !ok || v != "a" {
		t.Errorf("Take = %q, %v; want %q, true", v, ok, "a")
	}

	if _, ok := m.Take(); ok {
		t.Error("mailbox should be empty after Take")
	}
}

func TestMailboxNewestWins(t *testing.T) {
	m := NewMailbox[string]()

	m.Put("old")
	m.Put("mid")
	m.Put("new")

	v, ok := m.Take()
	if !ok || v != "new" {
		t.Errorf("Take = %q, %v; want latest value %q", v, ok, "new")
	}
	if _, ok := m.Take(); ok {
		t.Error("overwritten values must not be delivered")
	}
}

func TestMailboxReadyWakesConsumer(t *testing.T) {
	m := NewMailbox[int]()

	got := make(chan int, 1)
	go func() {
		<-m.Ready()
		if v, ok := m.Take(); ok {
			got <- v
		}
	}()

	m.Put(42)

	select {
	case v := <-got:
		if v != 42 {
			t.Errorf("consumed %d, want 42", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consumer never woke up")
	}
}

func TestMailboxConcurrentLatest(t *testing.T) {
	m := NewMailbox[int]()
	const last = 1000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= last; i++ {
			m.Put(i)
		}
	}()

	// Consume concurrently; values may be dropped but never reordered.
	var prev int
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-m.Ready():
				if v, ok := m.Take(); ok {
					if v < prev {
						t.Errorf("observed %d after %d", v, prev)
						return
					}
					prev = v
					if v == last {
						return
					}
				}
			case <-time.After(2 * time.Second):
				t.Error("timed out waiting for final value")
				return
			}
		}
	}()

	wg.Wait()
	<-done
}
