package caption

import "sync"

// Mailbox is a single-slot hand-off between the capture goroutine and the
// UI. A newer value overwrites an unconsumed older one: every partial does
// not need to survive, only the latest text does.
type Mailbox[T any] struct {
	mu    sync.Mutex
	val   T
	full  bool
	ready chan struct{}
}

// NewMailbox creates an empty mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{ready: make(chan struct{}, 1)}
}

// Put stores a value, replacing any unconsumed one, and wakes a waiting
// consumer. It never blocks.
func (m *Mailbox[T]) Put(v T) {
	m.mu.Lock()
	m.val = v
	m.full = true
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// Take removes and returns the stored value, if any.
func (m *Mailbox[T]) Take() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.full {
		var zero T
		return zero, false
	}
	v := m.val
	var zero T
	m.val = zero
	m.full = false
	return v, true
}

// Ready signals when a value may be available. A single receive can cover
// several Puts; consumers drain with Take until it reports empty.
func (m *Mailbox[T]) Ready() <-chan struct{} {
	return m.ready
}
