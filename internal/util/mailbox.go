package util

import "sync"

// Mailbox hands posted values to a single handler goroutine in post order.
// Post never blocks and never drops; the queue is unbounded.
type Mailbox[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []T
	posted  uint64
	handled uint64
	closed  bool
	done    chan struct{}
	handler func(T)
}

// NewMailbox starts the delivery goroutine for handler.
func NewMailbox[T any](handler func(T)) *Mailbox[T] {
	m := &Mailbox[T]{
		done:    make(chan struct{}),
		handler: handler,
	}
	m.cond = sync.NewCond(&m.mu)

	go m.run()

	return m
}

// Post enqueues v. It reports false once the mailbox is closed.
func (m *Mailbox[T]) Post(v T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}

	m.items = append(m.items, v)
	m.posted++
	m.cond.Broadcast()

	return true
}

// Close stops accepting values. Values already posted are still delivered.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	m.closed = true
	m.cond.Broadcast()
	m.mu.Unlock()
}

// Done is closed after Close once every pending value has been handled.
func (m *Mailbox[T]) Done() <-chan struct{} {
	return m.done
}

// Sync blocks until every value posted before the call has been handled.
// Calling it from the handler itself deadlocks.
func (m *Mailbox[T]) Sync() {
	m.mu.Lock()
	defer m.mu.Unlock()

	target := m.posted
	for m.handled < target {
		m.cond.Wait()
	}
}

func (m *Mailbox[T]) run() {
	defer close(m.done)

	for {
		m.mu.Lock()
		for len(m.items) == 0 && !m.closed {
			m.cond.Wait()
		}
		if len(m.items) == 0 {
			m.mu.Unlock()

			return
		}

		v := m.items[0]
		var zero T
		m.items[0] = zero
		m.items = m.items[1:]
		m.mu.Unlock()

		m.handler(v)

		m.mu.Lock()
		m.handled++
		m.cond.Broadcast()
		m.mu.Unlock()
	}
}
