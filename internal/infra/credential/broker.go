package credential

import (
	"sync"

	"lexcourt/internal/domain/entity"
	"lexcourt/internal/util"
)

// broker fans store events out to subscribers. Each subscriber has its own
// mailbox, so a slow subscriber never reorders or delays the others.
type broker struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*util.Mailbox[entity.StoreEvent]
}

func newBroker() *broker {
	return &broker{subs: make(map[uint64]*util.Mailbox[entity.StoreEvent])}
}

func (b *broker) Subscribe(fn func(entity.StoreEvent)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[id] = util.NewMailbox(fn)

	var once sync.Once

	return func() {
		once.Do(func() {
			b.mu.Lock()
			mb, ok := b.subs[id]
			delete(b.subs, id)
			b.mu.Unlock()

			if ok {
				mb.Close()
			}
		})
	}
}

// Publish posts ev to every subscriber. Holding the lock while posting keeps
// the emission order identical across subscribers.
func (b *broker) Publish(ev entity.StoreEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, mb := range b.subs {
		mb.Post(ev)
	}
}

// Sync waits until every subscriber has handled all events published so far.
func (b *broker) Sync() {
	b.mu.Lock()
	boxes := make([]*util.Mailbox[entity.StoreEvent], 0, len(b.subs))
	for _, mb := range b.subs {
		boxes = append(boxes, mb)
	}
	b.mu.Unlock()

	for _, mb := range boxes {
		mb.Sync()
	}
}

// Close unsubscribes everyone.
func (b *broker) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[uint64]*util.Mailbox[entity.StoreEvent])
	b.mu.Unlock()

	for _, mb := range subs {
		mb.Close()
	}
}

// Subscribers returns the number of active subscriptions.
func (b *broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}
