package bus

import "sync"

// Handler receives a payload published on a topic.
type Handler func(payload interface{})

// Bus is an in-process publish/subscribe broker keyed by topic string.
// It is passed to components as an explicit dependency; there is no
// package-level instance.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]subscription
	nextID   int
}

type subscription struct {
	id int
	fn Handler
}

func New() *Bus {
	return &Bus{handlers: make(map[string][]subscription)}
}

// Subscribe registers handler for topic and returns an unsubscribe func.
func (b *Bus) Subscribe(topic string, handler Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[topic] = append(b.handlers[topic], subscription{id: id, fn: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[topic]
		for i, s := range subs {
			if s.id == id {
				b.handlers[topic] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(b.handlers[topic]) == 0 {
			delete(b.handlers, topic)
		}
	}
}

// Publish delivers payload to every handler subscribed to topic,
// synchronously in subscription order.
func (b *Bus) Publish(topic string, payload interface{}) {
	b.mu.RLock()
	subs := make([]subscription, len(b.handlers[topic]))
	copy(subs, b.handlers[topic])
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(payload)
	}
}

// Subscribers returns the number of handlers on topic.
func (b *Bus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[topic])
}
