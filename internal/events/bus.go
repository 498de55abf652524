package events

import "sync"

// Bus fans events out to whatever is subscribed at emit time. Dispatch is
// synchronous and in registration order per topic; there is no replay, so a
// late subscriber misses earlier events.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Topic][]*subscription
}

type subscription struct {
	id      int
	topic   Topic
	handler Handler
}

// Subscription unsubscribes its handler when released. Consumers must
// release on teardown; the bus itself does not reap dead subscribers.
type Subscription struct {
	bus *Bus
	sub *subscription
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[Topic][]*subscription),
	}
}

func (b *Bus) Subscribe(topic Topic, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &subscription{id: b.nextID, topic: topic, handler: handler}
	b.subs[topic] = append(b.subs[topic], sub)
	return &Subscription{bus: b, sub: sub}
}

func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	subs := s.bus.subs[s.sub.topic]
	for i, sub := range subs {
		if sub.id == s.sub.id {
			s.bus.subs[s.sub.topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	s.bus = nil
}

// Emit dispatches to every current subscriber of the topic. The handler
// snapshot is taken under the lock so a handler may subscribe or
// unsubscribe without deadlocking; such changes take effect on the next emit.
func (b *Bus) Emit(topic Topic, payload any) {
	b.mu.RLock()
	subs := make([]*subscription, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	b.mu.RUnlock()

	e := Event{Topic: topic, Payload: payload}
	for _, sub := range subs {
		sub.handler(e)
	}
}

// SubscriberCount reports how many handlers are registered for a topic.
func (b *Bus) SubscriberCount(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
