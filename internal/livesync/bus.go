package livesync

import (
	"context"
	"sync"
)

// Bus is a synchronous in-process Feed for single-binary deployments and
// tests: the service layer publishes unit changes straight to subscribed
// channels without a broker in between.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]map[int]Handler
	nextID   int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: map[string]map[int]Handler{}}
}

// Subscribe registers a handler for a subject's change events. The
// acknowledgment is delivered synchronously before Subscribe returns.
func (b *Bus) Subscribe(ctx context.Context, subjectID string, h Handler) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	if b.handlers[subjectID] == nil {
		b.handlers[subjectID] = map[int]Handler{}
	}
	id := b.nextID
	b.nextID++
	b.handlers[subjectID][id] = h
	b.mu.Unlock()

	h.OnConnected()
	return &busSubscription{bus: b, subjectID: subjectID, id: id}, nil
}

// Publish delivers an event to every handler subscribed to its subject.
func (b *Bus) Publish(event Event) error {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.handlers[event.SubjectID]))
	for _, h := range b.handlers[event.SubjectID] {
		hs = append(hs, h)
	}
	b.mu.RUnlock()

	for _, h := range hs {
		h.OnEvent(event)
	}
	return nil
}

type busSubscription struct {
	bus       *Bus
	subjectID string
	id        int
	once      sync.Once
}

func (s *busSubscription) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.handlers[s.subjectID], s.id)
		s.bus.mu.Unlock()
	})
	return nil
}
