package bus

import (
	"errors"
	"sync"
)

// MemoryBus is the in-process Bus used for single-node deployments and tests.
// Publish delivers synchronously, so a caller returning from Publish knows
// every subscriber has run.
type MemoryBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]*memorySubscription
	closed bool
}

type memorySubscription struct {
	bus     *MemoryBus
	table   string
	id      int
	filter  Filter
	handler Handler
}

// NewMemoryBus creates an empty in-process bus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[int]*memorySubscription)}
}

// Subscribe registers a handler for events on the given table
func (b *MemoryBus) Subscribe(table string, filter Filter, handler Handler) (Subscription, error) {
	if table == "" {
		return nil, errors.New("table is required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("bus is closed")
	}

	b.nextID++
	sub := &memorySubscription{
		bus:     b,
		table:   table,
		id:      b.nextID,
		filter:  filter,
		handler: handler,
	}
	if b.subs[table] == nil {
		b.subs[table] = make(map[int]*memorySubscription)
	}
	b.subs[table][sub.id] = sub

	return sub, nil
}

// Publish fans the event out to matching subscribers on its table
func (b *MemoryBus) Publish(event Event) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New("bus is closed")
	}
	var targets []*memorySubscription
	for _, sub := range b.subs[event.Table] {
		targets = append(targets, sub)
	}
	b.mu.Unlock()

	// Handlers run outside the lock so they may unsubscribe or resubscribe.
	for _, sub := range targets {
		if sub.filter == nil || sub.filter(event) {
			sub.handler(event)
		}
	}
	return nil
}

// Close drops all subscriptions
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[string]map[int]*memorySubscription)
	return nil
}

// Unsubscribe removes the registration; subsequent events are not delivered
func (s *memorySubscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if table, ok := s.bus.subs[s.table]; ok {
		delete(table, s.id)
		if len(table) == 0 {
			delete(s.bus.subs, s.table)
		}
	}
}
