package realtime

import (
	"context"
	"log"
	"sync"
)

// MemoryBus is an in-process Bus used when Redis is unavailable and in
// tests.  Slow subscribers lose events rather than block publishers.
type MemoryBus struct {
	mu     sync.Mutex
	subs   map[*memSub]struct{}
	buffer int
}

type memSub struct {
	topics map[string]bool
	ch     chan Event
}

// NewMemoryBus returns a bus whose subscriber channels hold buffer events.
func NewMemoryBus(buffer int) *MemoryBus {
	if buffer <= 0 {
		buffer = 64
	}
	return &MemoryBus{subs: make(map[*memSub]struct{}), buffer: buffer}
}

func (b *MemoryBus) Publish(_ context.Context, topic string, row any) error {
	ev, err := encode(topic, row)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		if !s.topics[topic] {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			log.Printf("realtime: subscriber buffer full, dropping %s event", topic)
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, topics ...string) (<-chan Event, error) {
	s := &memSub{topics: make(map[string]bool, len(topics)), ch: make(chan Event, b.buffer)}
	for _, t := range topics {
		s.topics[t] = true
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, s)
		close(s.ch)
		b.mu.Unlock()
	}()
	return s.ch, nil
}

// Subscribers returns the number of live subscriptions.
func (b *MemoryBus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
