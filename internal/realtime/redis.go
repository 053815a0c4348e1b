package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// RedisBus fans events out through Redis pub/sub so every server instance
// sees inserts made by the others.
type RedisBus struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisBus returns a bus publishing on "<prefix>:<topic>" channels.
func NewRedisBus(rdb *redis.Client, prefix string) *RedisBus {
	if prefix == "" {
		prefix = "portal:rt"
	}
	return &RedisBus{rdb: rdb, prefix: prefix}
}

func (b *RedisBus) channel(topic string) string { return b.prefix + ":" + topic }

func (b *RedisBus) Publish(ctx context.Context, topic string, row any) error {
	ev, err := encode(topic, row)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel(topic), payload).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, topics ...string) (<-chan Event, error) {
	channels := make([]string, len(topics))
	for i, t := range topics {
		channels[i] = b.channel(t)
	}
	ps := b.rdb.Subscribe(ctx, channels...)
	// Receive blocks until the subscription is confirmed, so events
	// published right after Subscribe returns are not lost.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer ps.Close()
		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("realtime: drop malformed event on %s: %v", msg.Channel, err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
