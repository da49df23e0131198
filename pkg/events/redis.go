package events

import (
	"context"
	"encoding/json"

	"github.com/mishafoods/storefront-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RedisBus fans events out over a redis pub/sub channel so that contexts
// in separate processes (or hosts) observe each other's cart writes.
type RedisBus struct {
	raw     *redis.Client
	channel string
	logg    *logger.Logger
}

// NewRedisBus wraps an existing redis client. The client is shared with
// the kv store and is not closed by the bus.
func NewRedisBus(raw *redis.Client, channel string, logg *logger.Logger) *RedisBus {
	return &RedisBus{raw: raw, channel: channel, logg: logg}
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.raw.Publish(ctx, b.channel, payload).Err()
}

// Subscribe starts a goroutine draining the channel until cancel is called
// or the context ends. Malformed payloads are logged and skipped.
func (b *RedisBus) Subscribe(ctx context.Context, handler Handler) (func(), error) {
	sub := b.raw.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					if b.logg != nil {
						b.logg.Warn(ctx, "dropping malformed cart event")
					}
					continue
				}
				handler(ctx, ev)
			}
		}
	}()

	cancel := func() {
		_ = sub.Close()
		<-done
	}
	return cancel, nil
}

func (b *RedisBus) Close() error {
	return nil
}
