// Package notifications publishes graph mutation events over Redis and fans
// them out to websocket subscribers.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"socialgraph/internal/cascade"
	"socialgraph/internal/observability"
	"socialgraph/internal/store"

	"github.com/redis/go-redis/v9"
)

// EventsChannel is the Redis channel mutation events are published on.
const EventsChannel = "graph:events"

// GraphEvent describes one committed mutation.
type GraphEvent struct {
	Operation string          `json:"operation"`
	Kind      store.Kind      `json:"kind"`
	ID        string          `json:"id"`
	Report    *cascade.Report `json:"report,omitempty"`
	At        time.Time       `json:"at"`
}

// Notifier publishes events into Redis. A Notifier without a client
// silently drops events.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Publish sends ev to EventsChannel.
func (n *Notifier) Publish(ctx context.Context, ev GraphEvent) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := n.rdb.Publish(ctx, EventsChannel, payload).Err(); err != nil {
		observability.EventsPublished.WithLabelValues("failed").Inc()
		return err
	}
	observability.EventsPublished.WithLabelValues("published").Inc()
	return nil
}

// Subscribe listens on EventsChannel until ctx is done and calls onMessage
// with each payload. A panic in onMessage is logged and does not stop the
// subscription.
func (n *Notifier) Subscribe(ctx context.Context, onMessage func(payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, EventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", EventsChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.Logger.Error("panic in event subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()
	return nil
}
