package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"socialgraph/internal/observability"

	"github.com/cenkalti/backoff/v5"
)

const (
	maxSubscribers = 1000
	sendBuffer     = 64
)

// ErrHubFull is returned by Register when the subscriber limit is reached.
var ErrHubFull = errors.New("event feed subscriber limit reached")

// Subscriber receives event payloads on C. Payloads are dropped for a
// subscriber whose buffer is full.
type Subscriber struct {
	C    chan []byte
	once sync.Once
}

func (s *Subscriber) close() { s.once.Do(func() { close(s.C) }) }

// Hub fans event payloads out to every registered subscriber.
type Hub struct {
	mu    sync.RWMutex
	subs  map[*Subscriber]struct{}
	wired atomic.Bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscriber]struct{})}
}

// Register adds a subscriber.
func (h *Hub) Register() (*Subscriber, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.subs) >= maxSubscribers {
		return nil, ErrHubFull
	}
	s := &Subscriber{C: make(chan []byte, sendBuffer)}
	h.subs[s] = struct{}{}
	observability.WebSocketConnectionsTotal.Inc()
	return s, nil
}

// Unregister removes s and closes its channel.
func (h *Hub) Unregister(s *Subscriber) {
	h.mu.Lock()
	_, ok := h.subs[s]
	delete(h.subs, s)
	h.mu.Unlock()
	if ok {
		s.close()
		observability.WebSocketConnectionsTotal.Dec()
	}
}

// Count returns the number of subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast delivers payload to every subscriber without blocking.
func (h *Hub) Broadcast(payload string) {
	data := []byte(payload)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		select {
		case s.C <- data:
		default:
		}
	}
}

// StartWiring feeds events received by n into the hub.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	if err := n.Subscribe(ctx, h.Broadcast); err != nil {
		return err
	}
	h.wired.Store(true)
	return nil
}

// RunWiring retries StartWiring with bo until it succeeds or ctx is done.
// A nil bo uses exponential backoff.
func (h *Hub) RunWiring(ctx context.Context, n *Notifier, bo backoff.BackOff) error {
	if bo == nil {
		bo = backoff.NewExponentialBackOff()
	}
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, h.StartWiring(ctx, n)
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			observability.Logger.Warn("event feed subscription failed, retrying",
				slog.String("error", err.Error()),
				slog.Duration("retry_in", next),
			)
		}),
	)
	return err
}

// Wired reports whether the hub is subscribed to the event channel.
func (h *Hub) Wired() bool { return h.wired.Load() }

// Shutdown unregisters every subscriber.
func (h *Hub) Shutdown() {
	h.wired.Store(false)
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[*Subscriber]struct{})
	h.mu.Unlock()
	for s := range subs {
		s.close()
		observability.WebSocketConnectionsTotal.Dec()
	}
}
