package eventbus

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is anything that can be published on the bus.
type Event interface {
	Name() string
}

// Listener handles a published event.
type Listener func(ctx context.Context, event Event) error

// Bus is an in-process publish/subscribe hub. Side effects of state
// mutations (quota accumulation, creator notifications) run through it so
// the engine has no direct dependency on their transports. Callers that
// prefer polling simply never subscribe.
type Bus struct {
	listeners map[string][]Listener
	mu        sync.RWMutex
	logger    *zap.Logger
	timeout   time.Duration
}

func New(logger *zap.Logger) *Bus {
	return &Bus{
		listeners: make(map[string][]Listener),
		logger:    logger,
		timeout:   time.Minute,
	}
}

func (b *Bus) Subscribe(eventName string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventName] = append(b.listeners[eventName], listener)
}

// Publish invokes every subscriber asynchronously, best-effort. Listener
// errors are logged, never propagated to the publisher.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	listeners := append([]Listener(nil), b.listeners[event.Name()]...)
	b.mu.RUnlock()

	for _, listener := range listeners {
		go func(l Listener) {
			lctx, cancel := context.WithTimeout(context.Background(), b.timeout)
			defer cancel()
			if err := l(lctx, event); err != nil {
				b.logger.Error("event listener failed",
					zap.String("event", event.Name()),
					zap.Error(err),
				)
			}
		}(listener)
	}
}

// PublishSync invokes subscribers in the calling goroutine. Tests use it to
// observe side effects deterministically.
func (b *Bus) PublishSync(ctx context.Context, event Event) {
	b.mu.RLock()
	listeners := append([]Listener(nil), b.listeners[event.Name()]...)
	b.mu.RUnlock()

	for _, listener := range listeners {
		if err := listener(ctx, event); err != nil {
			b.logger.Error("event listener failed",
				zap.String("event", event.Name()),
				zap.Error(err),
			)
		}
	}
}
