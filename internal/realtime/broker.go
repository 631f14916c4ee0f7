// Package realtime fans Redis pub/sub messages out to in-process handlers
// and implements the bookmark change feed on top of them.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/backend"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("broker closed")

// Handler receives the raw payload published on a channel.
type Handler func(channel string, payload []byte)

type handlerEntry struct {
	id uint64
	fn Handler
}

// topic is one Redis subscription shared by every local handler of a
// channel.
type topic struct {
	ps       *redis.PubSub
	handlers []handlerEntry
}

// Broker multiplexes Redis channels onto local handlers. Handlers of a
// channel are called one at a time, in subscription order.
type Broker struct {
	client *redis.Client
	log    logger.Logger

	mu     sync.Mutex
	topics map[string]*topic
	nextID uint64
	closed bool
	wg     sync.WaitGroup
}

// NewBroker creates a broker on client.
func NewBroker(client *redis.Client, log logger.Logger) *Broker {
	return &Broker{
		client: client,
		log:    log,
		topics: make(map[string]*topic),
	}
}

// Subscribe registers h on channel. The returned handle is idempotent.
// The Redis handshake for a new channel runs without holding the broker
// lock, so delivery on other channels continues meanwhile.
func (b *Broker) Subscribe(ctx context.Context, channel string, h Handler) (backend.Subscription, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	if t, ok := b.topics[channel]; ok {
		sub := b.attach(channel, t, h)
		b.mu.Unlock()
		return sub, nil
	}
	b.mu.Unlock()

	ps := b.client.Subscribe(ctx, channel)
	// Wait for the confirmation so no publish after return is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		_ = ps.Close()
		return nil, ErrClosed
	}
	// Another caller opened the channel during the handshake.
	if t, ok := b.topics[channel]; ok {
		_ = ps.Close()
		return b.attach(channel, t, h), nil
	}

	t := &topic{ps: ps}
	b.topics[channel] = t
	b.wg.Add(1)
	go b.dispatch(channel, t)
	b.log.Debug("channel opened", logger.String("channel", channel))

	return b.attach(channel, t, h), nil
}

// attach adds h to t. b.mu must be held.
func (b *Broker) attach(channel string, t *topic, h Handler) backend.Subscription {
	b.nextID++
	id := b.nextID
	t.handlers = append(t.handlers, handlerEntry{id: id, fn: h})

	var once sync.Once
	return backend.SubscriptionFunc(func() error {
		var err error
		once.Do(func() { err = b.unsubscribe(channel, id) })
		return err
	})
}

// Publish sends payload to every subscriber of channel, across processes.
func (b *Broker) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

func (b *Broker) dispatch(channel string, t *topic) {
	defer b.wg.Done()

	for msg := range t.ps.Channel() {
		b.mu.Lock()
		handlers := append([]handlerEntry(nil), t.handlers...)
		b.mu.Unlock()

		for _, h := range handlers {
			h.fn(msg.Channel, []byte(msg.Payload))
		}
	}
	b.log.Debug("channel closed", logger.String("channel", channel))
}

// unsubscribe drops handler id and closes the Redis subscription with the
// last handler. It never waits for the dispatch loop, so handlers may
// release subscriptions.
func (b *Broker) unsubscribe(channel string, id uint64) error {
	b.mu.Lock()
	t, ok := b.topics[channel]
	if !ok {
		b.mu.Unlock()
		return nil
	}

	for i, h := range t.handlers {
		if h.id == id {
			t.handlers = append(t.handlers[:i], t.handlers[i+1:]...)
			break
		}
	}
	if len(t.handlers) > 0 {
		b.mu.Unlock()
		return nil
	}
	delete(b.topics, channel)
	b.mu.Unlock()

	return t.ps.Close()
}

// Stats returns the handler count per open channel.
func (b *Broker) Stats() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]int, len(b.topics))
	for name, t := range b.topics {
		out[name] = len(t.handlers)
	}
	return out
}

// Channels returns the open channel names, sorted.
func (b *Broker) Channels() []string {
	stats := b.Stats()
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every subscription and waits for the dispatch loops.
func (b *Broker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	topics := b.topics
	b.topics = make(map[string]*topic)
	b.mu.Unlock()

	var errList []error
	for _, t := range topics {
		if err := t.ps.Close(); err != nil {
			errList = append(errList, err)
		}
	}
	b.wg.Wait()
	return errors.Join(errList...)
}
