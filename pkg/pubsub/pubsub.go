// Package pubsub fans typed messages out to in-process subscribers.
package pubsub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrShutdown is returned when subscribing to a broker that has shut down
var ErrShutdown = errors.New("pubsub: broker is shut down")

// DefaultBuffer is the per-subscription channel capacity
const DefaultBuffer = 100

// Broker provides publish/subscribe for messages of type T
type Broker[T any] struct {
	subscribers map[string]map[*Subscription[T]]struct{}
	mu          sync.RWMutex
	shutdown    chan struct{}
	isShutdown  bool

	buffer   int
	conflate bool
	dropped  atomic.Uint64
}

// Option configures a Broker
type Option func(*options)

type options struct {
	buffer   int
	conflate bool
}

// WithBuffer sets the per-subscription channel capacity
func WithBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.buffer = n
		}
	}
}

// WithConflation makes a full subscription drop its oldest message instead
// of the new one, so slow readers always see the latest state
func WithConflation() Option {
	return func(o *options) {
		o.conflate = true
	}
}

// Subscription represents a subscription to a topic
type Subscription[T any] struct {
	topic   string
	channel chan T
	broker  *Broker[T]
	cancel  context.CancelFunc
	closed  bool // Protected by broker.mu
}

// NewBroker creates a new Broker
func NewBroker[T any](opts ...Option) *Broker[T] {
	o := options{buffer: DefaultBuffer}
	for _, opt := range opts {
		opt(&o)
	}
	return &Broker[T]{
		subscribers: make(map[string]map[*Subscription[T]]struct{}),
		shutdown:    make(chan struct{}),
		buffer:      o.buffer,
		conflate:    o.conflate,
	}
}

// Subscribe creates a new subscription to a topic. It ends when ctx is
// canceled, Unsubscribe is called or the broker shuts down; the channel is
// closed in every case.
func (b *Broker[T]) Subscribe(ctx context.Context, topic string) (*Subscription[T], error) {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription[T]{
		topic:   topic,
		channel: make(chan T, b.buffer),
		broker:  b,
		cancel:  cancel,
	}

	b.mu.Lock()
	if b.isShutdown {
		b.mu.Unlock()
		cancel()
		return nil, ErrShutdown
	}
	if b.subscribers[topic] == nil {
		b.subscribers[topic] = make(map[*Subscription[T]]struct{})
	}
	b.subscribers[topic][sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-b.shutdown:
			cancel()
		}
	}()

	return sub, nil
}

// Publish sends a message to every subscriber of a topic without blocking
// and returns how many received it. Sends happen under the read lock so a
// channel is never closed mid-send.
func (b *Broker[T]) Publish(topic string, message T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.isShutdown {
		return 0
	}

	delivered := 0
	for sub := range b.subscribers[topic] {
		if b.offer(sub.channel, message) {
			delivered++
		} else {
			b.dropped.Add(1)
		}
	}
	return delivered
}

func (b *Broker[T]) offer(ch chan T, message T) bool {
	select {
	case ch <- message:
		return true
	default:
	}
	if !b.conflate {
		return false
	}

	// drop the oldest and retry once
	select {
	case <-ch:
		b.dropped.Add(1)
	default:
	}
	select {
	case ch <- message:
		return true
	default:
		return false
	}
}

// SubscriberCount returns the number of subscribers for a topic
func (b *Broker[T]) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}

// Dropped returns how many messages were discarded because a subscriber was full
func (b *Broker[T]) Dropped() uint64 {
	return b.dropped.Load()
}

// Shutdown closes all subscriptions. It is safe to call more than once.
func (b *Broker[T]) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isShutdown {
		return
	}
	b.isShutdown = true
	close(b.shutdown)

	for topic, subs := range b.subscribers {
		for sub := range subs {
			sub.closeLocked()
		}
		delete(b.subscribers, topic)
	}
}

// Channel returns the subscription's message channel
func (s *Subscription[T]) Channel() <-chan T {
	return s.channel
}

// Topic returns the subscribed topic
func (s *Subscription[T]) Topic() string {
	return s.topic
}

// Unsubscribe removes the subscription and closes its channel (idempotent)
func (s *Subscription[T]) Unsubscribe() {
	s.cancel()

	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()

	if subs := s.broker.subscribers[s.topic]; subs != nil {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.broker.subscribers, s.topic)
		}
	}
	s.closeLocked()
}

func (s *Subscription[T]) closeLocked() {
	if !s.closed {
		s.closed = true
		close(s.channel)
	}
}
