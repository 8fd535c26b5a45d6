package event

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
)

// BusConfig configures bus behavior.
type BusConfig struct {
	// BufferSize is the channel buffer per subscription. Default 256.
	BufferSize int

	// MaxSubscribers limits subscriptions; 0 means unlimited.
	MaxSubscribers int

	// NonBlocking drops events for subscribers whose buffer is full
	// instead of waiting.
	NonBlocking bool

	// OnDrop is called when a non-blocking publish drops an event.
	OnDrop func(e Event, subscriberID string)

	// OnError is called when a handler fails. Defaults to a slog warning.
	OnError func(e Event, subscriberID string, err error)
}

// Bus fans events out to subscribers.
type Bus struct {
	config BusConfig

	mu        sync.RWMutex
	subs      map[string]*Subscription
	byType    map[string]map[string]*Subscription
	wildcards map[string]*Subscription

	nextID  atomic.Int64
	closed  atomic.Bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// NewBus creates a bus.
func NewBus(config BusConfig) *Bus {
	if config.BufferSize <= 0 {
		config.BufferSize = 256
	}
	if config.OnError == nil {
		config.OnError = func(e Event, id string, err error) {
			slog.Warn("event handler failed",
				slog.String("event_type", e.Type),
				slog.String("subscriber", id),
				slog.String("error", err.Error()))
		}
	}
	return &Bus{
		config:    config,
		subs:      make(map[string]*Subscription),
		byType:    make(map[string]map[string]*Subscription),
		wildcards: make(map[string]*Subscription),
		closeCh:   make(chan struct{}),
	}
}

// Subscription is an active registration on a Bus.
type Subscription struct {
	id      string
	types   []string
	handler Handler
	events  chan Event
	done    chan struct{}
	once    sync.Once
	bus     *Bus
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string { return s.id }

// Publish delivers e to every subscriber of e.Type and to wildcard
// subscribers.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	if b.closed.Load() {
		return ErrBusClosed
	}

	b.mu.RLock()
	targets := make([]*Subscription, 0, len(b.byType[e.Type])+len(b.wildcards))
	for _, s := range b.byType[e.Type] {
		targets = append(targets, s)
	}
	for _, s := range b.wildcards {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		if b.config.NonBlocking {
			select {
			case s.events <- e:
			case <-s.done:
			default:
				if b.config.OnDrop != nil {
					b.config.OnDrop(e, s.id)
				}
			}
			continue
		}

		select {
		case s.events <- e:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		case <-b.closeCh:
			return ErrBusClosed
		}
	}
	return nil
}

// Subscribe registers handler for the given event types; no types means
// every event.
func (b *Bus) Subscribe(types []string, handler Handler) (*Subscription, error) {
	if b.closed.Load() {
		return nil, ErrBusClosed
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.config.MaxSubscribers > 0 && len(b.subs) >= b.config.MaxSubscribers {
		return nil, ErrTooManySubscribers
	}

	s := &Subscription{
		id:      "sub-" + strconv.FormatInt(b.nextID.Add(1), 10),
		types:   types,
		handler: handler,
		events:  make(chan Event, b.config.BufferSize),
		done:    make(chan struct{}),
		bus:     b,
	}
	b.subs[s.id] = s
	if len(types) == 0 {
		b.wildcards[s.id] = s
	}
	for _, t := range types {
		if b.byType[t] == nil {
			b.byType[t] = make(map[string]*Subscription)
		}
		b.byType[t][s.id] = s
	}

	b.wg.Add(1)
	go s.run()
	return s, nil
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close stops every subscription and waits for in-flight handlers.
func (b *Bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(b.closeCh)

	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	b.wg.Wait()
	return nil
}

func (s *Subscription) run() {
	defer s.bus.wg.Done()
	for {
		select {
		case e := <-s.events:
			if err := s.handler(context.Background(), e); err != nil {
				s.bus.config.OnError(e, s.id, err)
			}
		case <-s.done:
			return
		}
	}
}

// Unsubscribe removes the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		b := s.bus
		b.mu.Lock()
		delete(b.subs, s.id)
		delete(b.wildcards, s.id)
		for _, t := range s.types {
			delete(b.byType[t], s.id)
		}
		b.mu.Unlock()
		close(s.done)
	})
}
