// internal/events/bus.go
package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"iqdump-service/internal/model"
)

// allEvents is the subscription key that receives every event type
const allEvents model.EventType = "*"

const subscriberBuffer = 100

// Publisher is the side of the bus services depend on
type Publisher interface {
	Publish(event model.Event)
}

// Bus manages event distribution
type Bus struct {
	subscribers map[model.EventType][]*Subscription
	events      chan model.Event
	mutex       sync.RWMutex
	logger      *zap.Logger
}

// Subscription receives the events it was registered for until closed
type Subscription struct {
	C     <-chan model.Event
	ch    chan model.Event
	types []model.EventType
	bus   *Bus
	once  sync.Once
}

// NewBus creates a bus with room for bufferSize undelivered events
func NewBus(bufferSize int, logger *zap.Logger) *Bus {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subscribers: make(map[model.EventType][]*Subscription),
		events:      make(chan model.Event, bufferSize),
		logger:      logger.With(zap.String("component", "event-bus")),
	}
}

// Start distributes events until ctx is done
func (b *Bus) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-b.events:
			b.distributeEvent(event)
		}
	}
}

// Publish queues an event without blocking; a full bus drops it
func (b *Bus) Publish(event model.Event) {
	select {
	case b.events <- event:
	default:
		b.logger.Warn("Event bus full, dropping event",
			zap.String("event_type", string(event.Type)),
		)
	}
}

// Subscribe registers for the given event types, or every type when none is given
func (b *Bus) Subscribe(types ...model.EventType) *Subscription {
	if len(types) == 0 {
		types = []model.EventType{allEvents}
	}

	ch := make(chan model.Event, subscriberBuffer)
	sub := &Subscription{C: ch, ch: ch, types: types, bus: b}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	for _, t := range types {
		b.subscribers[t] = append(b.subscribers[t], sub)
	}
	return sub
}

// Close unregisters the subscription and closes its channel
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mutex.Lock()
		defer s.bus.mutex.Unlock()

		for _, t := range s.types {
			subs := s.bus.subscribers[t]
			for i, candidate := range subs {
				if candidate == s {
					s.bus.subscribers[t] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
		}
		close(s.ch)
	})
}

// distributeEvent distributes an event to subscribers
func (b *Bus) distributeEvent(event model.Event) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	for _, key := range []model.EventType{event.Type, allEvents} {
		for _, sub := range b.subscribers[key] {
			select {
			case sub.ch <- event:
			default:
				// Subscriber is slow, skip
			}
		}
	}
}
