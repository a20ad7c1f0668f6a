package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Bus delivers events to the registered sinks, in registration order, and
// to in-process subscribers
type Bus struct {
	mu        sync.RWMutex
	sinks     []Sink
	subs      map[uint64]chan *Event
	nextSubID uint64
	logger    *zap.Logger
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		subs:   make(map[uint64]chan *Event),
		logger: logger,
	}
}

func (b *Bus) AddSink(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sinks = append(b.sinks, s)
}

// Subscribe returns a channel receiving every event emitted from now on and
// a function cancelling the subscription. Events are dropped for a
// subscriber whose buffer is full.
func (b *Bus) Subscribe(buffer int) (<-chan *Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSubID
	b.nextSubID++
	ch := make(chan *Event, buffer)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}

	return ch, cancel
}

// Emit hands ev to every sink. A failing sink does not stop delivery to the
// others; the sink errors are logged.
func (b *Bus) Emit(ctx context.Context, ev *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	b.logger.Info("raffle event",
		zap.String("event", string(ev.Type)),
		zap.String("event_id", ev.ID.String()),
		zap.Uint64("round", ev.RoundNumber),
		zap.Stringer("detail", ev),
	)

	for _, s := range b.sinks {
		if err := s.HandleEvent(ctx, ev); err != nil {
			b.logger.Error("failed to deliver event to sink",
				zap.String("event", string(ev.Type)),
				zap.String("event_id", ev.ID.String()),
				zap.Error(err),
			)
		}
	}

	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Warn("dropping event for slow subscriber",
				zap.Uint64("subscriber", id),
				zap.String("event", string(ev.Type)),
			)
		}
	}
}
