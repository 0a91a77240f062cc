// Package events is the notification channel from the sessions to the
// presentation layer.
package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultBuffer = 64

// Bus fans events out to in-process subscribers. Emit never blocks: a
// subscriber whose buffer is full misses the event. Drops are logged once
// per stall, with a count when the subscriber catches up.
type Bus struct {
	log *slog.Logger

	mu          sync.RWMutex
	subscribers map[string]chan Envelope

	dropMu  sync.Mutex
	dropped map[string]int
}

func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{
		log:         log,
		subscribers: make(map[string]chan Envelope),
		dropped:     make(map[string]int),
	}
}

// Emit publishes an event from source to every subscriber.
func (b *Bus) Emit(source string, eventType EventType, data any) Envelope {
	env := Envelope{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subscribers {
		select {
		case ch <- env:
			b.delivered(id)
		default:
			b.drop(id, eventType)
		}
	}
	return env
}

func (b *Bus) drop(id string, eventType EventType) {
	b.dropMu.Lock()
	b.dropped[id]++
	first := b.dropped[id] == 1
	b.dropMu.Unlock()
	if first {
		b.log.Warn("subscriber buffer full, dropping events",
			slog.String("subscriber", id), slog.String("event_type", string(eventType)))
	}
}

func (b *Bus) delivered(id string) {
	b.dropMu.Lock()
	n := b.dropped[id]
	delete(b.dropped, id)
	b.dropMu.Unlock()
	if n > 0 {
		b.log.Info("subscriber caught up", slog.String("subscriber", id), slog.Int("dropped", n))
	}
}

// Subscribe registers a subscriber and returns its channel. The caller must
// Unsubscribe with the same id.
func (b *Bus) Subscribe(id string, bufSize int) <-chan Envelope {
	if bufSize <= 0 {
		bufSize = defaultBuffer
	}
	ch := make(chan Envelope, bufSize)
	b.mu.Lock()
	if old, ok := b.subscribers[id]; ok {
		close(old)
	}
	b.subscribers[id] = ch
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()

	b.dropMu.Lock()
	delete(b.dropped, id)
	b.dropMu.Unlock()
}

// Emitter is the publishing side of the bus, bound to one source name.
type Emitter struct {
	bus    *Bus
	source string
}

// For returns an Emitter that stamps events with source. A nil bus yields
// an Emitter that drops everything.
func (b *Bus) For(source string) Emitter {
	return Emitter{bus: b, source: source}
}

func (e Emitter) Emit(eventType EventType, data any) {
	if e.bus == nil {
		return
	}
	e.bus.Emit(e.source, eventType, data)
}
