package auth

import (
	"sync"
	"time"

	"github.com/aimd54/penpath/pkg/logger"
)

// EventType names a session state change.
type EventType string

// EventType constants.
const (
	EventSignedUp EventType = "signed_up"
	EventSignedIn EventType = "signed_in"
)

// Event is published after a session state change.
type Event struct {
	Type   EventType
	UserID string
	At     time.Time
}

// Events fans session events out to subscribers. Publish never blocks;
// a subscriber whose buffer is full misses the event.
type Events struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	log    *logger.Logger
}

// NewEvents creates an empty event hub.
func NewEvents(log *logger.Logger) *Events {
	return &Events{
		subs: make(map[int]chan Event),
		log:  log,
	}
}

// Subscribe registers a subscriber with the given buffer size. The returned
// func unsubscribes and closes the channel; calling it twice is safe.
func (e *Events) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.subs[id] = ch
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers ev to every subscriber that has room for it.
func (e *Events) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	for id, ch := range e.subs {
		select {
		case ch <- ev:
		default:
			e.log.Warn().
				Int("subscriber", id).
				Str("event", string(ev.Type)).
				Str("user_id", ev.UserID).
				Msg("Dropping session event for slow subscriber")
		}
	}
}
