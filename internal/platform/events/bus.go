// Package events provides a small topic-based broadcast bus. It decouples the
// HTTP client from the session layer (the "auth expired" signal) and carries
// transient toast notifications to whatever surface is listening.
package events

import (
	"sync"
)

// Well-known topics.
const (
	TopicAuthExpired = "auth.expired"
	TopicToast       = "toast"
)

// Toast levels.
const (
	ToastSuccess = "success"
	ToastError   = "error"
)

// Event is a single published message.
type Event struct {
	Topic   string
	Level   string
	Message string
}

// Bus fans events out to per-topic subscribers. Publish never blocks: a
// subscriber that falls behind drops events rather than stalling the
// publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]chan Event
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]chan Event)}
}

// Subscribe registers for a topic and returns the receive channel plus an
// unsubscribe func. Unsubscribing closes the channel.
func (b *Bus) Subscribe(topic string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		chans := b.subs[topic]
		for i, c := range chans {
			if c == ch {
				b.subs[topic] = append(chans[:i], chans[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of its topic.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[evt.Topic] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// AuthExpired broadcasts the session-expired signal.
func (b *Bus) AuthExpired() {
	b.Publish(Event{Topic: TopicAuthExpired})
}

// ToastSuccessf publishes a success toast.
func (b *Bus) ToastSuccessf(msg string) {
	b.Publish(Event{Topic: TopicToast, Level: ToastSuccess, Message: msg})
}

// ToastErrorf publishes an error toast.
func (b *Bus) ToastErrorf(msg string) {
	b.Publish(Event{Topic: TopicToast, Level: ToastError, Message: msg})
}
