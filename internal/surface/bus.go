// Package surface hosts the per-surface controllers and the messaging they
// use to nudge each other. Surfaces own no authoritative state in memory;
// everything durable lives in the stores.
package surface

import (
	"sync"
	"time"
)

type EventKind int

const (
	// EventTrackingStarted announces a confirmed start (new entry identity).
	EventTrackingStarted EventKind = iota
	// EventTrackingStopped announces a confirmed stop.
	EventTrackingStopped
	// EventStateInvalidated asks listeners to run a reconciliation pass.
	EventStateInvalidated
)

func (k EventKind) String() string {
	switch k {
	case EventTrackingStarted:
		return "tracking_started"
	case EventTrackingStopped:
		return "tracking_stopped"
	case EventStateInvalidated:
		return "state_invalidated"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind    EventKind
	EntryID string
	At      time.Time
}

// Subscription is one listener's feed. Events are dropped, not queued, when
// the listener falls behind; every listener reconciles from durable state on
// wake, so a missed nudge costs one poll interval at most.
type Subscription struct {
	id int
	C  <-chan Event
}

// Bus is in-process publish/subscribe with explicit lifetimes: controllers
// subscribe at construction and unsubscribe at teardown.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, 8)
	b.next++
	b.subs[b.next] = ch
	return &Subscription{id: b.next, C: ch}
}

func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[sub.id]; ok {
		delete(b.subs, sub.id)
		close(ch)
	}
}

func (b *Bus) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
