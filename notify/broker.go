// Package notify is a local pub/sub fan-out for runtime
// notifications (named notify so it does not collide with the domain's
// own WorldEvent type).
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a notification for subscriber-side filtering.
type Kind string

const (
	KindWorldEvent       Kind = "world_event"
	KindModuleAlert      Kind = "module_alert"
	KindMembershipAlert  Kind = "membership_alert"
	KindConsensusChange  Kind = "consensus_change"
	KindReplicationEvent Kind = "replication_event"
)

// Event is the payload broadcast to subscribers.
type Event struct {
	ID        string
	Kind      Kind
	Timestamp time.Time
	Message   string
	Metadata  map[string]string
}

// Subscriber is a channel a caller reads published events from.
type Subscriber chan *Event

// Broker fans published events out to every live subscriber without
// blocking on a slow one.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]bool
	eventCh     chan *Event
	stopCh      chan struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100),
		stopCh:      make(chan struct{}),
	}
}

func (b *Broker) Start() {
	go b.run()
}

func (b *Broker) Stop() {
	close(b.stopCh)
}

func (b *Broker) run() {
	for {
		select {
		case evt := <-b.eventCh:
			b.broadcast(evt)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(evt *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subscribers {
		select {
		case sub <- evt:
		default:
		}
	}
}

// Subscribe registers a new subscriber with a bounded buffer.
func (b *Broker) Subscribe() Subscriber {
	sub := make(Subscriber, 50)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes and closes a subscriber.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribers[sub] {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Publish enqueues evt for broadcast, assigning an ID and Timestamp
// when unset.
func (b *Broker) Publish(evt *Event) {
	if evt.ID == "" {
		evt.ID = uuid.New().String()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	select {
	case b.eventCh <- evt:
	case <-b.stopCh:
	}
}

func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
