// Package events allows for the registering and receiving of ledger events,
// fanned out to every websocket client of the node.
package events

import (
	"fmt"
	"strings"

	"github.com/algorand/go-deadlock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// messageBuffer is the channel capacity of a subscriber. A message is
// dropped for a subscriber whose buffer is full.
const messageBuffer = 100

var droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "lattice",
	Subsystem: "events",
	Name:      "dropped_total",
	Help:      "Count of events dropped because a subscriber was not keeping up.",
})

type subscriber struct {
	ch     chan string
	topics []string
}

func (s subscriber) wants(msg string) bool {
	if len(s.topics) == 0 {
		return true
	}
	for _, topic := range s.topics {
		if strings.HasPrefix(msg, topic) {
			return true
		}
	}
	return false
}

// Events maintains the set of subscribers keyed by a unique id.
type Events struct {
	mu   deadlock.RWMutex
	subs map[string]subscriber
}

// New constructs an events for registering and receiving events.
func New() *Events {
	return &Events{
		subs: make(map[string]subscriber),
	}
}

// Shutdown closes and removes every subscriber channel.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, sub := range evt.subs {
		delete(evt.subs, id)
		close(sub.ch)
	}
}

// Acquire registers the id and returns the channel its events arrive on.
// With topics, only events starting with one of them are delivered; an
// event such as "ledger: Process: ..." has the topic "ledger". Acquiring
// an existing id returns its channel unchanged.
func (evt *Events) Acquire(id string, topics ...string) chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if sub, exists := evt.subs[id]; exists {
		return sub.ch
	}

	sub := subscriber{
		ch:     make(chan string, messageBuffer),
		topics: make([]string, 0, len(topics)),
	}
	for _, topic := range topics {
		if topic = strings.TrimSpace(topic); topic != "" {
			sub.topics = append(sub.topics, topic+":")
		}
	}

	evt.subs[id] = sub
	return sub.ch
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	sub, exists := evt.subs[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.subs, id)
	close(sub.ch)
	return nil
}

// Len returns the number of subscribers.
func (evt *Events) Len() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.subs)
}

// Send delivers the message to every interested subscriber without blocking.
func (evt *Events) Send(msg string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, sub := range evt.subs {
		if !sub.wants(msg) {
			continue
		}

		select {
		case sub.ch <- msg:
		default:
			droppedTotal.Inc()
		}
	}
}
