// notifier/notifier.go
//
// In-process publish/subscribe bus for asset change events. A single
// Notifier is created at startup, injected into the store, and closed
// at shutdown. No persistence, no replay: a subscriber only receives
// events published after it subscribed.
package notifier

import (
	"sync"
	"time"

	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/models"
)

// Topics. Every observer of the global feeds sees every create/update;
// AssetTopic(id) is delivered only to observers of that asset.
const (
	TopicAssetCreated = "asset:created"
	TopicAssetUpdated = "asset:updated"
)

// AssetTopic returns the per-asset topic for focused live tracking.
func AssetTopic(id string) string {
	return "asset:" + id
}

// Event types carried in payloads.
const (
	EventAssetCreated  = "asset:created"
	EventAssetUpdated  = "asset:updated"
	EventAssetLocation = "asset:location"
)

// Event is the payload delivered to subscribers.
type Event struct {
	Type      string        `json:"type"`
	Asset     *models.Asset `json:"asset"`
	Timestamp time.Time     `json:"timestamp"`
}

// subscriberBuffer bounds each subscriber's queue. When a buffer is
// full, Publish drops that event for that subscriber only
// (drop-newest); it never blocks the publishing mutation.
const subscriberBuffer = 64

// Subscription is a live registration on one topic. The caller owns
// its lifetime and must Unsubscribe when done; the notifier holds only
// a table entry.
type Subscription struct {
	topic string
	ch    chan Event
}

// Events returns the receive channel. It is closed by Unsubscribe and
// by Notifier.Close.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Topic returns the topic this subscription is registered on.
func (s *Subscription) Topic() string {
	return s.topic
}

type Notifier struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	closed bool
}

func New() *Notifier {
	return &Notifier{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers for a topic. Returns a subscription whose
// channel receives events in publish order (FIFO per subscriber).
func (n *Notifier) Subscribe(topic string) *Subscription {
	sub := &Subscription{topic: topic, ch: make(chan Event, subscriberBuffer)}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		close(sub.ch)
		return sub
	}
	set, ok := n.subs[topic]
	if !ok {
		set = make(map[*Subscription]struct{})
		n.subs[topic] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Unsubscribe removes the subscription and closes its channel. Safe to
// call more than once.
func (n *Notifier) Unsubscribe(sub *Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()
	set, ok := n.subs[sub.topic]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(n.subs, sub.topic)
	}
	close(sub.ch)
}

// Publish delivers ev to every current subscriber of topic. Delivery
// per subscriber is FIFO; a subscriber whose buffer is full misses
// this event (drop-newest) so a slow consumer cannot stall the
// mutation that published it.
func (n *Notifier) Publish(topic string, ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	for sub := range n.subs[topic] {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// Close tears the bus down: all subscriber channels are closed and
// further publishes are dropped.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for _, set := range n.subs {
		for sub := range set {
			close(sub.ch)
		}
	}
	n.subs = make(map[string]map[*Subscription]struct{})
}
