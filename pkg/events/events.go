package events

import (
	"strconv"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventCommitOK        EventType = "commit.ok"
	EventCommitFailed    EventType = "commit.failed"
	EventTxnMerged       EventType = "txn.merged"
	EventTxnFallback     EventType = "txn.fallback"
	EventCheckpointed    EventType = "root.checkpointed"
	EventRootlogLeader   EventType = "rootlog.leader"
	EventRootlogFollower EventType = "rootlog.follower"
)

// Event represents a kvsd event
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Message   string
	Metadata  map[string]string
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker manages event subscriptions and distribution
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100), // Buffer up to 100 events
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns a channel
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50) // Buffer per subscriber
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish publishes an event to all subscribers
func (b *Broker) Publish(event *Event) {
	// Set timestamp if not set
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, skip
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// PublishCommit publishes an EventCommitOK naming the keys a successful
// commit touched. It has the shape of a kvs.TouchHook so it can be
// passed directly to Namespace.SetTouchHook.
func (b *Broker) PublishCommit(namespace string, keys []string) {
	b.Publish(&Event{
		Type:    EventCommitOK,
		Message: "commit applied",
		Metadata: map[string]string{
			"namespace": namespace,
			"keys":      joinKeys(keys),
		},
	})
}

// PublishCommitFailed publishes an EventCommitFailed naming the error a
// commit or fence ultimately failed with. It has the shape of a
// kvs.FailHook so it can be passed directly to Namespace.SetFailHook.
func (b *Broker) PublishCommitFailed(namespace string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	b.Publish(&Event{
		Type:    EventCommitFailed,
		Message: "commit failed",
		Metadata: map[string]string{
			"namespace": namespace,
			"error":     msg,
		},
	})
}

// PublishTxnMerged publishes an EventTxnMerged naming how many adjacent
// txns MergeReady folded together. It has the shape of a kvs.MergeHook so
// it can be passed directly to Namespace.SetMergeHook.
func (b *Broker) PublishTxnMerged(namespace string, merges int) {
	b.Publish(&Event{
		Type:    EventTxnMerged,
		Message: "txns merged",
		Metadata: map[string]string{
			"namespace": namespace,
			"merges":    strconv.Itoa(merges),
		},
	})
}

// PublishTxnFallback publishes an EventTxnFallback naming the component
// requestors of a merged txn that failed and was split back into its
// originals. It has the shape of a kvs.FallbackHook so it can be passed
// directly to Namespace.SetFallbackHook.
func (b *Broker) PublishTxnFallback(namespace string, names []string) {
	b.Publish(&Event{
		Type:    EventTxnFallback,
		Message: "merged txn fell back to individual retries",
		Metadata: map[string]string{
			"namespace": namespace,
			"names":     joinKeys(names),
		},
	})
}

// PublishCheckpointed publishes an EventCheckpointed naming the root and
// sequence number a SYNC commit durably recorded. It has the shape of a
// kvs.CheckpointHook so it can be passed directly to
// Namespace.SetCheckpointHook.
func (b *Broker) PublishCheckpointed(namespace, root string, seq uint64) {
	b.Publish(&Event{
		Type:    EventCheckpointed,
		Message: "root checkpointed",
		Metadata: map[string]string{
			"namespace": namespace,
			"root":      root,
			"seq":       strconv.FormatUint(seq, 10),
		},
	})
}

// PublishRootlogLeadership publishes EventRootlogLeader or
// EventRootlogFollower depending on isLeader, for a node's rootlog Raft
// leadership transitions.
func (b *Broker) PublishRootlogLeadership(isLeader bool) {
	typ := EventRootlogFollower
	msg := "lost rootlog leadership"
	if isLeader {
		typ = EventRootlogLeader
		msg = "acquired rootlog leadership"
	}
	b.Publish(&Event{
		Type:    typ,
		Message: msg,
	})
}

func joinKeys(keys []string) string {
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ","
		}
		out += k
	}
	return out
}
