// Package broadcaster implements the event fan-out hub from spec 4.10:
// monotonic event-id assignment, a bounded in-memory history ring for
// Last-Event-ID replay, and per-subscriber bounded dispatch that closes
// slow consumers instead of blocking the publisher.
package broadcaster

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/veloz-systems/gateway/infrastructure/metrics"
)

const defaultHistorySize = 500
const defaultSubscriptionBuffer = 256

// EventType classifies a broadcast event for SSE framing and routing.
type EventType string

const (
	EventMarketData  EventType = "market-data"
	EventOrderUpdate EventType = "order-update"
	EventAccount     EventType = "account"
	EventSystem      EventType = "system"
	EventError       EventType = "error"
	EventKeepalive   EventType = "keepalive"
)

// Event is a single broadcastable message: spec 3's SSE event. Data is a
// single-line UTF-8 JSON string; publishers are responsible for ensuring it
// contains no raw newlines, since the SSE wire format is newline-sensitive.
type Event struct {
	ID          uint64
	Type        EventType
	TimestampNs int64
	Data        string
}

// Subscription is a single subscriber's live feed. The broadcaster holds it
// in a keyed map removed on Close — there is no cyclic ownership, just a
// lookup the broadcaster drops.
type Subscription struct {
	id uint64
	b  *Broadcaster

	mu     sync.Mutex
	lastID uint64
	closed bool
	reason string
	events chan Event
}

// Events returns the channel live events are delivered on. It is closed
// when the subscription ends, either because the caller closed it or
// because the broadcaster force-closed a slow consumer — callers
// distinguish the two with CloseReason after the channel reports closed.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// LastID returns the highest event id delivered to this subscription.
func (s *Subscription) LastID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastID
}

// CloseReason reports why the broadcaster force-closed this subscription,
// or "" if it is still open or was closed by its owner.
func (s *Subscription) CloseReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Close unregisters the subscription from the broadcaster. Idempotent.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	s.b.unsubscribe(s.id)
}

// Broadcaster assigns monotonic event ids, keeps a bounded history ring,
// and dispatches published events to every active subscription.
type Broadcaster struct {
	nextID      atomic.Uint64
	historySize int

	historyMu sync.RWMutex
	history   []Event

	subsMu  sync.Mutex
	subs    map[uint64]*Subscription
	nextSub atomic.Uint64

	metrics *metrics.Metrics
}

// New builds a broadcaster with the given bounded history size (500 if
// historySize <= 0).
func New(historySize int, m *metrics.Metrics) *Broadcaster {
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	return &Broadcaster{
		historySize: historySize,
		history:     make([]Event, 0, historySize),
		subs:        make(map[uint64]*Subscription),
		metrics:     m,
	}
}

// Publish assigns event an id, appends it to history, and dispatches it to
// every active subscription, returning the assigned id. The subscriber
// snapshot is taken in the same historyMu critical section as the history
// append, so Publish can never interleave with SubscribeWithReplay's own
// history-snapshot-plus-registration step (lock order historyMu before
// subsMu is followed everywhere it matters).
func (b *Broadcaster) Publish(event Event) uint64 {
	b.historyMu.Lock()
	id := b.appendHistoryLocked(&event)
	targets := b.snapshotSubsLocked()
	b.historyMu.Unlock()

	for _, sub := range targets {
		b.deliver(sub, event)
	}
	return id
}

// PublishBatch publishes events in order under a single critical section;
// semantically equivalent to calling Publish for each in order.
func (b *Broadcaster) PublishBatch(events []Event) []uint64 {
	ids := make([]uint64, len(events))

	b.historyMu.Lock()
	for i := range events {
		ids[i] = b.appendHistoryLocked(&events[i])
	}
	targets := b.snapshotSubsLocked()
	b.historyMu.Unlock()

	for _, event := range events {
		for _, sub := range targets {
			b.deliver(sub, event)
		}
	}
	return ids
}

// appendHistoryLocked assigns event.ID, stamps a timestamp if unset, and
// appends to the ring, dropping the oldest entry past capacity. Caller
// must hold historyMu.
func (b *Broadcaster) appendHistoryLocked(event *Event) uint64 {
	id := b.nextID.Add(1)
	event.ID = id
	if event.TimestampNs == 0 {
		event.TimestampNs = time.Now().UnixNano()
	}

	b.history = append(b.history, *event)
	if len(b.history) > b.historySize {
		b.history = b.history[len(b.history)-b.historySize:]
	}
	return id
}

// snapshotSubsLocked returns the current subscriber list. Caller must hold
// historyMu, which keeps this snapshot atomic with respect to
// SubscribeWithReplay's own history-read-plus-registration step.
func (b *Broadcaster) snapshotSubsLocked() []*Subscription {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()
	targets := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		targets = append(targets, sub)
	}
	return targets
}

// deliver sends event to sub under its own lock: a non-blocking send if
// there's room, else the subscription is force-closed as a slow consumer
// rather than ever blocking the publisher.
func (b *Broadcaster) deliver(sub *Subscription, event Event) {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return
	}

	select {
	case sub.events <- event:
		sub.lastID = event.ID
		sub.mu.Unlock()
	default:
		sub.closed = true
		sub.reason = "slow_consumer"
		close(sub.events)
		sub.mu.Unlock()
		b.unsubscribe(sub.id)
	}
}

// Subscribe registers a new subscription that will deliver events published
// after this call; the caller replays history up to lastSeenID separately
// via HistorySince. Because Subscribe and a later HistorySince call are not
// atomic with respect to Publish, a caller that needs the strict "no live
// event interleaved before replay completes" guarantee (spec 4.11/8) must
// use SubscribeWithReplay instead.
func (b *Broadcaster) Subscribe(lastSeenID uint64) *Subscription {
	sub, _ := b.subscribeLocked(lastSeenID)
	return sub
}

// SubscribeWithReplay registers a subscription and returns, in the same
// critical section, the exact history backlog (id > lastSeenID) as of the
// moment of registration. Publish cannot land between the two: it either
// completes entirely before this call (and its event is in the returned
// backlog, not delivered live) or entirely after (delivered live, not in
// the backlog) — eliminating the duplicate-or-missed-event window that a
// separate Subscribe + HistorySince pair would have.
func (b *Broadcaster) SubscribeWithReplay(lastSeenID uint64) (*Subscription, []Event) {
	return b.subscribeLocked(lastSeenID)
}

func (b *Broadcaster) subscribeLocked(lastSeenID uint64) (*Subscription, []Event) {
	sub := &Subscription{
		id:     b.nextSub.Add(1),
		b:      b,
		lastID: lastSeenID,
		events: make(chan Event, defaultSubscriptionBuffer),
	}

	b.historyMu.Lock()
	backlog := make([]Event, 0)
	for _, event := range b.history {
		if event.ID > lastSeenID {
			backlog = append(backlog, event)
		}
	}

	b.subsMu.Lock()
	b.subs[sub.id] = sub
	count := len(b.subs)
	b.subsMu.Unlock()
	b.historyMu.Unlock()

	if b.metrics != nil {
		b.metrics.SetBroadcasterSubscribers(count)
	}
	return sub, backlog
}

func (b *Broadcaster) unsubscribe(id uint64) {
	b.subsMu.Lock()
	delete(b.subs, id)
	count := len(b.subs)
	b.subsMu.Unlock()

	if b.metrics != nil {
		b.metrics.SetBroadcasterSubscribers(count)
	}
}

// HistorySince returns history entries with id > lastSeenID, in id order.
func (b *Broadcaster) HistorySince(lastSeenID uint64) []Event {
	b.historyMu.RLock()
	defer b.historyMu.RUnlock()

	out := make([]Event, 0)
	for _, event := range b.history {
		if event.ID > lastSeenID {
			out = append(out, event)
		}
	}
	return out
}

// SubscriberCount returns the current number of active subscriptions.
func (b *Broadcaster) SubscriberCount() int {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()
	return len(b.subs)
}
