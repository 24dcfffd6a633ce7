// Package cdc is the CDC Manager (C7): a single-writer fan-out from the
// Universal Graph's mutation events to a durable append-only stream and a
// best-effort real-time channel, plus an in-process handler registry and
// subscription API. Grounded on the teacher's internal/event/bus.go for
// the handler-registry shape (Subscribe/SubscribeMultiple, async
// dispatch) and internal/redis/redis.go for the stream/pub-sub transport.
package cdc

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"dev.helix.code/internal/codegraph/graph"
	"dev.helix.code/internal/logging"
	"dev.helix.code/internal/redis"
)

// HandlerFunc is an in-process hook invoked for every published event of
// the kind it was registered for with RegisterHandler (spec §4.7
// "register_handler"). The WebSocket broadcaster does not use it; it reads
// from a Subscription.
type HandlerFunc func(ctx context.Context, event graph.Event) error

// Filter narrows a Subscription or Replay to matching event kinds; an
// empty slice matches every kind.
type Filter struct {
	EventKinds []graph.EventKind
}

func (f Filter) matches(e graph.Event) bool {
	if len(f.EventKinds) == 0 {
		return true
	}
	for _, k := range f.EventKinds {
		if k == e.Kind {
			return true
		}
	}
	return false
}

// Subscription is an async iterator of events (spec §4.7 "subscribe(filter)
// -> async iterator of events"). Read Events until it is closed (Unsubscribe
// was called or the Manager shut down).
type Subscription struct {
	ID     string
	Events chan graph.Event
	filter Filter
}

const subscriptionBuffer = 64

// inboxCapacity bounds the queue between the graph's synchronous Publish
// call and this manager's background worker, per spec §9: "event
// publication is handed off to a bounded queue consumed by the CDC task,
// so the mutating caller does not block on network I/O to the stream."
const inboxCapacity = 1024

// Manager implements graph.EventSink and C7's publish/subscribe/replay
// surface. Durable writes are partitioned by event kind, one Redis stream
// per kind, per spec §4.7 "partitioned by event kind for replay".
type Manager struct {
	redis      *redis.Client
	streamBase string
	log        *logging.Logger

	inbox chan graph.Event

	handlersMu sync.RWMutex
	handlers   map[graph.EventKind][]HandlerFunc

	subsMu sync.Mutex
	subs   map[string]*Subscription
	nextID atomic.Int64

	wg     sync.WaitGroup
	closed atomic.Bool
}

// New builds a Manager. If redisClient is nil or disabled, durable writes
// and real-time publish are both no-ops; in-process subscribers and
// handlers still fire (useful for tests and CDC-disabled configurations).
func New(redisClient *redis.Client, streamBase string, log *logging.Logger) *Manager {
	m := &Manager{
		redis:      redisClient,
		streamBase: streamBase,
		log:        log,
		inbox:      make(chan graph.Event, inboxCapacity),
		handlers:   make(map[graph.EventKind][]HandlerFunc),
		subs:       make(map[string]*Subscription),
	}
	m.wg.Add(1)
	go m.drain()
	return m
}

// Publish implements graph.EventSink. It never touches the network: the
// event is enqueued onto the bounded inbox and this call returns
// immediately, so the Graph's writer lock is never held across I/O. A full
// inbox drops the event and logs stream-unavailable-style backpressure
// rather than blocking the caller.
func (m *Manager) Publish(ctx context.Context, event graph.Event) error {
	if m.closed.Load() {
		return fmt.Errorf("cdc: manager closed")
	}
	select {
	case m.inbox <- event:
		return nil
	default:
		if m.log != nil {
			m.log.Warn("cdc: inbox full, dropping event %d (%s)", event.EventID, event.Kind)
		}
		return fmt.Errorf("cdc: inbox full")
	}
}

// drain is the single background worker that actually performs durable
// writes, real-time publish, in-process fan-out, and handler dispatch.
func (m *Manager) drain() {
	defer m.wg.Done()
	for event := range m.inbox {
		m.deliver(event)
	}
}

func (m *Manager) deliver(event graph.Event) {
	ctx := context.Background()

	m.writeDurable(ctx, event)
	m.publishRealtime(ctx, event)
	m.fanOut(event)
	m.dispatchHandlers(ctx, event)
}

// writeDurable appends to the per-kind stream with a small bounded retry;
// a persistent failure is logged and the event is dropped from the
// durable stream only (spec §4.7, error kind `stream-unavailable`).
func (m *Manager) writeDurable(ctx context.Context, event graph.Event) {
	if m.redis == nil || !m.redis.IsEnabled() {
		return
	}
	fields, err := encodeFields(event)
	if err != nil {
		if m.log != nil {
			m.log.Error("cdc: encoding event %d for durable write: %v", event.EventID, err)
		}
		return
	}

	stream := m.streamFor(event.Kind)
	const maxAttempts = 3
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		writeCtx, cancel := context.WithTimeout(ctx, time.Second)
		_, lastErr = m.redis.XAdd(writeCtx, stream, fields)
		cancel()
		if lastErr == nil {
			return
		}
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	if m.log != nil {
		m.log.Warn("cdc: stream-unavailable, dropping event %d from durable stream: %v", event.EventID, lastErr)
	}
}

// publishRealtime is at-most-once by contract: a publish failure (or no
// subscriber listening) is not retried.
func (m *Manager) publishRealtime(ctx context.Context, event graph.Event) {
	if m.redis == nil || !m.redis.IsEnabled() {
		return
	}
	data, err := json.Marshal(wireEvent(event))
	if err != nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	_ = m.redis.Publish(pubCtx, m.channelName(), data)
}

func (m *Manager) fanOut(event graph.Event) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, sub := range m.subs {
		if !sub.filter.matches(event) {
			continue
		}
		select {
		case sub.Events <- event:
		default:
			// Slow subscriber: drop rather than block the shared
			// drain goroutine (real-time channel is at-most-once).
		}
	}
}

func (m *Manager) dispatchHandlers(ctx context.Context, event graph.Event) {
	m.handlersMu.RLock()
	handlers := append([]HandlerFunc(nil), m.handlers[event.Kind]...)
	m.handlersMu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, event); err != nil && m.log != nil {
			m.log.Error("cdc: handler for %s failed: %v", event.Kind, err)
		}
	}
}

// RegisterHandler adds an in-process hook invoked for every event of kind
// (spec §4.7 "register_handler"), mirroring the teacher's
// EventBus.Subscribe.
func (m *Manager) RegisterHandler(kind graph.EventKind, fn HandlerFunc) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	m.handlers[kind] = append(m.handlers[kind], fn)
}

// Subscribe registers a new in-process subscriber; it sees only events
// published after this call returns (spec §4.7). Call Unsubscribe when
// done to avoid leaking the channel and goroutine slot.
func (m *Manager) Subscribe(filter Filter) *Subscription {
	sub := &Subscription{
		ID:     fmt.Sprintf("sub-%d", m.nextID.Add(1)),
		Events: make(chan graph.Event, subscriptionBuffer),
		filter: filter,
	}
	m.subsMu.Lock()
	m.subs[sub.ID] = sub
	m.subsMu.Unlock()
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call more than
// once, and after Shutdown: only a sub still registered is closed. fanOut
// sends while holding subsMu, so no send can reach a channel closed here.
func (m *Manager) Unsubscribe(sub *Subscription) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	if _, ok := m.subs[sub.ID]; !ok {
		return
	}
	delete(m.subs, sub.ID)
	close(sub.Events)
}

// Replay reads events from the durable stream(s) matching filter, strictly
// after sinceID (exclusive), ordered by stream id (spec §4.7
// "replay(since_id, filter)"). sinceID="" replays from the beginning.
func (m *Manager) Replay(ctx context.Context, sinceID string, filter Filter, limit int64) ([]graph.Event, error) {
	if m.redis == nil || !m.redis.IsEnabled() {
		return nil, fmt.Errorf("cdc: durable stream unavailable")
	}

	kinds := filter.EventKinds
	if len(kinds) == 0 {
		kinds = []graph.EventKind{
			graph.EventNodeAdded, graph.EventNodeUpdated,
			graph.EventRelationshipAdded, graph.EventFileRemoved,
		}
	}

	var all []graph.Event
	for _, kind := range kinds {
		entries, err := m.redis.XRange(ctx, m.streamFor(kind), sinceID, limit)
		if err != nil {
			return nil, fmt.Errorf("cdc: replaying stream %s: %w", kind, err)
		}
		for _, entry := range entries {
			ev, err := decodeFields(entry.Fields)
			if err != nil {
				continue
			}
			all = append(all, ev)
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].EventID < all[j].EventID })
	return all, nil
}

// LiveTail blocks (per the redis.Client.XRead contract) waiting for new
// durable-stream entries past sinceIDs, one read per matching kind.
// Complements Replay's bounded historical read: a consumer that needs
// at-least-once delivery surviving its own restart (unlike the real-time
// channel's at-most-once fan-out) calls Replay once to catch up, then
// LiveTail in a loop, carrying forward the last id it saw per kind.
func (m *Manager) LiveTail(ctx context.Context, sinceIDs map[graph.EventKind]string, filter Filter, block time.Duration) ([]graph.Event, error) {
	if m.redis == nil || !m.redis.IsEnabled() {
		return nil, fmt.Errorf("cdc: durable stream unavailable")
	}

	kinds := filter.EventKinds
	if len(kinds) == 0 {
		kinds = []graph.EventKind{
			graph.EventNodeAdded, graph.EventNodeUpdated,
			graph.EventRelationshipAdded, graph.EventFileRemoved,
		}
	}

	var all []graph.Event
	for _, kind := range kinds {
		last := sinceIDs[kind]
		if last == "" {
			last = "$"
		}
		entries, err := m.redis.XRead(ctx, m.streamFor(kind), last, block)
		if err != nil {
			continue // timeout with no new entries; not a hard failure
		}
		for _, entry := range entries {
			ev, err := decodeFields(entry.Fields)
			if err != nil {
				continue
			}
			all = append(all, ev)
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].EventID < all[j].EventID })
	return all, nil
}

// Shutdown stops accepting new events and waits (up to the context
// deadline) for the in-flight inbox to drain.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(m.inbox)

	m.subsMu.Lock()
	for _, sub := range m.subs {
		close(sub.Events)
	}
	m.subs = make(map[string]*Subscription)
	m.subsMu.Unlock()

	done := make(chan struct{})
	go func() { m.wg.Wait(); close(done) }()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) streamFor(kind graph.EventKind) string {
	return fmt.Sprintf("%s:%s", m.streamBase, kind)
}

func (m *Manager) channelName() string {
	return m.streamBase + ":live"
}
