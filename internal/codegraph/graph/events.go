package graph

import (
	"context"
	"time"
)

// EventKind enumerates the mutation event kinds C5 emits.
type EventKind string

const (
	EventNodeAdded         EventKind = "node-added"
	EventNodeUpdated       EventKind = "node-updated"
	EventRelationshipAdded EventKind = "relationship-added"
	EventFileRemoved       EventKind = "file-removed"
)

// Event is the record handed to C7 for exactly one structural change
// (spec §4.5 "Mutation events"). EventID is monotonic within one Graph.
type Event struct {
	EventID   int64                  `json:"event_id"`
	Kind      EventKind              `json:"kind"`
	EntityID  string                 `json:"entity_id,omitempty"`
	FilePath  string                 `json:"file_path,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// EventSink is the CDC Manager's ingestion point (C7). The graph hands
// every event to the sink synchronously, before the mutating call
// returns, per spec §4.5 — it is the sink's job (a bounded queue internal
// to C7) to avoid blocking the graph's writer lock on network I/O.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}

// NopSink discards every event; used when a Graph is constructed without
// CDC wiring (e.g. in tests).
type NopSink struct{}

func (NopSink) Publish(ctx context.Context, event Event) error { return nil }
