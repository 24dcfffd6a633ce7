// Package graph is the Universal Graph (C5): a typed directed multigraph
// over C4's output. A single writer lock serializes structural mutations;
// reads take a reader lock and observe a consistent snapshot for the
// duration of one operation (spec §5). Grounded on the teacher's
// mutex-guarded manager structs (e.g. internal/repomap.RepoMap), since
// nothing in the teacher implements a graph directly.
package graph

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"dev.helix.code/internal/codegraph/model"
)

// Graph is C5. All fields are protected by mu except the lock-free event
// id counter.
type Graph struct {
	mu sync.RWMutex

	nodes map[string]*model.Node
	rels  map[string]*model.Relationship

	outEdges  map[string]map[string]struct{} // source node id -> relationship ids
	inEdges   map[string]map[string]struct{} // target node id -> relationship ids
	fileIndex map[string]map[string]struct{} // file path -> node ids declared there

	eventCounter atomic.Int64
	sink         EventSink

	hubPercentile float64
	classifyCache *ClassifyResult
	classifyDirty bool
}

// New builds an empty Graph. sink receives every mutation event
// synchronously; pass graph.NopSink{} if CDC is disabled. hubPercentile is
// the degree-percentile threshold for hub classification (spec default
// 0.95).
func New(sink EventSink, hubPercentile float64) *Graph {
	if sink == nil {
		sink = NopSink{}
	}
	return &Graph{
		nodes:         make(map[string]*model.Node),
		rels:          make(map[string]*model.Relationship),
		outEdges:      make(map[string]map[string]struct{}),
		inEdges:       make(map[string]map[string]struct{}),
		fileIndex:     make(map[string]map[string]struct{}),
		sink:          sink,
		hubPercentile: hubPercentile,
		classifyDirty: true,
	}
}

func (g *Graph) nextEventID() int64 { return g.eventCounter.Add(1) }

func (g *Graph) emit(ctx context.Context, ev Event) {
	ev.EventID = g.nextEventID()
	ev.Timestamp = time.Now()
	// Errors are the sink's concern (stream-unavailable degrades that
	// tier only); the graph never fails a mutation because CDC delivery
	// failed.
	_ = g.sink.Publish(ctx, ev)
}

// AddNode inserts or updates a node. Idempotent on id: re-adding the same
// id updates the node in place and preserves incident edges (invariant 2).
func (g *Graph) AddNode(ctx context.Context, n *model.Node) {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, existed := g.nodes[n.ID]
	cp := *n
	g.nodes[n.ID] = &cp

	if g.fileIndex[n.Location.FilePath] == nil {
		g.fileIndex[n.Location.FilePath] = make(map[string]struct{})
	}
	g.fileIndex[n.Location.FilePath][n.ID] = struct{}{}

	g.classifyDirty = true

	kind := EventNodeAdded
	if existed {
		kind = EventNodeUpdated
	}
	g.emit(ctx, Event{Kind: kind, EntityID: n.ID, FilePath: n.Location.FilePath,
		Payload: map[string]interface{}{"name": n.Name, "kind": n.Kind.String()}})
}

// AddRelationship inserts an edge. Requires both endpoints present, or the
// target to be an unresolved placeholder (invariant 1). Idempotent on id:
// a repeat add is a silent no-op and emits no event (invariant 5).
func (g *Graph) AddRelationship(ctx context.Context, r *model.Relationship) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.rels[r.ID]; exists {
		return nil
	}

	if _, ok := g.nodes[r.SourceID]; !ok {
		return fmt.Errorf("invariant-violation: relationship %s: source %s not in graph", r.ID, r.SourceID)
	}
	if _, ok := g.nodes[r.TargetID]; !ok && !model.IsUnresolved(r.TargetID) {
		return fmt.Errorf("invariant-violation: relationship %s: target %s not in graph and not unresolved", r.ID, r.TargetID)
	}

	cp := *r
	g.rels[r.ID] = &cp

	if g.outEdges[r.SourceID] == nil {
		g.outEdges[r.SourceID] = make(map[string]struct{})
	}
	g.outEdges[r.SourceID][r.ID] = struct{}{}

	if g.inEdges[r.TargetID] == nil {
		g.inEdges[r.TargetID] = make(map[string]struct{})
	}
	g.inEdges[r.TargetID][r.ID] = struct{}{}

	g.classifyDirty = true

	g.emit(ctx, Event{Kind: EventRelationshipAdded, EntityID: r.ID,
		Payload: map[string]interface{}{"source_id": r.SourceID, "target_id": r.TargetID, "kind": r.Kind.String()}})
	return nil
}

// RemoveFile atomically removes every node declared in filePath and every
// edge incident on any of them, then emits exactly one file-removed event
// carrying the counts (spec §4.5 — "critical: consumers expect a single
// invalidation boundary per reparse").
func (g *Graph) RemoveFile(ctx context.Context, filePath string) (nodesRemoved, relsRemoved int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	nodeIDs := g.fileIndex[filePath]
	if len(nodeIDs) == 0 {
		g.emit(ctx, Event{Kind: EventFileRemoved, FilePath: filePath,
			Payload: map[string]interface{}{"nodes_removed": 0, "relationships_removed": 0}})
		return 0, 0
	}

	removedRelIDs := make(map[string]struct{})
	for nodeID := range nodeIDs {
		for relID := range g.outEdges[nodeID] {
			removedRelIDs[relID] = struct{}{}
		}
		for relID := range g.inEdges[nodeID] {
			removedRelIDs[relID] = struct{}{}
		}
	}

	for relID := range removedRelIDs {
		rel := g.rels[relID]
		if rel == nil {
			continue
		}
		delete(g.outEdges[rel.SourceID], relID)
		delete(g.inEdges[rel.TargetID], relID)
		delete(g.rels, relID)
	}

	for nodeID := range nodeIDs {
		delete(g.nodes, nodeID)
		delete(g.outEdges, nodeID)
		delete(g.inEdges, nodeID)
	}
	delete(g.fileIndex, filePath)

	g.classifyDirty = true

	nodesRemoved, relsRemoved = len(nodeIDs), len(removedRelIDs)
	g.emit(ctx, Event{Kind: EventFileRemoved, FilePath: filePath,
		Payload: map[string]interface{}{"nodes_removed": nodesRemoved, "relationships_removed": relsRemoved}})
	return nodesRemoved, relsRemoved
}

// GetNode returns a copy of the node with id, or false if absent.
func (g *Graph) GetNode(id string) (model.Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return model.Node{}, false
	}
	return *n, true
}

// NodesInFile returns the ids of every node declared in filePath
// (invariant 2's "nodes_in(f)" operation).
func (g *Graph) NodesInFile(filePath string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, 0, len(g.fileIndex[filePath]))
	for id := range g.fileIndex[filePath] {
		ids = append(ids, id)
	}
	return ids
}

// RelationshipFilter selects relationships by optional source, target, and
// kind; a nil/empty field is a wildcard.
type RelationshipFilter struct {
	Source string
	Target string
	Kind   model.RelationshipKind
}

// GetRelationships returns every relationship matching the filter.
func (g *Graph) GetRelationships(f RelationshipFilter) []model.Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []model.Relationship
	switch {
	case f.Source != "":
		for relID := range g.outEdges[f.Source] {
			if r := g.rels[relID]; r != nil && matches(r, f) {
				out = append(out, *r)
			}
		}
	case f.Target != "":
		for relID := range g.inEdges[f.Target] {
			if r := g.rels[relID]; r != nil && matches(r, f) {
				out = append(out, *r)
			}
		}
	default:
		for _, r := range g.rels {
			if matches(r, f) {
				out = append(out, *r)
			}
		}
	}
	return out
}

func matches(r *model.Relationship, f RelationshipFilter) bool {
	if f.Source != "" && r.SourceID != f.Source {
		return false
	}
	if f.Target != "" && r.TargetID != f.Target {
		return false
	}
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	return true
}

// Direction selects which adjacency index Neighbors walks.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Both
)

// Neighbors returns the node ids reachable by one hop from id in the given
// direction, optionally filtered by relationship kind.
func (g *Graph) Neighbors(id string, dir Direction, kindFilter []model.RelationshipKind) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	allowed := kindSet(kindFilter)
	seen := make(map[string]struct{})
	var out []string

	add := func(relID string, endpoint func(*model.Relationship) string) {
		r := g.rels[relID]
		if r == nil {
			return
		}
		if len(allowed) > 0 {
			if _, ok := allowed[r.Kind]; !ok {
				return
			}
		}
		other := endpoint(r)
		if _, dup := seen[other]; dup {
			return
		}
		seen[other] = struct{}{}
		out = append(out, other)
	}

	if dir == Outgoing || dir == Both {
		for relID := range g.outEdges[id] {
			add(relID, func(r *model.Relationship) string { return r.TargetID })
		}
	}
	if dir == Incoming || dir == Both {
		for relID := range g.inEdges[id] {
			add(relID, func(r *model.Relationship) string { return r.SourceID })
		}
	}
	return out
}

func kindSet(kinds []model.RelationshipKind) map[model.RelationshipKind]struct{} {
	if len(kinds) == 0 {
		return nil
	}
	m := make(map[model.RelationshipKind]struct{}, len(kinds))
	for _, k := range kinds {
		m[k] = struct{}{}
	}
	return m
}

// AllNodes returns a copy of every node currently in the graph, in no
// particular order. Used by the query engine's glob search and symbol
// resolution, which must scan by name rather than by id.
func (g *Graph) AllNodes() []model.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]model.Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, *n)
	}
	return out
}

// NodeCount and RelationshipCount support operational metrics/tests.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

func (g *Graph) RelationshipCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rels)
}

// isSeam reports whether a relationship crosses a language boundary (spec
// §3's computed, not stored, "seam" kind).
func (g *Graph) isSeam(r model.Relationship) bool {
	src, srcOK := g.nodes[r.SourceID]
	tgt, tgtOK := g.nodes[r.TargetID]
	if !srcOK || !tgtOK {
		return false
	}
	return src.Language != tgt.Language
}
