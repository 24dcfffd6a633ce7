// Package query is the Query Engine (C6): a thin, paginated read layer over
// the Universal Graph. New code — the teacher has no graph to query — but
// the pagination idiom (limit/offset/total/has_more) is grounded on the
// list-style endpoints the teacher's HTTP layer used to expose before that
// layer was trimmed as out-of-scope serving infrastructure (spec §6).
package query

import (
	"path/filepath"
	"sort"
	"strings"

	"dev.helix.code/internal/codegraph/graph"
	"dev.helix.code/internal/codegraph/lang"
	"dev.helix.code/internal/codegraph/model"
)

// Page is the pagination envelope every list-returning operation returns
// (spec §4.6 "Pagination contract" — non-negotiable).
type Page struct {
	Total   int    `json:"total"`
	Offset  int    `json:"offset"`
	Limit   int    `json:"limit"`
	HasMore bool   `json:"has_more"`
	Items   []Item `json:"items"`
}

// Item is one row of a query result: enough of a node's identity to act on
// without a second round-trip to the graph.
type Item struct {
	NodeID   string `json:"node_id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Language string `json:"language"`
	FilePath string `json:"file_path"`
}

func itemOf(n model.Node) Item {
	return Item{NodeID: n.ID, Name: n.Name, Kind: n.Kind.String(), Language: n.Language, FilePath: n.Location.FilePath}
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

// paginate slices a pre-sorted, deterministically-ordered id list into one
// page without ever materializing a second copy of the full result set.
// limit/offset bounds come from the Engine's configured defaultLimit/
// maxLimit (spec §4.6 / §6 "pagination_default_limit"/"pagination_max_limit").
func (e *Engine) paginate(ids []string, limit, offset int) Page {
	limit = e.clampLimit(limit)
	offset = clampOffset(offset)
	g := e.g
	total := len(ids)

	page := Page{Total: total, Offset: offset, Limit: limit}
	if offset >= total {
		page.HasMore = false
		return page
	}

	end := offset + limit
	if end > total {
		end = total
	}
	page.HasMore = end < total

	items := make([]Item, 0, end-offset)
	for _, id := range ids[offset:end] {
		if n, ok := g.GetNode(id); ok {
			items = append(items, itemOf(n))
		}
	}
	page.Items = items
	return page
}

// Engine answers high-level questions against one Graph.
type Engine struct {
	g            *graph.Graph
	defaultLimit int
	maxLimit     int
}

// New builds a query Engine over g, with pagination bounds taken from
// configuration (spec §6 "pagination_default_limit"/"pagination_max_limit")
// rather than hardcoded constants. Non-positive values fall back to 50/500.
func New(g *graph.Graph, defaultLimit, maxLimit int) *Engine {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	if maxLimit <= 0 {
		maxLimit = 500
	}
	return &Engine{g: g, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// clampLimit enforces spec §4.6: limit in [1, maxLimit], defaultLimit when
// unset (<=0).
func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		return e.defaultLimit
	}
	if limit > e.maxLimit {
		return e.maxLimit
	}
	return limit
}

// resolveSymbol finds every node whose name matches symbol, optionally
// narrowed to fileHint (spec §4.6: "resolve symbol -> candidate nodes by
// name and optional file hint"). Call-edge resolution is not type-aware
// (open question, see DESIGN.md): a method and a free function sharing a
// name both resolve.
func (e *Engine) resolveSymbol(symbol, fileHint string) []string {
	fileHint = normalizeFileHint(fileHint)
	var ids []string
	for _, n := range e.allNodes() {
		if n.Name != symbol {
			continue
		}
		if fileHint != "" && n.Location.FilePath != fileHint {
			continue
		}
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)
	return ids
}

func (e *Engine) allNodes() []model.Node {
	return e.g.AllNodes()
}

// FindCallers returns nodes with a `calls` edge targeting symbol (optionally
// scoped to fileHint), paginated.
func (e *Engine) FindCallers(symbol, fileHint string, limit, offset int) Page {
	return e.incidentOn(symbol, fileHint, model.RelCalls, graph.Incoming, limit, offset)
}

// FindCallees returns nodes targeted by a `calls` edge from symbol.
func (e *Engine) FindCallees(symbol, fileHint string, limit, offset int) Page {
	return e.incidentOn(symbol, fileHint, model.RelCalls, graph.Outgoing, limit, offset)
}

// FindReferences returns nodes with a `references` edge to symbol.
func (e *Engine) FindReferences(symbol, fileHint string, limit, offset int) Page {
	return e.incidentOn(symbol, fileHint, model.RelReferences, graph.Incoming, limit, offset)
}

func (e *Engine) incidentOn(symbol, fileHint string, kind model.RelationshipKind, dir graph.Direction, limit, offset int) Page {
	targets := e.resolveSymbol(symbol, fileHint)
	seen := make(map[string]struct{})
	var ids []string
	for _, t := range targets {
		for _, neighbor := range e.g.Neighbors(t, dir, []model.RelationshipKind{kind}) {
			if _, dup := seen[neighbor]; dup {
				continue
			}
			seen[neighbor] = struct{}{}
			ids = append(ids, neighbor)
		}
	}
	sort.Strings(ids)
	return e.paginate(ids, limit, offset)
}

// Category is a find_by_category selector (spec §4.6).
type Category string

const (
	CategoryEntryPoints Category = "entry-points"
	CategoryHubs        Category = "hubs"
	CategoryLeaves      Category = "leaves"
)

// FindByCategory reads classify() output for category, filtering stdlib
// imports out of the entry-points category (an import node can look like an
// entry point by in-degree alone; it never is one).
func (e *Engine) FindByCategory(category Category, limit, offset int) Page {
	result := e.g.Classify(isStdlibImportNode)

	var ids []string
	switch category {
	case CategoryEntryPoints:
		ids = result.EntryPoints()
	case CategoryHubs:
		ids = result.Hubs()
	case CategoryLeaves:
		ids = result.Leaves()
	}
	return e.paginate(ids, limit, offset)
}

func isStdlibImportNode(n model.Node) bool {
	return n.Kind == model.KindImport && lang.IsStdlib(n.Language, n.Name)
}

// SearchNodes matches nodes by a shell-style name glob, with optional
// language/kind filters.
func (e *Engine) SearchNodes(nameGlob, language string, kind model.NodeKind, limit int) Page {
	var ids []string
	for _, n := range e.allNodes() {
		if language != "" && n.Language != language {
			continue
		}
		if kind != "" && n.Kind != kind {
			continue
		}
		if nameGlob != "" {
			matched, err := filepath.Match(nameGlob, n.Name)
			if err != nil || !matched {
				continue
			}
		}
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)
	return e.paginate(ids, limit, 0)
}

// normalizeFileHint lets callers pass either a bare name or a path; kept as
// a small helper so CLI/serving-layer callers do not need to duplicate
// path-cleaning logic.
func normalizeFileHint(hint string) string {
	if hint == "" {
		return ""
	}
	return filepath.ToSlash(strings.TrimPrefix(hint, "./"))
}
