package graph

import (
	"sort"

	"dev.helix.code/internal/codegraph/model"
)

// TraverseMode selects breadth-first or depth-first order for Traverse.
type TraverseMode int

const (
	BFS TraverseMode = iota
	DFS
)

// TraverseResult is the outcome of one Traverse call.
type TraverseResult struct {
	Visited     []string
	EdgesWalked int
}

// Traverse walks from startID following outgoing edges, bounded by
// maxDepth. When kindFilter is non-empty only matching relationship kinds
// are followed. When followSeams is false, an edge whose endpoints have
// different languages is skipped (spec §4.5).
func (g *Graph) Traverse(startID string, mode TraverseMode, maxDepth int, kindFilter []model.RelationshipKind, followSeams bool) TraverseResult {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[startID]; !ok {
		return TraverseResult{}
	}

	allowed := kindSet(kindFilter)
	visited := map[string]struct{}{startID: {}}
	order := []string{startID}
	edgesWalked := 0

	type frame struct {
		id    string
		depth int
	}

	walkable := func(r *model.Relationship) bool {
		if len(allowed) > 0 {
			if _, ok := allowed[r.Kind]; !ok {
				return false
			}
		}
		if !followSeams && g.isSeam(*r) {
			return false
		}
		return true
	}

	switch mode {
	case BFS:
		queue := []frame{{startID, 0}}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if cur.depth >= maxDepth {
				continue
			}
			for relID := range g.outEdges[cur.id] {
				r := g.rels[relID]
				if r == nil || !walkable(r) {
					continue
				}
				edgesWalked++
				if _, seen := visited[r.TargetID]; seen {
					continue
				}
				visited[r.TargetID] = struct{}{}
				order = append(order, r.TargetID)
				queue = append(queue, frame{r.TargetID, cur.depth + 1})
			}
		}
	case DFS:
		var stack []frame
		stack = append(stack, frame{startID, 0})
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if cur.depth >= maxDepth {
				continue
			}
			for relID := range g.outEdges[cur.id] {
				r := g.rels[relID]
				if r == nil || !walkable(r) {
					continue
				}
				edgesWalked++
				if _, seen := visited[r.TargetID]; seen {
					continue
				}
				visited[r.TargetID] = struct{}{}
				order = append(order, r.TargetID)
				stack = append(stack, frame{r.TargetID, cur.depth + 1})
			}
		}
	}

	return TraverseResult{Visited: order, EdgesWalked: edgesWalked}
}

// NodeClass holds the degree and category flags for one node, computed by
// Classify.
type NodeClass struct {
	InDegree    int
	OutDegree   int
	EntryPoint  bool
	Hub         bool
	Leaf        bool
}

// ClassifyResult is Classify's memoized output.
type ClassifyResult struct {
	byNode map[string]NodeClass
}

// Get returns the class for id, or the zero value if id is unknown.
func (c *ClassifyResult) Get(id string) NodeClass { return c.byNode[id] }

// EntryPoints, Hubs, and Leaves return node ids matching each category,
// sorted by id.
func (c *ClassifyResult) EntryPoints() []string { return c.filterBy(func(n NodeClass) bool { return n.EntryPoint }) }
func (c *ClassifyResult) Hubs() []string         { return c.filterBy(func(n NodeClass) bool { return n.Hub }) }
func (c *ClassifyResult) Leaves() []string       { return c.filterBy(func(n NodeClass) bool { return n.Leaf }) }

func (c *ClassifyResult) filterBy(pred func(NodeClass) bool) []string {
	var out []string
	for id, nc := range c.byNode {
		if pred(nc) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Classify computes in/out degree and category flags for every node,
// memoized until the next structural mutation (spec §4.5). entry-point:
// in_degree == 0 and not a stdlib-import node. hub: combined degree at or
// above hubPercentile. leaf: out_degree == 0, excluding container kinds.
func (g *Graph) Classify(isStdlibImport func(n model.Node) bool) *ClassifyResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.classifyDirty && g.classifyCache != nil {
		return g.classifyCache
	}

	byNode := make(map[string]NodeClass, len(g.nodes))
	degrees := make([]int, 0, len(g.nodes))

	for id := range g.nodes {
		in := len(g.inEdges[id])
		out := len(g.outEdges[id])
		byNode[id] = NodeClass{InDegree: in, OutDegree: out}
		degrees = append(degrees, in+out)
	}

	threshold := percentile(degrees, g.hubPercentile)

	for id, n := range g.nodes {
		nc := byNode[id]
		nc.EntryPoint = nc.InDegree == 0 && !(isStdlibImport != nil && isStdlibImport(*n))
		nc.Hub = float64(nc.InDegree+nc.OutDegree) >= threshold
		nc.Leaf = nc.OutDegree == 0 && !n.Kind.IsContainer()
		byNode[id] = nc
	}

	result := &ClassifyResult{byNode: byNode}
	g.classifyCache = result
	g.classifyDirty = false
	return result
}

// percentile returns the value at the given percentile (0..1) of values
// using nearest-rank interpolation over a sorted copy.
func percentile(values []int, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	idx := int(p * float64(len(sorted)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return float64(sorted[idx])
}

// CallChainPath is one path discovered by CallChain.
type CallChainPath struct {
	NodeIDs []string
}

// CallChain performs a DFS from startID following only `calls` edges,
// collecting unique node-sequence paths up to maxDepth (default 10 if <=
// 0), ordered shortest-first (spec §4.5).
func (g *Graph) CallChain(startID string, maxDepth int) []CallChainPath {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if maxDepth <= 0 {
		maxDepth = 10
	}
	if _, ok := g.nodes[startID]; !ok {
		return nil
	}

	var paths []CallChainPath
	seen := make(map[string]struct{})

	var dfs func(path []string, visiting map[string]struct{})
	dfs = func(path []string, visiting map[string]struct{}) {
		cur := path[len(path)-1]
		extended := false

		if len(path) <= maxDepth {
			for relID := range g.outEdges[cur] {
				r := g.rels[relID]
				if r == nil || r.Kind != model.RelCalls {
					continue
				}
				if _, cyc := visiting[r.TargetID]; cyc {
					continue
				}
				extended = true
				next := append(append([]string(nil), path...), r.TargetID)
				visiting[r.TargetID] = struct{}{}
				dfs(next, visiting)
				delete(visiting, r.TargetID)
			}
		}

		if !extended && len(path) > 1 {
			key := pathKey(path)
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				paths = append(paths, CallChainPath{NodeIDs: path})
			}
		}
	}

	dfs([]string{startID}, map[string]struct{}{startID: {}})

	sort.Slice(paths, func(i, j int) bool { return len(paths[i].NodeIDs) < len(paths[j].NodeIDs) })
	return paths
}

func pathKey(path []string) string {
	key := ""
	for _, id := range path {
		key += id + "\x00"
	}
	return key
}

// Subgraph returns the induced subgraph within depth hops of centerID,
// capped at limit nodes (spec §4.5).
func (g *Graph) Subgraph(centerID string, depth, limit int) ([]model.Node, []model.Relationship) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[centerID]; !ok {
		return nil, nil
	}

	type frame struct {
		id    string
		depth int
	}
	visited := map[string]struct{}{centerID: {}}
	queue := []frame{{centerID, 0}}

	for len(queue) > 0 && len(visited) < limit {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= depth {
			continue
		}
		for relID := range g.outEdges[cur.id] {
			r := g.rels[relID]
			if r == nil {
				continue
			}
			if _, seen := visited[r.TargetID]; !seen && len(visited) < limit {
				visited[r.TargetID] = struct{}{}
				queue = append(queue, frame{r.TargetID, cur.depth + 1})
			}
		}
		for relID := range g.inEdges[cur.id] {
			r := g.rels[relID]
			if r == nil {
				continue
			}
			if _, seen := visited[r.SourceID]; !seen && len(visited) < limit {
				visited[r.SourceID] = struct{}{}
				queue = append(queue, frame{r.SourceID, cur.depth + 1})
			}
		}
	}

	nodes := make([]model.Node, 0, len(visited))
	for id := range visited {
		nodes = append(nodes, *g.nodes[id])
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	var rels []model.Relationship
	for _, r := range g.rels {
		_, srcIn := visited[r.SourceID]
		_, tgtIn := visited[r.TargetID]
		if srcIn && tgtIn {
			rels = append(rels, *r)
		}
	}
	sort.Slice(rels, func(i, j int) bool { return rels[i].ID < rels[j].ID })

	return nodes, rels
}

// DetectCycles runs Tarjan's strongly-connected-components algorithm over
// `calls` edges only, returning every SCC of size > 1 (a true cycle) plus
// any single node with a self-loop (spec §4.5 "Cycle detection").
func (g *Graph) DetectCycles() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	type tarjanState struct {
		index   map[string]int
		low     map[string]int
		onStack map[string]bool
		stack   []string
		counter int
		sccs    [][]string
	}
	st := &tarjanState{
		index:   make(map[string]int),
		low:     make(map[string]int),
		onStack: make(map[string]bool),
	}

	callSuccessors := func(id string) []string {
		var out []string
		for relID := range g.outEdges[id] {
			if r := g.rels[relID]; r != nil && r.Kind == model.RelCalls {
				out = append(out, r.TargetID)
			}
		}
		return out
	}

	var strongconnect func(v string)
	strongconnect = func(v string) {
		st.index[v] = st.counter
		st.low[v] = st.counter
		st.counter++
		st.stack = append(st.stack, v)
		st.onStack[v] = true

		for _, w := range callSuccessors(v) {
			if _, ok := g.nodes[w]; !ok {
				continue // unresolved target, no SCC membership
			}
			if _, visited := st.index[w]; !visited {
				strongconnect(w)
				if st.low[w] < st.low[v] {
					st.low[v] = st.low[w]
				}
			} else if st.onStack[w] {
				if st.index[w] < st.low[v] {
					st.low[v] = st.index[w]
				}
			}
		}

		if st.low[v] == st.index[v] {
			var scc []string
			for {
				n := len(st.stack) - 1
				w := st.stack[n]
				st.stack = st.stack[:n]
				st.onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			if len(scc) > 1 || hasSelfLoop(g, v) {
				st.sccs = append(st.sccs, scc)
			}
		}
	}

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if _, visited := st.index[id]; !visited {
			strongconnect(id)
		}
	}

	return st.sccs
}

func hasSelfLoop(g *Graph, id string) bool {
	for relID := range g.outEdges[id] {
		if r := g.rels[relID]; r != nil && r.Kind == model.RelCalls && r.TargetID == id {
			return true
		}
	}
	return false
}
