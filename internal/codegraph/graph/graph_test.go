package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dev.helix.code/internal/codegraph/model"
)

func fn(file, name string, line int) *model.Node {
	return model.NewNode(file, model.KindFunction, name, "go", model.Location{FilePath: file, StartLine: line})
}

// TestGraph_SingleFileCallGraph checks a simple call chain a -> b -> c:
// neighbor lookups in both directions and a BFS traversal all agree.
func TestGraph_SingleFileCallGraph(t *testing.T) {
	g := New(NopSink{}, 0.95)
	ctx := context.Background()

	a, b, c := fn("a.go", "a", 1), fn("a.go", "b", 2), fn("a.go", "c", 3)
	g.AddNode(ctx, a)
	g.AddNode(ctx, b)
	g.AddNode(ctx, c)

	require.NoError(t, g.AddRelationship(ctx, model.NewRelationship(a.ID, b.ID, model.RelCalls)))
	require.NoError(t, g.AddRelationship(ctx, model.NewRelationship(b.ID, c.ID, model.RelCalls)))

	callees := g.Neighbors(a.ID, Outgoing, []model.RelationshipKind{model.RelCalls})
	assert.Equal(t, []string{b.ID}, callees)

	callers := g.Neighbors(c.ID, Incoming, []model.RelationshipKind{model.RelCalls})
	assert.Equal(t, []string{b.ID}, callers)

	result := g.Traverse(a.ID, BFS, 10, []model.RelationshipKind{model.RelCalls}, true)
	assert.ElementsMatch(t, []string{a.ID, b.ID, c.ID}, result.Visited)
}

// TestGraph_CrossFileImportAndCall checks that an import edge and a call
// edge spanning two files are each queryable independently.
func TestGraph_CrossFileImportAndCall(t *testing.T) {
	g := New(NopSink{}, 0.95)
	ctx := context.Background()

	file1 := model.NewNode("file1.go", model.KindFile, "file1.go", "go", model.Location{FilePath: "file1.go"})
	x := fn("file1.go", "x", 2)
	file2 := model.NewNode("file2.go", model.KindFile, "file2.go", "go", model.Location{FilePath: "file2.go"})
	y := fn("file2.go", "y", 2)

	for _, n := range []*model.Node{file1, x, file2, y} {
		g.AddNode(ctx, n)
	}

	require.NoError(t, g.AddRelationship(ctx, model.NewRelationship(file2.ID, file1.ID, model.RelImports)))
	require.NoError(t, g.AddRelationship(ctx, model.NewRelationship(y.ID, x.ID, model.RelCalls)))

	imports := g.GetRelationships(RelationshipFilter{Source: file2.ID, Kind: model.RelImports})
	require.Len(t, imports, 1)
	assert.Equal(t, file1.ID, imports[0].TargetID)

	calls := g.GetRelationships(RelationshipFilter{Source: y.ID, Kind: model.RelCalls})
	require.Len(t, calls, 1)
	assert.Equal(t, x.ID, calls[0].TargetID)
}

// TestGraph_FileScopedInvalidation checks that removing a file drops only
// the nodes/relationships owned by that file.
func TestGraph_FileScopedInvalidation(t *testing.T) {
	g := New(NopSink{}, 0.95)
	ctx := context.Background()

	x := fn("file1.go", "x", 1)
	y := fn("file2.go", "y", 1)
	g.AddNode(ctx, x)
	g.AddNode(ctx, y)
	require.NoError(t, g.AddRelationship(ctx, model.NewRelationship(y.ID, x.ID, model.RelCalls)))

	nodesRemoved, relsRemoved := g.RemoveFile(ctx, "file2.go")
	assert.Equal(t, 1, nodesRemoved)
	assert.Equal(t, 1, relsRemoved)

	callers := g.GetRelationships(RelationshipFilter{Target: x.ID, Kind: model.RelCalls})
	assert.Empty(t, callers)

	stillThere, ok := g.GetNode(x.ID)
	require.True(t, ok)
	assert.Equal(t, "x", stillThere.Name)

	_, ok = g.GetNode(y.ID)
	assert.False(t, ok)
}

func TestGraph_AddRelationship_UnresolvedTargetAllowed(t *testing.T) {
	g := New(NopSink{}, 0.95)
	ctx := context.Background()
	a := fn("a.go", "a", 1)
	g.AddNode(ctx, a)

	rel := model.NewRelationship(a.ID, model.UnresolvedTargetID("mystery"), model.RelCalls)
	assert.NoError(t, g.AddRelationship(ctx, rel))
}

func TestGraph_AddRelationship_UnknownEndpointRejected(t *testing.T) {
	g := New(NopSink{}, 0.95)
	ctx := context.Background()
	a := fn("a.go", "a", 1)
	g.AddNode(ctx, a)

	rel := model.NewRelationship(a.ID, "does-not-exist", model.RelCalls)
	assert.Error(t, g.AddRelationship(ctx, rel))
}

// countingSink tallies published events by kind.
type countingSink struct{ counts map[EventKind]int }

func (s *countingSink) Publish(_ context.Context, ev Event) error {
	s.counts[ev.Kind]++
	return nil
}

func TestGraph_AddRelationship_IdempotentNoDuplicateEvent(t *testing.T) {
	sink := &countingSink{counts: make(map[EventKind]int)}
	g := New(sink, 0.95)
	ctx := context.Background()
	a, b := fn("a.go", "a", 1), fn("a.go", "b", 2)
	g.AddNode(ctx, a)
	g.AddNode(ctx, b)

	rel := model.NewRelationship(a.ID, b.ID, model.RelCalls)
	require.NoError(t, g.AddRelationship(ctx, rel))
	require.NoError(t, g.AddRelationship(ctx, rel))

	assert.Equal(t, 1, g.RelationshipCount())
	assert.Equal(t, 1, sink.counts[EventRelationshipAdded])
}

func TestGraph_AddNode_IdempotentPreservesEdges(t *testing.T) {
	g := New(NopSink{}, 0.95)
	ctx := context.Background()
	a, b := fn("a.go", "a", 1), fn("a.go", "b", 2)
	g.AddNode(ctx, a)
	g.AddNode(ctx, b)
	require.NoError(t, g.AddRelationship(ctx, model.NewRelationship(a.ID, b.ID, model.RelCalls)))

	updated := fn("a.go", "a", 1)
	updated.Complexity = 5
	g.AddNode(ctx, updated)

	rels := g.GetRelationships(RelationshipFilter{Source: a.ID})
	assert.Len(t, rels, 1)

	n, ok := g.GetNode(a.ID)
	require.True(t, ok)
	assert.Equal(t, 5, n.Complexity)
}

func TestGraph_RemoveFile_Empty(t *testing.T) {
	g := New(NopSink{}, 0.95)
	nodesRemoved, relsRemoved := g.RemoveFile(context.Background(), "nope.go")
	assert.Equal(t, 0, nodesRemoved)
	assert.Equal(t, 0, relsRemoved)
}

func TestGraph_Classify_EntryPointHubLeaf(t *testing.T) {
	g := New(NopSink{}, 0.5)
	ctx := context.Background()

	entry := fn("a.go", "entry", 1)
	hub := fn("a.go", "hub", 2)
	leaf := fn("a.go", "leaf", 3)
	g.AddNode(ctx, entry)
	g.AddNode(ctx, hub)
	g.AddNode(ctx, leaf)

	require.NoError(t, g.AddRelationship(ctx, model.NewRelationship(entry.ID, hub.ID, model.RelCalls)))
	require.NoError(t, g.AddRelationship(ctx, model.NewRelationship(hub.ID, leaf.ID, model.RelCalls)))

	result := g.Classify(nil)

	entryClass := result.Get(entry.ID)
	assert.True(t, entryClass.EntryPoint)
	assert.Equal(t, 0, entryClass.InDegree)

	leafClass := result.Get(leaf.ID)
	assert.True(t, leafClass.Leaf)
	assert.Equal(t, 0, leafClass.OutDegree)
}

func TestGraph_CallChain_LinearPath(t *testing.T) {
	g := New(NopSink{}, 0.95)
	ctx := context.Background()
	a, b, c := fn("a.go", "a", 1), fn("a.go", "b", 2), fn("a.go", "c", 3)
	g.AddNode(ctx, a)
	g.AddNode(ctx, b)
	g.AddNode(ctx, c)
	require.NoError(t, g.AddRelationship(ctx, model.NewRelationship(a.ID, b.ID, model.RelCalls)))
	require.NoError(t, g.AddRelationship(ctx, model.NewRelationship(b.ID, c.ID, model.RelCalls)))

	paths := g.CallChain(a.ID, 10)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, paths[0].NodeIDs)
}

func TestGraph_CallChain_HandlesCycles(t *testing.T) {
	g := New(NopSink{}, 0.95)
	ctx := context.Background()
	a, b := fn("a.go", "a", 1), fn("a.go", "b", 2)
	g.AddNode(ctx, a)
	g.AddNode(ctx, b)
	require.NoError(t, g.AddRelationship(ctx, model.NewRelationship(a.ID, b.ID, model.RelCalls)))
	require.NoError(t, g.AddRelationship(ctx, model.NewRelationship(b.ID, a.ID, model.RelCalls)))

	paths := g.CallChain(a.ID, 10)
	require.NotEmpty(t, paths)
}

func TestGraph_Subgraph_RespectsLimit(t *testing.T) {
	g := New(NopSink{}, 0.95)
	ctx := context.Background()
	a, b, c := fn("a.go", "a", 1), fn("a.go", "b", 2), fn("a.go", "c", 3)
	g.AddNode(ctx, a)
	g.AddNode(ctx, b)
	g.AddNode(ctx, c)
	require.NoError(t, g.AddRelationship(ctx, model.NewRelationship(a.ID, b.ID, model.RelCalls)))
	require.NoError(t, g.AddRelationship(ctx, model.NewRelationship(b.ID, c.ID, model.RelCalls)))

	nodes, _ := g.Subgraph(a.ID, 10, 2)
	assert.Len(t, nodes, 2)
}

func TestGraph_DetectCycles_FindsSelfLoopAndMutualRecursion(t *testing.T) {
	g := New(NopSink{}, 0.95)
	ctx := context.Background()
	a, b, loop := fn("a.go", "a", 1), fn("a.go", "b", 2), fn("a.go", "loop", 3)
	g.AddNode(ctx, a)
	g.AddNode(ctx, b)
	g.AddNode(ctx, loop)

	require.NoError(t, g.AddRelationship(ctx, model.NewRelationship(a.ID, b.ID, model.RelCalls)))
	require.NoError(t, g.AddRelationship(ctx, model.NewRelationship(b.ID, a.ID, model.RelCalls)))
	require.NoError(t, g.AddRelationship(ctx, model.NewRelationship(loop.ID, loop.ID, model.RelCalls)))

	cycles := g.DetectCycles()
	assert.Len(t, cycles, 2)
}

func TestGraph_Seam_ComputedAcrossLanguages(t *testing.T) {
	g := New(NopSink{}, 0.95)
	pyNode := model.NewNode("a.py", model.KindFunction, "a", "python", model.Location{FilePath: "a.py", StartLine: 1})
	goNode := model.NewNode("a.go", model.KindFunction, "a", "go", model.Location{FilePath: "a.go", StartLine: 1})
	rel := model.NewRelationship(pyNode.ID, goNode.ID, model.RelCalls)

	ctx := context.Background()
	g.AddNode(ctx, pyNode)
	g.AddNode(ctx, goNode)
	require.NoError(t, g.AddRelationship(ctx, rel))

	stored, ok := g.GetNode(pyNode.ID)
	require.True(t, ok)
	assert.NotEqual(t, stored.Language, goNode.Language)

	got := g.GetRelationships(RelationshipFilter{Source: pyNode.ID})[0]
	assert.True(t, g.isSeam(got))
}
