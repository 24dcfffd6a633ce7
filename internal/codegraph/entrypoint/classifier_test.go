package entrypoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dev.helix.code/internal/codegraph/graph"
	"dev.helix.code/internal/codegraph/model"
)

func TestClassify_GoMainFunctionScoresOne(t *testing.T) {
	g := graph.New(graph.NopSink{}, 0.95)
	main := model.NewNode("main.go", model.KindFunction, "main", "go", model.Location{FilePath: "main.go", StartLine: 1})
	g.AddNode(context.Background(), main)

	result := Classify(context.Background(), g)
	assert.Equal(t, 1, result.NodesMatched)

	n, ok := g.GetNode(main.ID)
	require.True(t, ok)
	assert.Equal(t, 1.0, n.Metadata["entry_point_confidence"])
	assert.Contains(t, n.Metadata["entry_point_pattern"], "main-function")
}

func TestClassify_PythonDecoratorMatch(t *testing.T) {
	g := graph.New(graph.NopSink{}, 0.95)
	handler := model.NewNode("app.py", model.KindFunction, "list_users", "python", model.Location{FilePath: "app.py", StartLine: 10})
	handler.Metadata["decorators"] = []string{"@app.route('/users')"}
	g.AddNode(context.Background(), handler)

	Classify(context.Background(), g)

	n, ok := g.GetNode(handler.ID)
	require.True(t, ok)
	assert.Greater(t, n.Metadata["entry_point_confidence"].(float64), 0.0)
}

func TestClassify_ConfidenceCappedAtOne(t *testing.T) {
	g := graph.New(graph.NopSink{}, 0.95)
	n := model.NewNode("main.go", model.KindFunction, "main", "go", model.Location{FilePath: "main.go", StartLine: 1})
	n.Metadata["decorators"] = []string{"http.HandleFunc", "cobra.Command"}
	g.AddNode(context.Background(), n)

	Classify(context.Background(), g)

	got, ok := g.GetNode(n.ID)
	require.True(t, ok)
	assert.LessOrEqual(t, got.Metadata["entry_point_confidence"].(float64), 1.0)
}

func TestClassify_NoMatchLeavesMetadataUntouched(t *testing.T) {
	g := graph.New(graph.NopSink{}, 0.95)
	n := model.NewNode("a.go", model.KindFunction, "helper", "go", model.Location{FilePath: "a.go", StartLine: 1})
	g.AddNode(context.Background(), n)

	result := Classify(context.Background(), g)
	assert.Equal(t, 0, result.NodesMatched)

	got, ok := g.GetNode(n.ID)
	require.True(t, ok)
	_, hasConfidence := got.Metadata["entry_point_confidence"]
	assert.False(t, hasConfidence)
}

func TestClassify_SkipsNonFunctionNodes(t *testing.T) {
	g := graph.New(graph.NopSink{}, 0.95)
	n := model.NewNode("a.go", model.KindClass, "main", "go", model.Location{FilePath: "a.go", StartLine: 1})
	g.AddNode(context.Background(), n)

	result := Classify(context.Background(), g)
	assert.Equal(t, 0, result.NodesScanned)
}

func TestClassify_UnknownLanguageNoPatterns(t *testing.T) {
	g := graph.New(graph.NopSink{}, 0.95)
	n := model.NewNode("a.x", model.KindFunction, "main", "cobol", model.Location{FilePath: "a.x", StartLine: 1})
	g.AddNode(context.Background(), n)

	result := Classify(context.Background(), g)
	assert.Equal(t, 0, result.NodesMatched)
}
