package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"

	"dev.helix.code/internal/codegraph/cache"
	"dev.helix.code/internal/codegraph/lang"
	"dev.helix.code/internal/codegraph/model"
	"dev.helix.code/internal/logging"
)

func newTestParser(t *testing.T, maxFileBytes int64) *Parser {
	t.Helper()
	c, err := cache.New(1024, nil, logging.NewTestLogger("cache"))
	require.NoError(t, err)
	return New(lang.NewRegistry(), c, afs.New(), logging.NewTestLogger("parser"), maxFileBytes, time.Minute)
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.go")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFile_GoSourceProducesNodesAndEdges(t *testing.T) {
	p := newTestParser(t, 10*1024*1024)
	path := writeTempFile(t, goSource)

	outcome, err := p.ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, outcome.Skipped)
	assert.Equal(t, "go", outcome.Language)
	assert.NotEmpty(t, outcome.Nodes)
	assert.NotEmpty(t, outcome.Relationships)
}

func TestParseFile_CachedOnSecondCall(t *testing.T) {
	p := newTestParser(t, 10*1024*1024)
	path := writeTempFile(t, goSource)

	first, err := p.ParseFile(context.Background(), path)
	require.NoError(t, err)

	second, err := p.ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, len(first.Nodes), len(second.Nodes))
	assert.Equal(t, len(first.Relationships), len(second.Relationships))

	stats := p.cache.Stats()
	assert.Greater(t, stats.L1.Hits, int64(0))
}

func TestParseFile_OversizedSkippedWithoutReading(t *testing.T) {
	p := newTestParser(t, 4) // tiny threshold
	path := writeTempFile(t, goSource)

	outcome, err := p.ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, outcome.Skipped)
	assert.Equal(t, "oversized", outcome.SkipReason)
}

func TestParseFile_BinaryContentSkipped(t *testing.T) {
	p := newTestParser(t, 10*1024*1024)
	dir := t.TempDir()
	path := filepath.Join(dir, "blob.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\x00binary"), 0o644))

	outcome, err := p.ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, outcome.Skipped)
	assert.Equal(t, "binary", outcome.SkipReason)
}

func TestParseFile_UnsupportedLanguageSkipped(t *testing.T) {
	p := newTestParser(t, 10*1024*1024)
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.xyz")
	require.NoError(t, os.WriteFile(path, []byte("no idea what this is"), 0o644))

	outcome, err := p.ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, outcome.Skipped)
	assert.Equal(t, "unsupported-language", outcome.SkipReason)
}

func TestParseFile_MissingFileErrors(t *testing.T) {
	p := newTestParser(t, 10*1024*1024)
	_, err := p.ParseFile(context.Background(), filepath.Join(t.TempDir(), "missing.go"))
	assert.Error(t, err)
}

func TestLooksBinary(t *testing.T) {
	assert.True(t, looksBinary([]byte("abc\x00def")))
	assert.False(t, looksBinary([]byte("abcdef")))
}

func TestContentHash_StableForSameBytes(t *testing.T) {
	a := contentHash([]byte("hello"))
	b := contentHash([]byte("hello"))
	c := contentHash([]byte("world"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestRewriteUnresolved_UniqueMatchResolved(t *testing.T) {
	helper := model.NewNode("a.go", model.KindFunction, "helper", "go", model.Location{FilePath: "a.go", StartLine: 1})
	caller := model.NewNode("b.go", model.KindFunction, "caller", "go", model.Location{FilePath: "b.go", StartLine: 1})
	call := model.NewRelationship(caller.ID, model.UnresolvedTargetID("helper"), model.RelCalls)

	outcomes := []FileOutcome{
		{FilePath: "a.go", Nodes: []model.Node{*helper}},
		{FilePath: "b.go", Nodes: []model.Node{*caller}, Relationships: []model.Relationship{*call}},
	}

	rewriteUnresolved(outcomes)

	got := outcomes[1].Relationships[0]
	assert.Equal(t, helper.ID, got.TargetID)
	assert.Equal(t, model.DeriveRelationshipID(caller.ID, helper.ID, model.RelCalls), got.ID)
}

func TestRewriteUnresolved_AmbiguousMatchStaysUnresolved(t *testing.T) {
	helperA := model.NewNode("a.go", model.KindFunction, "helper", "go", model.Location{FilePath: "a.go", StartLine: 1})
	helperB := model.NewNode("b.go", model.KindFunction, "helper", "go", model.Location{FilePath: "b.go", StartLine: 5})
	caller := model.NewNode("c.go", model.KindFunction, "caller", "go", model.Location{FilePath: "c.go", StartLine: 1})
	call := model.NewRelationship(caller.ID, model.UnresolvedTargetID("helper"), model.RelCalls)

	outcomes := []FileOutcome{
		{FilePath: "a.go", Nodes: []model.Node{*helperA}},
		{FilePath: "b.go", Nodes: []model.Node{*helperB}},
		{FilePath: "c.go", Nodes: []model.Node{*caller}, Relationships: []model.Relationship{*call}},
	}

	rewriteUnresolved(outcomes)

	got := outcomes[2].Relationships[0]
	assert.True(t, model.IsUnresolved(got.TargetID))
}
