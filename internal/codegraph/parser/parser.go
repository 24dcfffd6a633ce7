// Package parser is the Universal Parser (C4): it walks a project,
// routes each file through the language registry (C1), extracts typed
// nodes and relationships with the pattern set, and memoizes results by
// content fingerprint via the cache layer (C3). Grounded on the teacher's
// internal/repomap/tree_sitter.go (tree-sitter parse/walk calls) and
// viant-linager's analyzer/package.go (afs.Service for file reads,
// generalized here to local project trees).
package parser

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/viant/afs"
	"golang.org/x/crypto/blake2b"

	"dev.helix.code/internal/codegraph/cache"
	"dev.helix.code/internal/codegraph/lang"
	"dev.helix.code/internal/codegraph/model"
	"dev.helix.code/internal/logging"
)

// FileOutcome is the result of parsing one file.
type FileOutcome struct {
	FilePath      string
	Language      string
	Nodes         []model.Node
	Relationships []model.Relationship
	Skipped       bool
	SkipReason    string
}

// Parser is C4: detect language, apply its pattern set, cache the result.
type Parser struct {
	registry     *lang.Registry
	cache        *cache.Cache
	fs           afs.Service
	log          *logging.Logger
	maxFileBytes int64
	cacheTTL     time.Duration
}

// New builds a Parser. fs may be nil, in which case afs.New() is used.
func New(registry *lang.Registry, c *cache.Cache, fs afs.Service, log *logging.Logger, maxFileBytes int64, cacheTTL time.Duration) *Parser {
	if fs == nil {
		fs = afs.New()
	}
	return &Parser{registry: registry, cache: c, fs: fs, log: log, maxFileBytes: maxFileBytes, cacheTTL: cacheTTL}
}

// ParseFile implements spec §4.4's parse_file steps: fingerprint, cache
// lookup, language detection, pattern-driven extraction, cache store.
func (p *Parser) ParseFile(ctx context.Context, filePath string) (FileOutcome, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return FileOutcome{}, fmt.Errorf("parser: stat %s: %w", filePath, err)
	}
	if info.Size() > p.maxFileBytes {
		return FileOutcome{FilePath: filePath, Skipped: true, SkipReason: "oversized"}, nil
	}

	content, err := p.fs.DownloadWithURL(ctx, filePath)
	if err != nil {
		return FileOutcome{}, fmt.Errorf("parser: reading %s: %w", filePath, err)
	}
	if looksBinary(content) {
		return FileOutcome{FilePath: filePath, Skipped: true, SkipReason: "binary"}, nil
	}

	hash := contentHash(content)
	if outcome, ok := p.lookupCache(ctx, filePath, hash); ok {
		if len(outcome.Nodes) > 0 {
			outcome.Language = outcome.Nodes[0].Language
		}
		return outcome, nil
	}

	language, ok := p.registry.Detect(filePath, content)
	if !ok {
		return FileOutcome{FilePath: filePath, Skipped: true, SkipReason: "unsupported-language"}, nil
	}

	patterns := p.registry.PatternsFor(language)
	grammar := p.registry.GrammarFor(language)
	nodes, rels, err := extractFile(ctx, filePath, language, content, patterns, grammar)
	if err != nil {
		if p.log != nil {
			p.log.Warn("pattern-failure: %s: %v", filePath, err)
		}
		fileNode := model.NewNode(filePath, model.KindFile, filepath.Base(filePath), language, model.Location{FilePath: filePath})
		return FileOutcome{FilePath: filePath, Language: language, Nodes: []model.Node{*fileNode}}, nil
	}

	outcome := FileOutcome{FilePath: filePath, Language: language, Nodes: nodes, Relationships: rels}
	p.storeCache(ctx, filePath, hash, outcome)
	return outcome, nil
}

func (p *Parser) lookupCache(ctx context.Context, filePath, hash string) (FileOutcome, bool) {
	if p.cache == nil {
		return FileOutcome{}, false
	}
	nodesRaw, ok := p.cache.Get(ctx, cache.FileNodesKey(filePath, hash), p.cacheTTL)
	if !ok {
		return FileOutcome{}, false
	}
	relsRaw, ok := p.cache.Get(ctx, cache.FileRelsKey(filePath, hash), p.cacheTTL)
	if !ok {
		return FileOutcome{}, false
	}
	nodes, err := cache.DecodeNodes(nodesRaw)
	if err != nil {
		return FileOutcome{}, false
	}
	rels, err := cache.DecodeRelationships(relsRaw)
	if err != nil {
		return FileOutcome{}, false
	}
	return FileOutcome{FilePath: filePath, Nodes: nodes, Relationships: rels}, true
}

func (p *Parser) storeCache(ctx context.Context, filePath, hash string, outcome FileOutcome) {
	if p.cache == nil {
		return
	}
	if raw, err := cache.EncodeNodes(outcome.Nodes); err == nil {
		p.cache.Set(ctx, cache.FileNodesKey(filePath, hash), raw, p.cacheTTL)
	}
	if raw, err := cache.EncodeRelationships(outcome.Relationships); err == nil {
		p.cache.Set(ctx, cache.FileRelsKey(filePath, hash), raw, p.cacheTTL)
	}
}

// contentHash is spec §4.4's "blake-family-hash(file_bytes)".
func contentHash(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:16])
}

// looksBinary applies the conventional null-byte heuristic (git/grep use
// the same one) over a bounded prefix, avoiding a full content scan.
func looksBinary(content []byte) bool {
	sample := content
	if len(sample) > 8000 {
		sample = sample[:8000]
	}
	for _, b := range sample {
		if b == 0 {
			return true
		}
	}
	return false
}
