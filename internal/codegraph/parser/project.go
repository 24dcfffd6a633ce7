package parser

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/viant/afs/storage"
	"golang.org/x/sync/errgroup"

	"dev.helix.code/internal/codegraph/graph"
	"dev.helix.code/internal/codegraph/ignore"
	"dev.helix.code/internal/codegraph/model"
)

// Observation records why a file contributed nothing to the graph.
type Observation struct {
	FilePath string
	Reason   string
}

// Summary is parse_project's result (spec §4.4).
type Summary struct {
	FilesParsed  int
	FilesSkipped int
	NodesAdded   int
	RelsAdded    int
	Observations []Observation
}

// Parallelism returns n, or runtime.NumCPU() when n <= 0 ("0 means use
// the host's core count", config's documented default).
func Parallelism(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// ParseProject walks root, parses every file bounded by parallelism
// concurrent workers, resolves unresolved call/import targets where a
// unique declaration match exists project-wide, and applies the result to
// g. languageFilter, when non-empty, restricts applied files to those
// languages; every other file is still parsed (for the unresolved-target
// index) but contributes no nodes/relationships to g.
func (p *Parser) ParseProject(ctx context.Context, root string, languageFilter []string, matcher *ignore.Matcher, parallelism int, g *graph.Graph) (Summary, error) {
	files, err := p.collectFiles(ctx, root, matcher)
	if err != nil {
		return Summary{}, err
	}

	outcomes := make([]FileOutcome, len(files))
	failures := make([]error, len(files))

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(Parallelism(parallelism))
	for i, f := range files {
		i, f := i, f
		grp.Go(func() error {
			outcome, err := p.ParseFile(gctx, f)
			outcome.FilePath = f
			outcomes[i] = outcome
			failures[i] = err
			return nil // isolate per-file failures; never abort the walk
		})
	}
	_ = grp.Wait()

	var summary Summary
	for i, f := range files {
		if failures[i] != nil {
			summary.FilesSkipped++
			summary.Observations = append(summary.Observations, Observation{FilePath: f, Reason: "source-unreadable"})
			continue
		}
		if outcomes[i].Skipped {
			summary.FilesSkipped++
			summary.Observations = append(summary.Observations, Observation{FilePath: f, Reason: outcomes[i].SkipReason})
			continue
		}
	}

	rewriteUnresolved(outcomes)

	allow := allowSet(languageFilter)
	for i := range outcomes {
		o := outcomes[i]
		if failures[i] != nil || o.Skipped {
			continue
		}
		if allow != nil && !allow[o.Language] {
			continue
		}
		summary.FilesParsed++
		for ni := range o.Nodes {
			g.AddNode(ctx, &o.Nodes[ni])
			summary.NodesAdded++
		}
		for ri := range o.Relationships {
			if err := g.AddRelationship(ctx, &o.Relationships[ri]); err != nil {
				if p.log != nil {
					p.log.Warn("relationship-rejected: %v", err)
				}
				continue
			}
			summary.RelsAdded++
		}
	}

	return summary, nil
}

func allowSet(languageFilter []string) map[string]bool {
	if len(languageFilter) == 0 {
		return nil
	}
	set := make(map[string]bool, len(languageFilter))
	for _, l := range languageFilter {
		set[l] = true
	}
	return set
}

// collectFiles walks root via afs, respecting matcher and following
// symlinks at most once per realpath target (spec §4.4 edge case).
func (p *Parser) collectFiles(ctx context.Context, root string, matcher *ignore.Matcher) ([]string, error) {
	var mu sync.Mutex
	var files []string
	seenReal := make(map[string]struct{})

	var visitor storage.OnVisit = func(_ context.Context, baseURL, parent string, info os.FileInfo, _ io.Reader) (bool, error) {
		full := filepath.Join(baseURL, parent, info.Name())
		if info.IsDir() {
			if matcher != nil && matcher.IsIgnored(full) {
				return false, nil
			}
			return true, nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			real, err := filepath.EvalSymlinks(full)
			if err != nil {
				return true, nil
			}
			if _, dup := seenReal[real]; dup {
				return true, nil
			}
			seenReal[real] = struct{}{}
			full = real
		}
		if matcher != nil && matcher.IsIgnored(full) {
			return true, nil
		}
		mu.Lock()
		files = append(files, full)
		mu.Unlock()
		return true, nil
	}

	if err := p.fs.Walk(ctx, root, visitor); err != nil {
		return nil, fmt.Errorf("parser: walking %s: %w", root, err)
	}
	return files, nil
}

// rewriteUnresolved is spec §4.4's second pass: build a name -> declared
// node ids index across every parsed file, then rewrite each
// unresolved:<name> relationship target to the unique match, leaving
// ambiguous or absent matches untouched.
func rewriteUnresolved(outcomes []FileOutcome) {
	declared := make(map[string][]string)
	for _, o := range outcomes {
		for _, n := range o.Nodes {
			switch n.Kind {
			case model.KindFunction, model.KindMethod, model.KindClass, model.KindInterface:
				declared[n.Name] = append(declared[n.Name], n.ID)
			}
		}
	}

	for oi := range outcomes {
		rels := outcomes[oi].Relationships
		for ri := range rels {
			rel := &rels[ri]
			if !model.IsUnresolved(rel.TargetID) {
				continue
			}
			ids := declared[model.UnresolvedName(rel.TargetID)]
			if len(ids) != 1 {
				continue
			}
			rel.TargetID = ids[0]
			rel.ID = model.DeriveRelationshipID(rel.SourceID, rel.TargetID, rel.Kind)
		}
	}
}
