// Package ignore is the Ignore Matcher (C2): loaded once per project root,
// it compiles every ignore file found in the tree into a single ordered
// pattern list and answers `is_ignored(path)` without further filesystem
// reads. Grounded on termfx-morfx's internal/scanner/scanner.go (load-once,
// compiled-matcher design) and core/filewalker.go (doublestar glob usage),
// using bmatcuk/doublestar/v4 rather than morfx's undeclared
// sabhiram/go-gitignore import.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

type pattern struct {
	glob   string
	negate bool
	// depth is not set by the loader; ordering by ignore-file depth is done
	// in Load. A trailing slash in the source file is stripped, and every
	// pattern is compiled both as itself and with a trailing "/**", so
	// directory and file entries are matched alike.
	depth int
}

// Matcher is the compiled, read-only-after-load pattern set for one
// project root.
type Matcher struct {
	root     string
	patterns []pattern
}

// Load scans the project tree under root for files named in
// ignoreFileNames, compiles their patterns, and returns a ready Matcher.
// Patterns from root-level ignore files are ordered last so they override
// nested ignore files' patterns, per spec §4.2 ("root-level overrides
// nested"); within a single pattern list, later entries win, matching
// conventional ignore-file semantics.
func Load(root string, ignoreFileNames []string) (*Matcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	type found struct {
		depth    int
		patterns []pattern
	}
	var all []found

	names := make(map[string]bool, len(ignoreFileNames))
	for _, n := range ignoreFileNames {
		names[n] = true
	}

	err = filepath.WalkDir(absRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree: skip, not a hard failure
		}
		if d.IsDir() {
			return nil
		}
		if !names[d.Name()] {
			return nil
		}
		dir := filepath.Dir(path)
		rel, relErr := filepath.Rel(absRoot, dir)
		if relErr != nil {
			return nil
		}
		depth := 0
		if rel != "." {
			depth = len(strings.Split(rel, string(filepath.Separator)))
		}
		pats, readErr := parseFile(path, rel)
		if readErr != nil {
			return nil
		}
		all = append(all, found{depth: depth, patterns: pats})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Deepest first, root (depth 0) last, so root-level patterns are
	// evaluated last and win ties.
	sort.SliceStable(all, func(i, j int) bool { return all[i].depth > all[j].depth })

	m := &Matcher{root: absRoot}
	for _, f := range all {
		m.patterns = append(m.patterns, f.patterns...)
	}
	return m, nil
}

func parseFile(path, relDir string) ([]pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pats []pattern
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		negate := strings.HasPrefix(line, "!")
		if negate {
			line = line[1:]
		}
		line = strings.TrimSuffix(line, "/")

		prefix := ""
		if relDir != "." && relDir != "" {
			prefix = filepath.ToSlash(relDir) + "/"
		}

		glob := prefix + line
		if !strings.Contains(line, "*") {
			// A bare name (no glob metacharacters) matches that name
			// itself and anything beneath it, anywhere under the
			// directory that defined the pattern.
			glob = prefix + "**/" + line
		}
		pats = append(pats, pattern{glob: glob, negate: negate})
		pats = append(pats, pattern{glob: glob + "/**", negate: negate})
	}
	return pats, scanner.Err()
}

// IsIgnored reports whether path (absolute, or relative to root) is
// ignored. The last matching pattern in the compiled list decides; no
// match means not ignored. No filesystem I/O occurs here — the hard
// performance contract spec §4.2 requires.
func (m *Matcher) IsIgnored(path string) bool {
	rel := path
	if filepath.IsAbs(path) {
		if r, err := filepath.Rel(m.root, path); err == nil {
			rel = r
		}
	}
	rel = filepath.ToSlash(rel)

	ignored := false
	for _, p := range m.patterns {
		matched, err := doublestar.Match(p.glob, rel)
		if err != nil || !matched {
			continue
		}
		ignored = !p.negate
	}
	return ignored
}
