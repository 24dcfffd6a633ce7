// Package lang is the Language Registry (C1): it maps a file to a
// language tag and exposes that language's extraction pattern set and
// tree-sitter grammar. Grounded on the teacher's
// internal/repomap/tree_sitter.go language table, generalized into data
// (NodePatterns) instead of the teacher's per-language hardcoded
// extraction functions, per the engine's "patterns are data, not code"
// requirement.
package lang

import (
	"path/filepath"
	"strings"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Language is one registered language: how to recognize it, and what
// structure its pattern set can extract.
type Language struct {
	Tag               string
	Extensions        []string
	Filenames         []string
	ShebangContains   []string
	ContentSignatures []string
	Grammar           *sitter.Language
	Patterns          NodePatterns
}

// detectMemoTTL matches spec §4.1: "memoized by (extension,
// first-64-bytes-hash) with TTL 30 min".
const detectMemoTTL = 30 * time.Minute

const firstBytesSample = 64

// Registry is C1: a read-only-after-init map from language tag to
// Language, plus a detection memo.
type Registry struct {
	byTag        map[string]*Language
	byExtension  map[string]*Language
	byFilename   map[string]*Language
	preference   []string
	detectMemo   *expirable.LRU[string, string]
}

// NewRegistry builds the registry with the nine tree-sitter languages the
// engine understands plus a json entry with no grammar or patterns, in the
// same preference order the teacher's
// tree_sitter.go table uses.
func NewRegistry() *Registry {
	r := &Registry{
		byTag:       make(map[string]*Language),
		byExtension: make(map[string]*Language),
		byFilename:  make(map[string]*Language),
		detectMemo:  expirable.NewLRU[string, string](10_000, nil, detectMemoTTL),
	}
	for _, l := range builtinLanguages() {
		r.register(l)
	}
	return r
}

func (r *Registry) register(l *Language) {
	r.byTag[l.Tag] = l
	r.preference = append(r.preference, l.Tag)
	for _, ext := range l.Extensions {
		r.byExtension[ext] = l
	}
	for _, name := range l.Filenames {
		r.byFilename[name] = l
	}
}

// Detect resolves a file's language tag. Resolution order: extension,
// filename, shebang line, content signature; ties broken by registration
// order (spec's "fixed preference list"). Results are memoized.
func (r *Registry) Detect(filePath string, firstBytes []byte) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filePath))
	sample := firstBytes
	if len(sample) > firstBytesSample {
		sample = sample[:firstBytesSample]
	}
	memoKey := ext + "\x00" + string(sample)
	if tag, ok := r.detectMemo.Get(memoKey); ok {
		if tag == "" {
			return "", false
		}
		return tag, true
	}

	tag, ok := r.detect(filePath, ext, sample)
	if ok {
		r.detectMemo.Add(memoKey, tag)
	} else {
		r.detectMemo.Add(memoKey, "")
	}
	return tag, ok
}

func (r *Registry) detect(filePath, ext string, firstBytes []byte) (string, bool) {
	if l, ok := r.byExtension[ext]; ok {
		return l.Tag, true
	}
	if l, ok := r.byFilename[filepath.Base(filePath)]; ok {
		return l.Tag, true
	}
	if len(firstBytes) > 0 && firstBytes[0] == '#' {
		line := firstLine(firstBytes)
		for _, tag := range r.preference {
			l := r.byTag[tag]
			for _, marker := range l.ShebangContains {
				if strings.Contains(line, marker) {
					return l.Tag, true
				}
			}
		}
	}
	for _, tag := range r.preference {
		l := r.byTag[tag]
		for _, sig := range l.ContentSignatures {
			if strings.HasPrefix(string(firstBytes), sig) {
				return l.Tag, true
			}
		}
	}
	return "", false
}

func firstLine(b []byte) string {
	if i := strings.IndexByte(string(b), '\n'); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// ExtensionsFor returns the registered extensions for a language tag.
func (r *Registry) ExtensionsFor(tag string) []string {
	l, ok := r.byTag[tag]
	if !ok {
		return nil
	}
	return append([]string(nil), l.Extensions...)
}

// PatternsFor returns the pattern set for a language tag. A language
// recognized by extension but with no contributed structure returns a
// zero-value NodePatterns (NodePatterns.Empty() == true).
func (r *Registry) PatternsFor(tag string) NodePatterns {
	l, ok := r.byTag[tag]
	if !ok {
		return NodePatterns{}
	}
	return l.Patterns
}

// GrammarFor returns the tree-sitter grammar for a language tag, or nil if
// unregistered.
func (r *Registry) GrammarFor(tag string) *sitter.Language {
	l, ok := r.byTag[tag]
	if !ok {
		return nil
	}
	return l.Grammar
}

// IsSupported reports whether a file's language can be detected at all
// (independent of whether that language has a non-empty pattern set).
func (r *Registry) IsSupported(filePath string) bool {
	_, ok := r.Detect(filePath, nil)
	return ok
}

// Languages lists every registered tag, in preference order.
func (r *Registry) Languages() []string {
	return append([]string(nil), r.preference...)
}

func builtinLanguages() []*Language {
	return []*Language{
		{
			Tag:        "go",
			Extensions: []string{".go"},
			Grammar:    golang.GetLanguage(),
			Patterns: NodePatterns{
				FunctionTypes:   []string{"function_declaration"},
				MethodTypes:     []string{"method_declaration"},
				ClassTypes:      []string{"type_declaration"},
				InterfaceTypes:  []string{"interface_type"},
				ImportTypes:     []string{"import_spec", "import_declaration"},
				CallTypes:       []string{"call_expression"},
				CallNameField:   "function",
				BranchTypes:     []string{"if_statement", "for_statement", "expression_switch_statement", "type_switch_statement", "communication_case", "expression_case", "default_case"},
				VariableTypes:   []string{"var_declaration", "const_declaration"},
				ReferenceTypes:  []string{"type_identifier"},
				DocCommentTypes: []string{"comment"},
			},
		},
		{
			Tag:        "python",
			Extensions: []string{".py", ".pyi"},
			ShebangContains: []string{"python"},
			Grammar:    python.GetLanguage(),
			Patterns: NodePatterns{
				FunctionTypes:   []string{"function_definition"},
				ClassTypes:      []string{"class_definition"},
				ImportTypes:     []string{"import_statement", "import_from_statement"},
				CallTypes:       []string{"call"},
				CallNameField:   "function",
				BranchTypes:     []string{"if_statement", "for_statement", "while_statement", "except_clause", "conditional_expression", "boolean_operator"},
				VariableTypes:   []string{"assignment"},
				DocCommentTypes: []string{"string"},
			},
		},
		{
			Tag:        "javascript",
			Extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
			ShebangContains: []string{"node"},
			Grammar:    javascript.GetLanguage(),
			Patterns: NodePatterns{
				FunctionTypes:   []string{"function_declaration", "function", "arrow_function", "generator_function_declaration"},
				MethodTypes:     []string{"method_definition"},
				ClassTypes:      []string{"class_declaration"},
				ImportTypes:     []string{"import_statement"},
				CallTypes:       []string{"call_expression"},
				CallNameField:   "function",
				BranchTypes:     []string{"if_statement", "for_statement", "for_in_statement", "while_statement", "switch_case", "ternary_expression", "catch_clause"},
				VariableTypes:   []string{"lexical_declaration", "variable_declaration"},
				DocCommentTypes: []string{"comment"},
			},
		},
		{
			Tag:        "typescript",
			Extensions: []string{".ts", ".tsx"},
			Grammar:    typescript.GetLanguage(),
			Patterns: NodePatterns{
				FunctionTypes:   []string{"function_declaration", "function", "arrow_function"},
				MethodTypes:     []string{"method_definition", "method_signature"},
				ClassTypes:      []string{"class_declaration"},
				InterfaceTypes:  []string{"interface_declaration"},
				ImportTypes:     []string{"import_statement"},
				CallTypes:       []string{"call_expression"},
				CallNameField:   "function",
				BranchTypes:     []string{"if_statement", "for_statement", "for_in_statement", "while_statement", "switch_case", "ternary_expression", "catch_clause"},
				VariableTypes:   []string{"lexical_declaration", "variable_declaration"},
				ReferenceTypes:  []string{"type_identifier"},
				NamespaceTypes:  []string{"internal_module"},
				DocCommentTypes: []string{"comment"},
			},
		},
		{
			Tag:        "java",
			Extensions: []string{".java"},
			Grammar:    java.GetLanguage(),
			Patterns: NodePatterns{
				MethodTypes:     []string{"method_declaration"},
				ClassTypes:      []string{"class_declaration"},
				InterfaceTypes:  []string{"interface_declaration"},
				ImportTypes:     []string{"import_declaration"},
				CallTypes:       []string{"method_invocation"},
				CallNameField:   "name",
				BranchTypes:     []string{"if_statement", "for_statement", "while_statement", "switch_label", "ternary_expression", "catch_clause"},
				VariableTypes:   []string{"field_declaration"},
				ReferenceTypes:  []string{"type_identifier"},
				DocCommentTypes: []string{"block_comment"},
			},
		},
		{
			Tag:        "c",
			Extensions: []string{".c", ".h"},
			Grammar:    c.GetLanguage(),
			Patterns: NodePatterns{
				FunctionTypes:   []string{"function_definition"},
				ClassTypes:      []string{"struct_specifier"},
				ImportTypes:     []string{"preproc_include"},
				CallTypes:       []string{"call_expression"},
				CallNameField:   "function",
				BranchTypes:     []string{"if_statement", "for_statement", "while_statement", "case_statement", "conditional_expression"},
				VariableTypes:   []string{"declaration"},
				DocCommentTypes: []string{"comment"},
			},
		},
		{
			Tag:        "cpp",
			Extensions: []string{".cpp", ".cc", ".cxx", ".hpp", ".hh"},
			Grammar:    cpp.GetLanguage(),
			Patterns: NodePatterns{
				FunctionTypes:   []string{"function_definition"},
				ClassTypes:      []string{"class_specifier", "struct_specifier"},
				ImportTypes:     []string{"preproc_include"},
				CallTypes:       []string{"call_expression"},
				CallNameField:   "function",
				BranchTypes:     []string{"if_statement", "for_statement", "while_statement", "case_statement", "conditional_expression"},
				VariableTypes:   []string{"declaration", "field_declaration"},
				ReferenceTypes:  []string{"type_identifier"},
				DocCommentTypes: []string{"comment"},
			},
		},
		{
			Tag:        "rust",
			Extensions: []string{".rs"},
			Grammar:    rust.GetLanguage(),
			Patterns: NodePatterns{
				FunctionTypes:   []string{"function_item"},
				ClassTypes:      []string{"struct_item", "enum_item", "impl_item"},
				InterfaceTypes:  []string{"trait_item"},
				ImportTypes:     []string{"use_declaration"},
				CallTypes:       []string{"call_expression"},
				CallNameField:   "function",
				BranchTypes:     []string{"if_expression", "for_expression", "while_expression", "match_arm"},
				VariableTypes:   []string{"static_item", "const_item"},
				ReferenceTypes:  []string{"type_identifier"},
				ModuleTypes:     []string{"mod_item"},
				DocCommentTypes: []string{"line_comment", "block_comment"},
			},
		},
		{
			Tag:        "ruby",
			Extensions: []string{".rb"},
			ShebangContains: []string{"ruby"},
			Grammar:    ruby.GetLanguage(),
			Patterns: NodePatterns{
				MethodTypes:     []string{"method", "singleton_method"},
				ClassTypes:      []string{"class"},
				ImportTypes:     []string{"call"}, // require/require_relative surfaced as a call; parser filters by callee name
				CallTypes:       []string{"call"},
				CallNameField:   "method",
				BranchTypes:     []string{"if", "for", "while", "case", "rescue", "ternary"},
				VariableTypes:   []string{"assignment"},
				ModuleTypes:     []string{"module"},
				DocCommentTypes: []string{"comment"},
			},
		},
		{
			Tag:               "json",
			Extensions:        []string{".json"},
			ContentSignatures: []string{"{", "["},
			Patterns:          NodePatterns{},
		},
	}
}
