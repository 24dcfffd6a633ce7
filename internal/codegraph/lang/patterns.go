package lang

// NodePatterns is the per-language pattern set C4 applies to extract
// declarations and call/reference sites. Patterns are data: a table of
// tree-sitter node type names, never a hand-written per-language
// extraction function. A language with a zero-value NodePatterns
// (spec "languages without a pattern set yield the empty set") still gets
// file/module nodes from the parser; it simply contributes no further
// structure.
type NodePatterns struct {
	// FunctionTypes are node types that declare a free function.
	FunctionTypes []string
	// MethodTypes are node types that declare a method on a receiver/class.
	MethodTypes []string
	// ClassTypes are node types that declare a class, struct, or similar.
	ClassTypes []string
	// InterfaceTypes are node types that declare an interface/trait/protocol.
	InterfaceTypes []string
	// ImportTypes are node types for import/include/require statements.
	ImportTypes []string
	// CallTypes are node types for a call expression.
	CallTypes []string
	// CallNameField is the field name holding the callee expression within
	// a CallTypes node (tree-sitter field, not positional child).
	CallNameField string
	// NameField is the field name holding an identifier within a
	// declaration node, when it differs from tree-sitter's default "name".
	NameField string
	// BranchTypes are node types counted as one unit of cyclomatic
	// complexity each (if/loop/case/ternary/short-circuit/handler).
	BranchTypes []string
	// VariableTypes are node types that declare a variable or constant
	// directly inside a container (not inside a function/method body) —
	// a top-level `var`/`const`/assignment, or a class field.
	VariableTypes []string
	// ReferenceTypes are node types for a bare name use that is not a
	// call (e.g. a type named in an annotation or heritage clause),
	// surfaced as a `references` edge rather than `calls`.
	ReferenceTypes []string
	// ModuleTypes are node types that declare a named module (Rust's
	// `mod`, Ruby's `module`).
	ModuleTypes []string
	// NamespaceTypes are node types that declare a named namespace
	// (TypeScript's `namespace`/`module` block).
	NamespaceTypes []string
	// DocCommentTypes are node types recognized as a doc comment
	// immediately preceding a declaration (its previous sibling in the
	// parse tree).
	DocCommentTypes []string
}

// Empty reports whether this pattern set contributes no structure, i.e.
// the language is recognized by extension but has no extraction patterns.
func (p NodePatterns) Empty() bool {
	return len(p.FunctionTypes) == 0 && len(p.MethodTypes) == 0 &&
		len(p.ClassTypes) == 0 && len(p.InterfaceTypes) == 0 &&
		len(p.ImportTypes) == 0 && len(p.CallTypes) == 0
}
