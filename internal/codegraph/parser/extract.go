package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"dev.helix.code/internal/codegraph/lang"
	"dev.helix.code/internal/codegraph/model"
)

// extractFile applies patterns to source via tree-sitter in one walk of the
// parse tree, plus a branch-counting pass over each function's subtree for
// its complexity. Nothing here is per-language: every decision
// is driven by the NodePatterns table (spec "patterns are data").
func extractFile(ctx context.Context, filePath, language string, source []byte, patterns lang.NodePatterns, grammar *sitter.Language) ([]model.Node, []model.Relationship, error) {
	fileNode := model.NewNode(filePath, model.KindFile, filepath.Base(filePath), language, model.Location{FilePath: filePath})

	if grammar == nil || patterns.Empty() {
		return []model.Node{*fileNode}, nil, nil
	}

	tree, err := parseTree(ctx, source, grammar)
	if err != nil {
		return nil, nil, err
	}
	defer tree.Close()

	e := &extractor{filePath: filePath, language: language, source: source, patterns: patterns}
	e.nodes = append(e.nodes, *fileNode)
	e.walk(tree.RootNode(), fileNode.ID, "")
	return e.nodes, e.rels, nil
}

func parseTree(ctx context.Context, source []byte, grammar *sitter.Language) (*sitter.Tree, error) {
	p := sitter.NewParser()
	p.SetLanguage(grammar)
	tree, err := p.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parser: tree-sitter parse: %w", err)
	}
	if tree == nil {
		return nil, fmt.Errorf("parser: tree-sitter returned no tree")
	}
	return tree, nil
}

// extractor walks one file's parse tree, threading two pieces of state
// through recursion: containerID (the nearest enclosing declaration, for
// `contains` edges) and funcID (the nearest enclosing function/method, for
// `calls`/`references` edges — "" outside any function body).
type extractor struct {
	filePath string
	language string
	source   []byte
	patterns lang.NodePatterns

	nodes []model.Node
	rels  []model.Relationship
}

func (e *extractor) walk(n *sitter.Node, containerID, funcID string) {
	if n == nil {
		return
	}
	t := n.Type()
	isImport := contains(e.patterns.ImportTypes, t)
	isCall := contains(e.patterns.CallTypes, t)

	switch {
	case contains(e.patterns.FunctionTypes, t):
		e.declareScope(n, model.KindFunction, containerID)
		return
	case contains(e.patterns.MethodTypes, t):
		e.declareScope(n, model.KindMethod, containerID)
		return
	case contains(e.patterns.ClassTypes, t):
		e.declareContainer(n, model.KindClass, containerID, funcID)
		return
	case contains(e.patterns.InterfaceTypes, t):
		e.declareContainer(n, model.KindInterface, containerID, funcID)
		return
	case contains(e.patterns.ModuleTypes, t):
		e.declareContainer(n, model.KindModule, containerID, funcID)
		return
	case contains(e.patterns.NamespaceTypes, t):
		e.declareContainer(n, model.KindNamespace, containerID, funcID)
		return
	case isImport && isCall:
		// A node type can serve both roles (e.g. Ruby's `call` covers both
		// require/require_relative and ordinary calls); disambiguate by
		// callee name.
		if isRequireName(e.calleeNameOf(n)) {
			e.handleImport(n, containerID)
		} else {
			e.handleCall(n, funcID)
		}
	case isImport:
		e.handleImport(n, containerID)
	case isCall:
		e.handleCall(n, funcID)
	case funcID == "" && contains(e.patterns.VariableTypes, t):
		e.declareVariable(n, containerID)
	case contains(e.patterns.ReferenceTypes, t):
		e.handleReference(n, containerID, funcID)
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		e.walk(n.NamedChild(i), containerID, funcID)
	}
}

// declareScope handles function/method declarations: nested declarations
// and calls within the body attribute to this node.
func (e *extractor) declareScope(n *sitter.Node, kind model.NodeKind, containerID string) {
	e.maybeDocComment(n, containerID)
	decl := e.declNode(n, kind, containerID)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		e.walk(n.NamedChild(i), decl.ID, decl.ID)
	}
}

// declareContainer handles class/interface/module/namespace declarations:
// nested members attribute their `contains` edge to this node, but calls
// still attribute to whatever function/method scope (if any) enclosed the
// declaration.
func (e *extractor) declareContainer(n *sitter.Node, kind model.NodeKind, containerID, funcID string) {
	e.maybeDocComment(n, containerID)
	decl := e.declNode(n, kind, containerID)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		e.walk(n.NamedChild(i), decl.ID, funcID)
	}
}

// declareVariable handles a top-level variable/constant declaration
// (funcID == "" at the call site: not nested in any function/method body).
// It does not recurse itself; the caller's bottom-of-walk loop continues
// into the declaration's initializer, where references are still found.
// Calls there are not recorded: handleCall needs an enclosing function.
func (e *extractor) declareVariable(n *sitter.Node, containerID string) {
	kind := model.KindVariable
	if strings.Contains(n.Type(), "const") {
		kind = model.KindConstant
	}
	e.maybeDocComment(n, containerID)
	e.declNode(n, kind, containerID)
}

// handleReference records a `references` edge for a non-call name use
// (e.g. a type named in an annotation or heritage clause). Sourced from the
// enclosing function when there is one, else the enclosing container.
func (e *extractor) handleReference(n *sitter.Node, containerID, funcID string) {
	source := funcID
	if source == "" {
		source = containerID
	}
	if source == "" {
		return
	}
	name := strings.TrimSpace(n.Content(e.source))
	if name == "" {
		return
	}
	e.rels = append(e.rels, *model.NewRelationship(source, model.UnresolvedTargetID(name), model.RelReferences))
}

// maybeDocComment checks whether n's immediately preceding sibling is a doc
// comment per the language's DocCommentTypes, and if so records it as a
// comment node contained by containerID. Doesn't catch doc comments
// expressed as the first statement of a body (e.g. Python docstrings)
// since those aren't a preceding sibling of the declaration.
func (e *extractor) maybeDocComment(n *sitter.Node, containerID string) {
	prev := n.PrevSibling()
	if prev == nil || !contains(e.patterns.DocCommentTypes, prev.Type()) {
		return
	}
	text := strings.TrimSpace(prev.Content(e.source))
	if text == "" {
		return
	}
	docNode := model.NewNode(e.filePath, model.KindComment, summarize(text), e.language, locationOf(e.filePath, prev))
	docNode.Metadata["text"] = text
	e.nodes = append(e.nodes, *docNode)
	if containerID != "" {
		e.rels = append(e.rels, *model.NewRelationship(containerID, docNode.ID, model.RelContains))
	}
}

func (e *extractor) declNode(n *sitter.Node, kind model.NodeKind, containerID string) model.Node {
	name := e.nameOf(n)
	node := model.NewNode(e.filePath, kind, name, e.language, locationOf(e.filePath, n))
	if kind == model.KindFunction || kind == model.KindMethod {
		node.Complexity = 1 + e.countBranches(n)
	}
	e.nodes = append(e.nodes, *node)
	if containerID != "" {
		e.rels = append(e.rels, *model.NewRelationship(containerID, node.ID, model.RelContains))
	}
	return *node
}

func (e *extractor) handleImport(n *sitter.Node, containerID string) {
	name := e.importNameOf(n)
	if name == "" {
		return
	}
	importNode := model.NewNode(e.filePath, model.KindImport, name, e.language, locationOf(e.filePath, n))
	e.nodes = append(e.nodes, *importNode)
	if containerID != "" {
		e.rels = append(e.rels, *model.NewRelationship(containerID, importNode.ID, model.RelContains))
	}
	e.rels = append(e.rels, *model.NewRelationship(containerID, model.UnresolvedTargetID(name), model.RelImports))
}

func (e *extractor) handleCall(n *sitter.Node, funcID string) {
	if funcID == "" {
		return
	}
	name := e.calleeNameOf(n)
	if name == "" {
		return
	}
	e.rels = append(e.rels, *model.NewRelationship(funcID, model.UnresolvedTargetID(name), model.RelCalls))
}

// nameOf resolves a declaration node's identifier via the language's
// NameField (defaulting to tree-sitter's conventional "name" field), or
// falls back to the first identifier-shaped named child.
func (e *extractor) nameOf(n *sitter.Node) string {
	field := e.patterns.NameField
	if field == "" {
		field = "name"
	}
	if nameNode := n.ChildByFieldName(field); nameNode != nil {
		return nameNode.Content(e.source)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "identifier", "type_identifier", "field_identifier", "property_identifier", "constant":
			return child.Content(e.source)
		}
	}
	return "anonymous"
}

// calleeNameOf resolves the callee field of a call node to a bare name,
// trimming any receiver/package qualifier (`pkg.Fn` / `obj.method` ->
// `Fn` / `method`).
func (e *extractor) calleeNameOf(n *sitter.Node) string {
	field := e.patterns.CallNameField
	if field == "" {
		return ""
	}
	callee := n.ChildByFieldName(field)
	if callee == nil {
		return ""
	}
	text := callee.Content(e.source)
	if idx := strings.LastIndexAny(text, ".:"); idx >= 0 {
		text = text[idx+1:]
	}
	return strings.TrimSpace(text)
}

// importNameOf resolves an import/include/require node to the imported
// module name or path, stripping string-literal quoting.
func (e *extractor) importNameOf(n *sitter.Node) string {
	if pathNode := n.ChildByFieldName("path"); pathNode != nil {
		return unquote(pathNode.Content(e.source))
	}
	if e.patterns.CallNameField != "" {
		// import surfaced as a call (e.g. Ruby's require): the module name
		// is the call's first argument, not its callee.
		if args := n.ChildByFieldName("arguments"); args != nil && args.NamedChildCount() > 0 {
			return unquote(args.NamedChild(0).Content(e.source))
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "interpreted_string_literal", "string", "string_literal":
			return unquote(child.Content(e.source))
		case "dotted_name", "scoped_identifier", "identifier":
			return child.Content(e.source)
		}
	}
	return unquote(strings.TrimSpace(n.Content(e.source)))
}

// countBranches counts BranchTypes occurrences within n's subtree,
// stopping at nested function/method boundaries (those score their own
// complexity independently). Base complexity of 1 is added by the caller.
func (e *extractor) countBranches(n *sitter.Node) int {
	count := 0
	var walk func(node *sitter.Node, isRoot bool)
	walk = func(node *sitter.Node, isRoot bool) {
		if node == nil {
			return
		}
		if !isRoot && (contains(e.patterns.FunctionTypes, node.Type()) || contains(e.patterns.MethodTypes, node.Type())) {
			return
		}
		if contains(e.patterns.BranchTypes, node.Type()) {
			count++
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			walk(node.NamedChild(i), false)
		}
	}
	walk(n, true)
	return count
}

func locationOf(filePath string, n *sitter.Node) model.Location {
	start := n.StartPoint()
	end := n.EndPoint()
	return model.Location{
		FilePath:  filePath,
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column),
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column),
	}
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

const docSummaryLimit = 80

// summarize collapses a doc comment to a single line suitable for a node's
// Name field, truncating long comments; the full text lives in Metadata.
func summarize(text string) string {
	line := text
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if len(line) > docSummaryLimit {
		line = strings.TrimSpace(line[:docSummaryLimit]) + "..."
	}
	return line
}

func isRequireName(name string) bool {
	return name == "require" || name == "require_relative"
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
