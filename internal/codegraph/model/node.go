// Package model defines the node and relationship types at the heart of
// the code graph: the typed vocabulary C4 produces and C5 stores. Node and
// relationship kinds are tagged string enums with explicit string
// encode/decode, per the cache layer's serialization contract — never hand
// an enum object to a binary codec.
package model

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// NodeKind enumerates the code element kinds the engine recognizes.
type NodeKind string

const (
	KindFile       NodeKind = "file"
	KindModule     NodeKind = "module"
	KindClass      NodeKind = "class"
	KindInterface  NodeKind = "interface"
	KindFunction   NodeKind = "function"
	KindMethod     NodeKind = "method"
	KindVariable   NodeKind = "variable"
	KindConstant   NodeKind = "constant"
	KindImport     NodeKind = "import"
	KindDecorator  NodeKind = "decorator"
	KindParameter  NodeKind = "parameter"
	KindProperty   NodeKind = "property"
	KindEnum       NodeKind = "enum"
	KindTypeAlias  NodeKind = "type-alias"
	KindNamespace  NodeKind = "namespace"
	KindPackage    NodeKind = "package"
	KindComment    NodeKind = "comment"
	KindDocstring  NodeKind = "docstring"
)

// String returns the canonical lowercase wire value. Implementing Stringer
// (and MarshalText below) is the "explicit encoder" the cache's
// serialization contract demands: callers never serialize the Go enum
// object directly.
func (k NodeKind) String() string { return string(k) }

// MarshalText implements encoding.TextMarshaler so JSON and gob-backed
// codecs that respect it serialize the canonical string, not a numeric
// backing value.
func (k NodeKind) MarshalText() ([]byte, error) { return []byte(k), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *NodeKind) UnmarshalText(text []byte) error {
	*k = NodeKind(strings.ToLower(string(text)))
	return nil
}

// IsContainer reports whether a node of this kind can enclose other nodes
// via a `contains` relationship (used by C5's leaf classification, which
// excludes file/module nodes from "no outgoing calls" leaf status).
func (k NodeKind) IsContainer() bool {
	switch k {
	case KindFile, KindModule, KindClass, KindInterface, KindNamespace, KindPackage:
		return true
	default:
		return false
	}
}

// Location pinpoints a node's source span.
type Location struct {
	FilePath string `json:"file_path"`
	StartLine int   `json:"start_line"`
	StartCol  int   `json:"start_col"`
	EndLine   int   `json:"end_line"`
	EndCol    int   `json:"end_col"`
}

// Node is an identified code element (spec §3).
type Node struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Kind       NodeKind               `json:"kind"`
	Language   string                 `json:"language"`
	Location   Location               `json:"location"`
	Complexity int                    `json:"complexity"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// DeriveNodeID computes the deterministic id for (file_path, kind, name,
// start_line): stable across reparses as long as those inputs are stable.
func DeriveNodeID(filePath string, kind NodeKind, name string, startLine int) string {
	sum := blake2b.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%s\x00%d", filePath, kind, name, startLine)))
	return hex.EncodeToString(sum[:16])
}

// NewNode builds a Node with its id derived per DeriveNodeID. Complexity
// defaults to 1 per invariant 5 ("missing values default to 1").
func NewNode(filePath string, kind NodeKind, name, language string, loc Location) *Node {
	return &Node{
		ID:         DeriveNodeID(filePath, kind, name, loc.StartLine),
		Name:       name,
		Kind:       kind,
		Language:   language,
		Location:   loc,
		Complexity: 1,
		Metadata:   make(map[string]interface{}),
	}
}

// UnresolvedTargetID formats the placeholder target id used when a call or
// reference site cannot be matched to a known declaration at extraction
// time (spec §4.4 "unresolved call/reference targets").
func UnresolvedTargetID(name string) string {
	return "unresolved:" + name
}

// IsUnresolved reports whether id is an unresolved-target placeholder.
func IsUnresolved(id string) bool {
	return strings.HasPrefix(id, "unresolved:")
}

// UnresolvedName extracts the symbol name from an unresolved target id, or
// "" if id is not an unresolved placeholder.
func UnresolvedName(id string) string {
	if !IsUnresolved(id) {
		return ""
	}
	return strings.TrimPrefix(id, "unresolved:")
}
