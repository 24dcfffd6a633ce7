package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"dev.helix.code/internal/codegraph/model"
)

func init() {
	// Registered once so gob can round-trip these concrete types when they
	// flow through an interface{} (e.g. inside a generic envelope).
	// Direct struct fields of type
	// model.NodeKind/RelationshipKind need no registration — gob already
	// encodes their underlying string representation — but the explicit
	// registration plus the Encode*/Decode* wrappers below are the
	// "explicit encoder" the serialization contract demands: no caller in
	// this codebase hands an enum object to gob directly.
	gob.Register(model.Node{})
	gob.Register(model.Relationship{})
	gob.Register([]model.Node{})
	gob.Register([]model.Relationship{})
}

// EncodeNodes serializes a node slice for the cache, converting every
// NodeKind to its canonical string form first.
func EncodeNodes(nodes []model.Node) ([]byte, error) {
	encoded := make([]encodedNode, len(nodes))
	for i, n := range nodes {
		encoded[i] = encodedNode{
			ID: n.ID, Name: n.Name, Kind: n.Kind.String(), Language: n.Language,
			Location: n.Location, Complexity: n.Complexity, Metadata: n.Metadata,
		}
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(encoded); err != nil {
		return nil, fmt.Errorf("cache: encoding nodes: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeNodes is EncodeNodes's inverse, restoring the typed NodeKind.
func DecodeNodes(data []byte) ([]model.Node, error) {
	var encoded []encodedNode
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&encoded); err != nil {
		return nil, fmt.Errorf("cache: decoding nodes: %w", err)
	}
	nodes := make([]model.Node, len(encoded))
	for i, e := range encoded {
		nodes[i] = model.Node{
			ID: e.ID, Name: e.Name, Kind: model.NodeKind(e.Kind), Language: e.Language,
			Location: e.Location, Complexity: e.Complexity, Metadata: e.Metadata,
		}
	}
	return nodes, nil
}

// EncodeRelationships serializes a relationship slice, converting every
// RelationshipKind to its canonical string form first.
func EncodeRelationships(rels []model.Relationship) ([]byte, error) {
	encoded := make([]encodedRelationship, len(rels))
	for i, r := range rels {
		encoded[i] = encodedRelationship{
			ID: r.ID, SourceID: r.SourceID, TargetID: r.TargetID,
			Kind: r.Kind.String(), Metadata: r.Metadata,
		}
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(encoded); err != nil {
		return nil, fmt.Errorf("cache: encoding relationships: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeRelationships is EncodeRelationships's inverse.
func DecodeRelationships(data []byte) ([]model.Relationship, error) {
	var encoded []encodedRelationship
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&encoded); err != nil {
		return nil, fmt.Errorf("cache: decoding relationships: %w", err)
	}
	rels := make([]model.Relationship, len(encoded))
	for i, e := range encoded {
		rels[i] = model.Relationship{
			ID: e.ID, SourceID: e.SourceID, TargetID: e.TargetID,
			Kind: model.RelationshipKind(e.Kind), Metadata: e.Metadata,
		}
	}
	return rels, nil
}

// encodedNode and encodedRelationship are the canonical wire shapes: every
// enum field is a plain string, never the typed Go enum.
type encodedNode struct {
	ID         string
	Name       string
	Kind       string
	Language   string
	Location   model.Location
	Complexity int
	Metadata   map[string]interface{}
}

type encodedRelationship struct {
	ID       string
	SourceID string
	TargetID string
	Kind     string
	Metadata map[string]interface{}
}
