package model

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// RelationshipKind enumerates the edge kinds the engine recognizes.
// "seam" is never assigned to a stored relationship — it is a computed
// classification (source and target nodes have different languages) that
// the graph computes on demand; no event or query result carries it as a
// relationship kind (spec §3).
type RelationshipKind string

const (
	RelContains   RelationshipKind = "contains"
	RelImports    RelationshipKind = "imports"
	RelCalls      RelationshipKind = "calls"
	RelReferences RelationshipKind = "references"
	RelExtends    RelationshipKind = "extends"
	RelImplements RelationshipKind = "implements"
	RelDecorates  RelationshipKind = "decorates"
	RelSeam       RelationshipKind = "seam"
)

func (k RelationshipKind) String() string { return string(k) }

func (k RelationshipKind) MarshalText() ([]byte, error) { return []byte(k), nil }

func (k *RelationshipKind) UnmarshalText(text []byte) error {
	*k = RelationshipKind(strings.ToLower(string(text)))
	return nil
}

// Relationship is a directed, typed edge between two node ids (spec §3).
type Relationship struct {
	ID       string                 `json:"id"`
	SourceID string                 `json:"source_id"`
	TargetID string                 `json:"target_id"`
	Kind     RelationshipKind       `json:"kind"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// DeriveRelationshipID computes the deterministic id for
// (source_id, target_id, kind); re-adding the same triple is idempotent.
func DeriveRelationshipID(sourceID, targetID string, kind RelationshipKind) string {
	sum := blake2b.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%s", sourceID, targetID, kind)))
	return hex.EncodeToString(sum[:16])
}

// NewRelationship builds a Relationship with its id derived per
// DeriveRelationshipID.
func NewRelationship(sourceID, targetID string, kind RelationshipKind) *Relationship {
	return &Relationship{
		ID:       DeriveRelationshipID(sourceID, targetID, kind),
		SourceID: sourceID,
		TargetID: targetID,
		Kind:     kind,
		Metadata: make(map[string]interface{}),
	}
}
