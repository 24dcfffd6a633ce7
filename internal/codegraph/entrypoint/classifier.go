package entrypoint

import (
	"context"

	"dev.helix.code/internal/codegraph/graph"
	"dev.helix.code/internal/codegraph/model"
)

// Result summarizes one Classify run.
type Result struct {
	NodesScanned int
	NodesMatched int
}

// Classify scans every function/method node in g, scoring it against its
// language's pattern bank. Multiple matches sum, capped at 1 (spec §4.9).
// A match writes `entry_point_confidence` and `entry_point_pattern` into
// the node's metadata via AddNode, which also invalidates classify()'s
// memoized cache as a side effect of the mutation.
func Classify(ctx context.Context, g *graph.Graph) Result {
	var result Result

	for _, n := range g.AllNodes() {
		if n.Kind != model.KindFunction && n.Kind != model.KindMethod {
			continue
		}
		result.NodesScanned++

		patterns := PatternBank[n.Language]
		if len(patterns) == 0 {
			continue
		}

		decorators := decoratorsOf(n)
		var confidence float64
		var matchedKinds []string
		for _, p := range patterns {
			if !p.matches(n.Name, decorators) {
				continue
			}
			confidence += p.Confidence
			matchedKinds = append(matchedKinds, p.Kind)
		}
		if confidence == 0 {
			continue
		}
		if confidence > 1 {
			confidence = 1
		}

		updated := n
		if updated.Metadata == nil {
			updated.Metadata = make(map[string]interface{})
		}
		updated.Metadata["entry_point_confidence"] = confidence
		updated.Metadata["entry_point_pattern"] = matchedKinds

		g.AddNode(ctx, &updated)
		result.NodesMatched++
	}

	return result
}

func decoratorsOf(n model.Node) []string {
	raw, ok := n.Metadata["decorators"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
