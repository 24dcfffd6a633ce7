package cdc

import (
	"encoding/json"
	"fmt"
	"time"

	"dev.helix.code/internal/codegraph/graph"
)

// wireEventDoc is the on-the-wire event shape from spec §6: "{id: string,
// kind: string, entity_id: string?, entity_type: string?, file_path:
// string?, timestamp: ISO-8601, payload: object}". entity_type is not
// tracked on graph.Event (the graph only knows ids), so it is always
// omitted here; consumers that need it resolve the id against C5 or C6.
type wireEventDoc struct {
	ID        string                 `json:"id"`
	Kind      string                 `json:"kind"`
	EntityID  string                 `json:"entity_id,omitempty"`
	FilePath  string                 `json:"file_path,omitempty"`
	Timestamp string                 `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

func wireEvent(e graph.Event) wireEventDoc {
	return wireEventDoc{
		ID:        fmt.Sprintf("%d", e.EventID),
		Kind:      string(e.Kind),
		EntityID:  e.EntityID,
		FilePath:  e.FilePath,
		Timestamp: e.Timestamp.Format(time.RFC3339Nano),
		Payload:   e.Payload,
	}
}

// encodeFields flattens an event into the flat string-keyed map Redis
// Streams requires; payload is JSON-encoded as a single field rather than
// expanded, keeping the stream schema stable regardless of payload shape.
func encodeFields(e graph.Event) (map[string]interface{}, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("cdc: marshaling payload: %w", err)
	}
	return map[string]interface{}{
		"event_id":  e.EventID,
		"kind":      string(e.Kind),
		"entity_id": e.EntityID,
		"file_path": e.FilePath,
		"timestamp": e.Timestamp.Format(time.RFC3339Nano),
		"payload":   string(payload),
	}, nil
}

// decodeFields is encodeFields' inverse, used by Replay.
func decodeFields(fields map[string]interface{}) (graph.Event, error) {
	var e graph.Event

	eventID, err := toInt64(fields["event_id"])
	if err != nil {
		return e, err
	}
	e.EventID = eventID
	e.Kind = graph.EventKind(toString(fields["kind"]))
	e.EntityID = toString(fields["entity_id"])
	e.FilePath = toString(fields["file_path"])

	if ts := toString(fields["timestamp"]); ts != "" {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return e, fmt.Errorf("cdc: parsing timestamp %q: %w", ts, err)
		}
		e.Timestamp = parsed
	}

	if raw := toString(fields["payload"]); raw != "" {
		if err := json.Unmarshal([]byte(raw), &e.Payload); err != nil {
			return e, fmt.Errorf("cdc: unmarshaling payload: %w", err)
		}
	}
	return e, nil
}

func toString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case string:
		var n int64
		_, err := fmt.Sscanf(t, "%d", &n)
		return n, err
	default:
		return 0, fmt.Errorf("cdc: unexpected event_id type %T", v)
	}
}
