package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mindnoscape/editor/internal/log"
)

// ErrInvalidRecord is matched by every ValidationError.
var ErrInvalidRecord = errors.New("invalid node record")

// ValidationError describes why a node record could not be decoded.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidRecord, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", ErrInvalidRecord, e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidRecord) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRecord
}

// ToRecord converts node and its descendants into a JSON-compatible map.
// Timestamps are encoded as unix milliseconds.
func ToRecord(node *Node) map[string]any {
	children := make([]any, len(node.Children))
	for i, child := range node.Children {
		children[i] = ToRecord(child)
	}
	return map[string]any{
		"id":                   node.ID,
		"text":                 node.Text,
		"kind":                 node.Kind.String(),
		"description":          node.Description,
		"source":               node.Source,
		"x":                    node.X,
		"y":                    node.Y,
		"initialX":             node.InitialX,
		"initialY":             node.InitialY,
		"width":                node.Width,
		"height":               node.Height,
		"fontSize":             node.FontSize,
		"backgroundColor":      node.BackgroundColor,
		"borderColor":          node.BorderColor,
		"borderWidth":          node.BorderWidth,
		"collapsed":            node.Collapsed,
		"hasGeneratedChildren": node.HasGeneratedChildren,
		"createdAt":            node.CreatedAt.UnixMilli(),
		"lastModified":         node.LastModified.UnixMilli(),
		"children":             children,
	}
}

// FromRecord decodes a record produced by ToRecord, or any JSON object of
// the same shape. The root must carry a string id, a string text and numeric
// x and y; optional fields fall back to defaults. Children that fail to
// decode are logged and dropped.
func (f *Factory) FromRecord(data any) (*Node, error) {
	record, ok := data.(map[string]any)
	if !ok {
		return nil, &ValidationError{Reason: "must be an object"}
	}

	id, ok := record["id"].(string)
	if !ok || id == "" {
		return nil, &ValidationError{Field: "id", Reason: "is required and must be a string"}
	}
	text, ok := record["text"].(string)
	if !ok {
		return nil, &ValidationError{Field: "text", Reason: "must be a string"}
	}
	x, okX := number(record["x"])
	y, okY := number(record["y"])
	if !okX || !okY {
		return nil, &ValidationError{Field: "x/y", Reason: "must be numbers"}
	}

	kind := KindQuestion
	kindName, _ := record["kind"].(string)
	if kindName == "" {
		kindName, _ = record["tipo"].(string)
	}
	if kindName != "" {
		if parsed, err := ParseKind(kindName); err == nil {
			kind = parsed
		}
	}

	description, _ := record["description"].(string)
	source, _ := record["source"].(string)
	node := f.NewNode(id, text, x, y, kind, description, source)

	if v, ok := number(record["initialX"]); ok {
		node.InitialX = v
	}
	if v, ok := number(record["initialY"]); ok {
		node.InitialY = v
	}
	if v, ok := number(record["width"]); ok && v > 0 {
		node.Width = v
	}
	if v, ok := number(record["height"]); ok && v > 0 {
		node.Height = v
	}
	if v, ok := number(record["fontSize"]); ok && v > 0 {
		node.FontSize = v
	}
	if v, ok := record["backgroundColor"].(string); ok {
		node.BackgroundColor = v
	}
	if v, ok := record["borderColor"].(string); ok {
		node.BorderColor = v
	}
	if v, ok := number(record["borderWidth"]); ok && v >= 0 {
		node.BorderWidth = v
	}
	node.Collapsed, _ = record["collapsed"].(bool)
	node.HasGeneratedChildren, _ = record["hasGeneratedChildren"].(bool)
	if v, ok := number(record["createdAt"]); ok {
		node.CreatedAt = time.UnixMilli(int64(v))
	}
	if v, ok := number(record["lastModified"]); ok {
		node.LastModified = time.UnixMilli(int64(v))
	}

	for i, childData := range list(record["children"]) {
		child, err := f.FromRecord(childData)
		if err != nil {
			f.warn("Dropping malformed child record", log.Fields{"parentID": id, "index": i, "error": err})
			continue
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// FromJSON decodes a JSON document into a node tree.
func (f *Factory) FromJSON(data []byte) (*Node, error) {
	var record any
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse node JSON: %w", err)
	}
	return f.FromRecord(record)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func list(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case []map[string]any:
		out := make([]any, len(l))
		for i, m := range l {
			out[i] = m
		}
		return out
	default:
		return nil
	}
}
