// Package confidence scores how complete and self-certain a draft
// extraction is. The score drives the orchestrator's escalation decision.
package confidence

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// MarkerSuffix is the field-name suffix the extraction schemas use for
// per-field confidence markers. Marker fields are never counted as data.
const MarkerSuffix = "_confidence"

// ObjectMarker is the field name of an object-level certainty marker. It
// applies to every sibling field unless a per-field marker overrides it.
const ObjectMarker = "confidence"

// Kind discriminates the tagged union of extractable values.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is one node of an extraction tree. Exactly the fields relevant to
// its Kind are populated.
type Value struct {
	Kind   Kind
	Bool   bool
	Number float64
	Str    string
	Items  []Value
	Fields []Field
}

// Field is a named child of an object node. Fields keep a stable order so
// scoring is deterministic regardless of JSON map iteration.
type Field struct {
	Key   string
	Value Value
}

// Null returns the null value.
func Null() Value { return Value{Kind: KindNull} }

// FromJSON parses raw provider JSON into a Value tree.
func FromJSON(raw []byte) (Value, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Null(), eris.Wrap(err, "confidence: parse json")
	}
	return FromAny(v), nil
}

// FromAny converts a decoded JSON value (map/slice/scalar) into a Value tree.
// Object keys are sorted for deterministic traversal.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case bool:
		return Value{Kind: KindBool, Bool: t}
	case float64:
		return Value{Kind: KindNumber, Number: t}
	case string:
		return Value{Kind: KindString, Str: t}
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = FromAny(e)
		}
		return Value{Kind: KindArray, Items: items}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, len(keys))
		for i, k := range keys {
			fields[i] = Field{Key: k, Value: FromAny(t[k])}
		}
		return Value{Kind: KindObject, Fields: fields}
	default:
		return Null()
	}
}

// tally accumulates field counts during the walk.
type tally struct {
	total  int
	filled int
	high   int
}

// Score evaluates an extraction tree. Every field that is not a marker
// counts toward the total; a field counts as filled when its value is
// non-null, non-empty and of non-zero length; a filled field counts as
// high-confidence when its own "<name>_confidence" marker is "high", or,
// absent one, when the enclosing object's "confidence" marker is "high".
//
// Score = 0.6*(filled/total) + 0.4*(high/filled). Empty tree scores 0.
func Score(root Value) float64 {
	var t tally
	walk(root, &t)

	if t.total == 0 {
		return 0
	}
	completeness := float64(t.filled) / float64(t.total)
	certainty := 0.0
	if t.filled > 0 {
		certainty = float64(t.high) / float64(t.filled)
	}
	return 0.6*completeness + 0.4*certainty
}

func walk(v Value, t *tally) {
	switch v.Kind {
	case KindObject:
		// Index sibling markers first.
		markers := make(map[string]string)
		objectLevel := ""
		for _, f := range v.Fields {
			if f.Value.Kind != KindString {
				continue
			}
			if f.Key == ObjectMarker {
				objectLevel = strings.ToLower(f.Value.Str)
			} else if strings.HasSuffix(f.Key, MarkerSuffix) {
				base := strings.TrimSuffix(f.Key, MarkerSuffix)
				markers[base] = strings.ToLower(f.Value.Str)
			}
		}
		for _, f := range v.Fields {
			if strings.HasSuffix(f.Key, MarkerSuffix) || (f.Key == ObjectMarker && f.Value.Kind == KindString) {
				continue
			}
			t.total++
			if isFilled(f.Value) {
				t.filled++
				marker, ok := markers[f.Key]
				if !ok {
					marker = objectLevel
				}
				if marker == "high" {
					t.high++
				}
			}
			walk(f.Value, t)
		}
	case KindArray:
		for _, it := range v.Items {
			walk(it, t)
		}
	}
}

// isFilled reports whether a value carries data: non-null, non-empty string,
// non-zero-length array/object. Zero numbers and false booleans are data.
func isFilled(v Value) bool {
	switch v.Kind {
	case KindNull:
		return false
	case KindString:
		return strings.TrimSpace(v.Str) != ""
	case KindArray:
		return len(v.Items) > 0
	case KindObject:
		return len(v.Fields) > 0
	default:
		return true
	}
}
