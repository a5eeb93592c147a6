package manifest

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/eng-cc/agent-world-sub008/wire"
)

// toPlain converts v into a plain Go value (map[string]any, []any,
// string, float64, bool, nil) for canonical CBOR encoding. Canonical
// CBOR sorts map keys regardless, so Object key order is not preserved
// on the wire — only within an in-memory Value.
func (v Value) toPlain() any {
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num
	case KindString:
		return v.Str
	case KindArray:
		out := make([]any, len(v.Arr))
		for i, e := range v.Arr {
			out[i] = e.toPlain()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.Obj))
		for _, e := range v.Obj {
			out[e.Key] = e.Value.toPlain()
		}
		return out
	}
	return nil
}

// fromPlain converts a value produced by decoding CBOR/JSON into a
// Value. Object key order follows the decoder's map iteration, which
// is not guaranteed stable; callers that need a specific key order
// should build Values directly rather than round-tripping them.
func fromPlain(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case uint64:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case string:
		return String(t)
	case []any:
		out := make([]Value, len(t))
		for i, e := range t {
			out[i] = fromPlain(e)
		}
		return Array(out)
	case map[string]any:
		entries := make([]ObjectEntry, 0, len(t))
		for k, e := range t {
			entries = append(entries, ObjectEntry{Key: k, Value: fromPlain(e)})
		}
		return Object(entries...)
	default:
		return Null()
	}
}

// MarshalCBOR implements cbor.Marshaler.
func (v Value) MarshalCBOR() ([]byte, error) {
	return wire.Marshal(v.toPlain())
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (v *Value) UnmarshalCBOR(data []byte) error {
	var plain any
	if err := cbor.Unmarshal(data, &plain); err != nil {
		return err
	}
	*v = fromPlain(plain)
	return nil
}
