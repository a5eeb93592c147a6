package manifest

import (
	"google.golang.org/protobuf/types/known/structpb"
)

// ToStructPB converts v to a protobuf structpb.Value, the representation
// used at the distnet wire boundary when a peer speaks protobuf-native
// tooling rather than this repo's own CBOR envelopes. Object key order
// is not preserved, matching structpb.Struct's own map-backed Fields.
func (v Value) ToStructPB() (*structpb.Value, error) {
	switch v.Kind {
	case KindNull:
		return structpb.NewNullValue(), nil
	case KindBool:
		return structpb.NewBoolValue(v.Bool), nil
	case KindNumber:
		return structpb.NewNumberValue(v.Num), nil
	case KindString:
		return structpb.NewStringValue(v.Str), nil
	case KindArray:
		vals := make([]*structpb.Value, len(v.Arr))
		for i, e := range v.Arr {
			pv, err := e.ToStructPB()
			if err != nil {
				return nil, err
			}
			vals[i] = pv
		}
		return structpb.NewListValue(&structpb.ListValue{Values: vals}), nil
	case KindObject:
		fields := make(map[string]*structpb.Value, len(v.Obj))
		for _, e := range v.Obj {
			pv, err := e.Value.ToStructPB()
			if err != nil {
				return nil, err
			}
			fields[e.Key] = pv
		}
		return structpb.NewStructValue(&structpb.Struct{Fields: fields}), nil
	}
	return structpb.NewNullValue(), nil
}

// FromStructPB converts a protobuf structpb.Value back into a Value.
func FromStructPB(pv *structpb.Value) Value {
	if pv == nil {
		return Null()
	}
	switch k := pv.GetKind().(type) {
	case *structpb.Value_NullValue:
		return Null()
	case *structpb.Value_BoolValue:
		return Bool(k.BoolValue)
	case *structpb.Value_NumberValue:
		return Number(k.NumberValue)
	case *structpb.Value_StringValue:
		return String(k.StringValue)
	case *structpb.Value_ListValue:
		vs := k.ListValue.GetValues()
		out := make([]Value, len(vs))
		for i, e := range vs {
			out[i] = FromStructPB(e)
		}
		return Array(out)
	case *structpb.Value_StructValue:
		fields := k.StructValue.GetFields()
		entries := make([]ObjectEntry, 0, len(fields))
		for key, val := range fields {
			entries = append(entries, ObjectEntry{Key: key, Value: FromStructPB(val)})
		}
		return Object(entries...)
	}
	return Null()
}
