package convert

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// ToJSON renders v as the structured-text form of spec.md §6.3: the
// JSON-native variants map directly, and the non-JSON variants (Tuple,
// Bytes, Ellipsis, Exception, Cycle) are emitted under reserved keys so a
// generic JSON reader can still distinguish them from an ordinary
// object/array.
func ToJSON(v Value) (interface{}, error) {
	switch v.Kind {
	case KindNone:
		return nil, nil
	case KindBool:
		return v.Bool, nil
	case KindInt:
		return v.Int, nil
	case KindFloat:
		return v.Float, nil
	case KindStr:
		return v.Str, nil
	case KindList:
		return toJSONList(v.Items)
	case KindDict:
		out := make(map[string]interface{}, len(v.Pairs))
		for _, p := range v.Pairs {
			if p.Key.Kind != KindStr {
				return nil, fmt.Errorf("convert: dict key of kind %d is not a string, cannot render as structured text", p.Key.Kind)
			}
			jv, err := ToJSON(p.Val)
			if err != nil {
				return nil, err
			}
			out[p.Key.Str] = jv
		}
		return out, nil
	case KindTuple:
		items, err := toJSONList(v.Items)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"$tuple": items}, nil
	case KindSet:
		items, err := toJSONList(v.Items)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"$set": items}, nil
	case KindBytes:
		return map[string]interface{}{"$bytes": base64.StdEncoding.EncodeToString(v.Bytes)}, nil
	case KindEllipsis:
		return map[string]interface{}{"$ellipsis": true}, nil
	case KindException:
		return map[string]interface{}{"$exception": map[string]interface{}{
			"type": v.Exc.Type, "message": v.Exc.Message, "traceback": v.Exc.Traceback,
		}}, nil
	case KindCycle:
		return map[string]interface{}{"$cycle": v.CycleID, "placeholder": v.CyclePlaceholder}, nil
	case KindRepr:
		return map[string]interface{}{"$repr": v.Str}, nil
	default:
		return nil, fmt.Errorf("convert: unknown value kind %d", v.Kind)
	}
}

func toJSONList(items []Value) ([]interface{}, error) {
	out := make([]interface{}, len(items))
	for i, item := range items {
		jv, err := ToJSON(item)
		if err != nil {
			return nil, err
		}
		out[i] = jv
	}
	return out, nil
}

// Marshal renders v as a JSON document per the structured-text target.
func Marshal(v Value) ([]byte, error) {
	tree, err := ToJSON(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}

// FromJSON reads a structured-text tree back into a Value, recognizing
// the reserved $tuple/$set/$bytes/$ellipsis/$exception/$cycle keys.
func FromJSON(x interface{}) (Value, error) {
	switch t := x.(type) {
	case nil:
		return None(), nil
	case bool:
		return Bool(t), nil
	case float64:
		if t == float64(int64(t)) {
			return Int(int64(t)), nil
		}
		return Float(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Float(f), nil
	case string:
		return Str(t), nil
	case []interface{}:
		items := make([]Value, len(t))
		for i, elem := range t {
			v, err := FromJSON(elem)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return List(items), nil
	case map[string]interface{}:
		return objectFromJSON(t)
	default:
		return Value{}, fmt.Errorf("convert: unsupported JSON value %T", x)
	}
}

func objectFromJSON(m map[string]interface{}) (Value, error) {
	if raw, ok := m["$tuple"]; ok {
		items, ok := raw.([]interface{})
		if !ok {
			return Value{}, fmt.Errorf("convert: $tuple value must be an array")
		}
		v, err := FromJSON(items)
		if err != nil {
			return Value{}, err
		}
		return Tuple(v.Items), nil
	}
	if raw, ok := m["$set"]; ok {
		items, ok := raw.([]interface{})
		if !ok {
			return Value{}, fmt.Errorf("convert: $set value must be an array")
		}
		v, err := FromJSON(items)
		if err != nil {
			return Value{}, err
		}
		return SetOf(v.Items), nil
	}
	if raw, ok := m["$bytes"]; ok {
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("convert: $bytes value must be a base64 string")
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return Value{}, err
		}
		return Bytes(b), nil
	}
	if _, ok := m["$ellipsis"]; ok {
		return Ellipsis(), nil
	}
	if raw, ok := m["$exception"]; ok {
		em, ok := raw.(map[string]interface{})
		if !ok {
			return Value{}, fmt.Errorf("convert: $exception value must be an object")
		}
		exc := &Exception{}
		if s, ok := em["type"].(string); ok {
			exc.Type = s
		}
		if s, ok := em["message"].(string); ok {
			exc.Message = s
		}
		if raw, ok := em["traceback"].([]interface{}); ok {
			for _, entry := range raw {
				if s, ok := entry.(string); ok {
					exc.Traceback = append(exc.Traceback, s)
				}
			}
		}
		return Value{Kind: KindException, Exc: exc}, nil
	}
	if raw, ok := m["$cycle"]; ok {
		var id int64
		switch n := raw.(type) {
		case float64:
			id = int64(n)
		case json.Number:
			id, _ = n.Int64()
		}
		placeholder, _ := m["placeholder"].(string)
		return Value{Kind: KindCycle, CycleID: id, CyclePlaceholder: placeholder}, nil
	}
	if raw, ok := m["$repr"]; ok {
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("convert: $repr value must be a string")
		}
		return Repr(s), nil
	}
	pairs := make([]Pair, 0, len(m))
	for k, raw := range m {
		v, err := FromJSON(raw)
		if err != nil {
			return Value{}, err
		}
		pairs = append(pairs, Pair{Key: Str(k), Val: v})
	}
	return Dict(pairs), nil
}

// Unmarshal parses a JSON document into a Value.
func Unmarshal(data []byte) (Value, error) {
	var x interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&x); err != nil {
		return Value{}, err
	}
	return FromJSON(x)
}
