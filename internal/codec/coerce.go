package codec

import (
	"fmt"
	"math"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
)

// TypeKey names the concrete type of a class or exception in a plain map.
const TypeKey = "$type"

// Coerce converts a plain value, as decoded from YAML or JSON, into the typed
// value the codec expects for t. Structs, classes and exceptions are maps of
// field names (classes and exceptions may name their concrete type under
// TypeKey), enums are enumerator names or integers, dictionaries are maps or
// lists of {key, value} pairs.
func (c *Codec) Coerce(t grammar.TypeRef, raw any) (any, error) {
	if raw == nil {
		if t.Optional {
			return nil, nil
		}
		return nil, errors.Newf("null value for non-optional %s", t)
	}
	t = t.AsRequired()

	switch t.Kind {
	case grammar.TypePrimitive:
		return c.coercePrimitive(t.Primitive, raw)
	case grammar.TypeSequence:
		items, ok := raw.([]any)
		if !ok {
			return nil, errors.Newf("%s expects a list, got %T", t, raw)
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := c.Coerce(*t.Element, item)
			if err != nil {
				return nil, errors.Wrapf(err, "element %d", i)
			}
			out[i] = v
		}
		return out, nil
	case grammar.TypeDictionary:
		return c.coerceDictionary(t, raw)
	case grammar.TypeNamed:
		e, err := c.lookup(t.Name)
		if err != nil {
			return nil, err
		}
		return c.coerceEntity(e, raw)
	}
	return nil, errors.Newf("unknown type kind %d", t.Kind)
}

func (c *Codec) coercePrimitive(p grammar.Primitive, raw any) (any, error) {
	switch {
	case p == grammar.Bool:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
	case p == grammar.String:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	case p == grammar.Float32 || p == grammar.Float64:
		f, ok := toFloat(raw)
		if !ok {
			break
		}
		if p == grammar.Float32 {
			return float32(f), nil
		}
		return f, nil
	case p == grammar.AnyClass:
		m, ok := raw.(map[string]any)
		if !ok {
			break
		}
		typeID, ok := m[TypeKey].(string)
		if !ok {
			return nil, errors.Newf("AnyClass value needs %q", TypeKey)
		}
		e, err := c.lookup(typeID)
		if err != nil {
			return nil, err
		}
		return c.coerceEntity(e, raw)
	case p.IsIntegral():
		if u, ok := raw.(uint64); ok {
			if u > math.MaxInt64 {
				if p != grammar.UInt64 {
					break
				}
				return u, nil
			}
			raw = int64(u)
		}
		n, ok := toInt(raw)
		if !ok {
			break
		}
		return intOf(p, n)
	}
	return nil, errors.Newf("%s expects a %s value, got %T", p, p, raw)
}

func toInt(raw any) (int64, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<63 {
			return int64(n), true
		}
	}
	return 0, false
}

func toFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func (c *Codec) coerceDictionary(t grammar.TypeRef, raw any) (any, error) {
	var pairs [][2]any
	switch m := raw.(type) {
	case map[string]any:
		for k, v := range m {
			pairs = append(pairs, [2]any{k, v})
		}
	case map[any]any:
		for k, v := range m {
			pairs = append(pairs, [2]any{k, v})
		}
	case []any:
		for i, item := range m {
			entry, ok := item.(map[string]any)
			if !ok {
				return nil, errors.Newf("entry %d of %s must be a {key, value} map", i, t)
			}
			pairs = append(pairs, [2]any{entry["key"], entry["value"]})
		}
	default:
		return nil, errors.Newf("%s expects a map, got %T", t, raw)
	}
	if _, isList := raw.([]any); !isList {
		sort.Slice(pairs, func(i, j int) bool {
			return fmt.Sprint(pairs[i][0]) < fmt.Sprint(pairs[j][0])
		})
	}

	dict := &Dictionary{Entries: make([]DictEntry, 0, len(pairs))}
	for _, kv := range pairs {
		k, err := c.Coerce(*t.Key, kv[0])
		if err != nil {
			return nil, errors.Wrapf(err, "key %v", kv[0])
		}
		v, err := c.Coerce(*t.Element, kv[1])
		if err != nil {
			return nil, errors.Wrapf(err, "value of %v", kv[0])
		}
		dict.Entries = append(dict.Entries, DictEntry{Key: k, Value: v})
	}
	return dict, nil
}

func (c *Codec) coerceEntity(e grammar.Entity, raw any) (any, error) {
	switch def := e.(type) {
	case *grammar.Enum:
		return c.coerceEnum(def, raw)
	case *grammar.Interface:
		s, ok := raw.(string)
		if !ok {
			return nil, errors.Newf("proxy %s expects a service address string", grammar.TypeID(def))
		}
		return ServiceAddress(s), nil
	}

	m, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.Newf("%s expects a map, got %T", grammar.TypeID(e), raw)
	}
	actual := e
	if name, ok := m[TypeKey].(string); ok && e.Kind() != grammar.KindStruct {
		var err error
		if actual, err = c.checkDerived(name, e); err != nil {
			return nil, err
		}
	}
	members, err := c.defs.AllFields(actual)
	if err != nil {
		return nil, err
	}
	fields, err := c.coerceFields(members, m)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", grammar.TypeID(actual))
	}
	typeID := grammar.TypeID(actual)
	switch actual.Kind() {
	case grammar.KindStruct:
		return &StructValue{TypeID: typeID, Fields: fields}, nil
	case grammar.KindClass:
		return &ClassValue{TypeID: typeID, Fields: fields}, nil
	default:
		return &ExceptionValue{TypeID: typeID, Fields: fields}, nil
	}
}

// CoerceMembers converts a plain map into member values, as used for
// operation arguments and results.
func (c *Codec) CoerceMembers(members []grammar.Member, raw map[string]any) (map[string]any, error) {
	return c.coerceFields(members, raw)
}

func (c *Codec) coerceFields(members []grammar.Member, raw map[string]any) (map[string]any, error) {
	known := make(map[string]bool, len(members))
	fields := make(map[string]any, len(members))
	for _, m := range members {
		known[m.Name] = true
		v, present := raw[m.Name]
		if !present || v == nil {
			if m.Type.Optional || m.IsTagged() {
				continue
			}
			return nil, errors.Newf("missing field %q", m.Name)
		}
		typed, err := c.Coerce(m.Type.AsOptional(), v)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", m.Name)
		}
		fields[m.Name] = typed
	}
	for name := range raw {
		if name != TypeKey && !known[name] {
			return nil, errors.Newf("unknown field %q", name)
		}
	}
	return fields, nil
}

func (c *Codec) coerceEnum(def *grammar.Enum, raw any) (any, error) {
	typeID := grammar.TypeID(def)
	if name, ok := raw.(string); ok {
		for _, e := range def.Enumerators {
			if e.Name == name {
				return EnumValue{TypeID: typeID, Name: e.Name, Value: e.Value}, nil
			}
		}
		return nil, errors.Newf("%s has no enumerator %q", typeID, name)
	}
	n, ok := toInt(raw)
	if !ok {
		return nil, errors.Newf("%s expects a name or integer, got %T", typeID, raw)
	}
	// Invalid integers are kept so scenarios can exercise rejection.
	name, _ := checkEnumerator(def, n)
	return EnumValue{TypeID: typeID, Name: name, Value: n}, nil
}
