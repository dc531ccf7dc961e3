package frontend

import (
	"fmt"
	"math"

	"cuelang.org/go/cue"

	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
)

// entityKinds lists the keys that select the entity kind of a definition.
var entityKinds = []string{"struct", "class", "exception", "enum", "interface"}

// CompileFile parses one CUE value into a Slice file. defaultName is used
// when the value carries no "file" field.
//
// References to other entities are recorded as written; call Validate on the
// complete set of files to resolve them.
func CompileFile(v cue.Value, defaultName string) (*grammar.File, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	name, err := optString(v, "file")
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = defaultName
	}
	file := &grammar.File{Filename: name}

	module, err := optString(v, "module")
	if err != nil {
		return nil, err
	}
	namespace, err := optString(v, "cs_namespace")
	if err != nil {
		return nil, err
	}
	if module != "" {
		file.Module = &grammar.Module{Name: module, CSNamespace: namespace}
	}

	defsVal := v.LookupPath(cue.ParsePath("definitions"))
	if !defsVal.Exists() {
		return file, nil
	}
	iter, err := defsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		e, err := compileEntity(iter.Value(), module)
		if err != nil {
			return nil, err
		}
		file.Entities = append(file.Entities, e)
	}
	return file, nil
}

func compileEntity(v cue.Value, module string) (grammar.Entity, error) {
	kind := ""
	for _, k := range entityKinds {
		if v.LookupPath(cue.ParsePath(k)).Exists() {
			if kind != "" {
				return nil, &CompileError{
					Field:   "kind",
					Message: fmt.Sprintf("definition is both a %s and a %s", kind, k),
					Pos:     v.Pos(),
				}
			}
			kind = k
		}
	}
	if kind == "" {
		return nil, &CompileError{
			Field:   "kind",
			Message: "definition must have one of struct, class, exception, enum or interface",
			Pos:     v.Pos(),
		}
	}

	name, err := optString(v, kind)
	if err != nil {
		return nil, err
	}
	if !isIdentifier(name) {
		return nil, &CompileError{Field: "name", Message: fmt.Sprintf("invalid %s name %q", kind, name), Pos: v.Pos()}
	}
	doc, err := optString(v, "doc")
	if err != nil {
		return nil, err
	}
	def := grammar.Definition{Name: name, Module: module, Doc: doc}

	switch kind {
	case "struct":
		fields, err := compileMembers(v, "fields")
		if err != nil {
			return nil, err
		}
		compact, err := optBool(v, "compact")
		if err != nil {
			return nil, err
		}
		return &grammar.Struct{Definition: def, Fields: fields, Compact: compact}, nil

	case "class":
		fields, err := compileMembers(v, "fields")
		if err != nil {
			return nil, err
		}
		base, err := optString(v, "base")
		if err != nil {
			return nil, err
		}
		c := &grammar.Class{Definition: def, Base: base, Fields: fields}
		if idVal := v.LookupPath(cue.ParsePath("compact_id")); idVal.Exists() {
			id, err := intIn(idVal, 0, math.MaxUint32)
			if err != nil {
				return nil, err
			}
			compactID := uint32(id)
			c.CompactID = &compactID
		}
		return c, nil

	case "exception":
		fields, err := compileMembers(v, "fields")
		if err != nil {
			return nil, err
		}
		base, err := optString(v, "base")
		if err != nil {
			return nil, err
		}
		return &grammar.Exception{Definition: def, Base: base, Fields: fields}, nil

	case "enum":
		return compileEnum(v, def)

	default:
		return compileInterface(v, def)
	}
}

func compileEnum(v cue.Value, def grammar.Definition) (*grammar.Enum, error) {
	e := &grammar.Enum{Definition: def}

	underlying, err := optString(v, "underlying")
	if err != nil {
		return nil, err
	}
	if underlying != "" {
		p, ok := grammar.LookupPrimitive(underlying)
		if !ok {
			return nil, &CompileError{Field: "type", Message: fmt.Sprintf("unknown underlying type %q", underlying), Pos: v.Pos()}
		}
		e.Underlying = &p
	}
	if e.Unchecked, err = optBool(v, "unchecked"); err != nil {
		return nil, err
	}

	listVal := v.LookupPath(cue.ParsePath("enumerators"))
	if !listVal.Exists() {
		return e, nil
	}
	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	next := int64(0)
	for iter.Next() {
		ev := iter.Value()
		name, err := optString(ev, "name")
		if err != nil {
			return nil, err
		}
		if !isIdentifier(name) {
			return nil, &CompileError{Field: "name", Message: fmt.Sprintf("invalid enumerator name %q", name), Pos: ev.Pos()}
		}
		doc, err := optString(ev, "doc")
		if err != nil {
			return nil, err
		}
		value := next
		if valueVal := ev.LookupPath(cue.ParsePath("value")); valueVal.Exists() {
			if value, err = valueVal.Int64(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		e.Enumerators = append(e.Enumerators, grammar.Enumerator{Name: name, Value: value, Doc: doc})
		next = value + 1
	}
	return e, nil
}

func compileInterface(v cue.Value, def grammar.Definition) (*grammar.Interface, error) {
	i := &grammar.Interface{Definition: def}

	bases, err := optStrings(v, "bases")
	if err != nil {
		return nil, err
	}
	i.Bases = bases

	opsVal := v.LookupPath(cue.ParsePath("operations"))
	if !opsVal.Exists() {
		return i, nil
	}
	iter, err := opsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	scoped := grammar.ScopedIdentifier(i)
	for iter.Next() {
		ov := iter.Value()
		name, err := optString(ov, "name")
		if err != nil {
			return nil, err
		}
		if !isIdentifier(name) {
			return nil, &CompileError{Field: "name", Message: fmt.Sprintf("invalid operation name %q", name), Pos: ov.Pos()}
		}
		op := &grammar.Operation{Name: name, Interface: scoped}
		if op.Doc, err = optString(ov, "doc"); err != nil {
			return nil, err
		}
		if op.Idempotent, err = optBool(ov, "idempotent"); err != nil {
			return nil, err
		}
		if op.Raises, err = optStrings(ov, "raises"); err != nil {
			return nil, err
		}
		returns, err := optString(ov, "returns")
		if err != nil {
			return nil, err
		}
		if returns != "" {
			t, err := ParseType(returns)
			if err != nil {
				return nil, &CompileError{Field: "type", Message: err.Error(), Pos: ov.Pos()}
			}
			op.Return = &t
		}

		paramsVal := ov.LookupPath(cue.ParsePath("params"))
		if paramsVal.Exists() {
			piter, err := paramsVal.List()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for piter.Next() {
				m, err := compileMember(piter.Value())
				if err != nil {
					return nil, err
				}
				out, err := optBool(piter.Value(), "out")
				if err != nil {
					return nil, err
				}
				dir := grammar.In
				if out {
					dir = grammar.Out
				}
				op.Parameters = append(op.Parameters, grammar.Parameter{Member: m, Direction: dir})
			}
		}
		i.Operations = append(i.Operations, op)
	}
	return i, nil
}

func compileMembers(v cue.Value, field string) ([]grammar.Member, error) {
	listVal := v.LookupPath(cue.ParsePath(field))
	if !listVal.Exists() {
		return nil, nil
	}
	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var members []grammar.Member
	for iter.Next() {
		m, err := compileMember(iter.Value())
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

func compileMember(v cue.Value) (grammar.Member, error) {
	var m grammar.Member
	name, err := optString(v, "name")
	if err != nil {
		return m, err
	}
	if !isIdentifier(name) {
		return m, &CompileError{Field: "name", Message: fmt.Sprintf("invalid member name %q", name), Pos: v.Pos()}
	}
	m.Name = name
	if m.Doc, err = optString(v, "doc"); err != nil {
		return m, err
	}

	typ, err := optString(v, "type")
	if err != nil {
		return m, err
	}
	if m.Type, err = ParseType(typ); err != nil {
		return m, &CompileError{Field: "type", Message: err.Error(), Pos: v.Pos()}
	}

	if tagVal := v.LookupPath(cue.ParsePath("tag")); tagVal.Exists() {
		tag, err := intIn(tagVal, 0, math.MaxInt32)
		if err != nil {
			return m, err
		}
		m.Tag = grammar.Tag(int32(tag))
	}
	return m, nil
}

func optString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: "must be a string", Pos: fv.Pos()}
	}
	return s, nil
}

func optBool(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, &CompileError{Field: field, Message: "must be a bool", Pos: fv.Pos()}
	}
	return b, nil
}

func optStrings(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: fv.Pos()}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: iter.Value().Pos()}
		}
		out = append(out, s)
	}
	return out, nil
}

func intIn(v cue.Value, lo, hi int64) (int64, error) {
	n, err := v.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	if n < lo || n > hi {
		return 0, &CompileError{Field: "value", Message: fmt.Sprintf("%d is outside [%d, %d]", n, lo, hi), Pos: v.Pos()}
	}
	return n, nil
}

func isIdentifier(s string) bool {
	p := &typeParser{src: s}
	return p.ident() && p.pos == len(s)
}
