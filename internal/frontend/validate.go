package frontend

import (
	"fmt"

	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
)

// Validate checks a complete set of compiled files, resolves every entity
// reference in place to its scoped identifier and returns the definitions
// arena. Returns all errors found (does not fail-fast). The arena is nil
// when duplicate identifiers prevent building it.
func Validate(files []*grammar.File) (*grammar.Definitions, []ValidationError) {
	v := &validator{}

	v.checkFiles(files)
	if len(v.errs) > 0 {
		return nil, v.errs
	}

	defs, err := grammar.NewDefinitions(files...)
	if err != nil {
		// checkFiles reports duplicates; this only guards the invariant.
		v.errs = append(v.errs, ValidationError{Field: "definitions", Message: err.Error(), Code: ErrDuplicateDefinition})
		return nil, v.errs
	}
	v.defs = defs

	for _, f := range files {
		v.file = f
		for _, e := range f.Entities {
			v.resolveEntity(e)
		}
	}
	if len(v.errs) > 0 {
		return defs, v.errs
	}

	compactIDs := make(map[uint32]string)
	for _, f := range files {
		v.file = f
		for _, e := range f.Entities {
			switch e := e.(type) {
			case *grammar.Struct:
				v.checkStruct(e)
			case *grammar.Class:
				v.checkSliced(e, e.Base, e.Fields)
				if e.CompactID != nil {
					id := grammar.ScopedIdentifier(e)
					if prev, ok := compactIDs[*e.CompactID]; ok {
						v.add(id, ErrDuplicateCompactID, "compact type ID %d is already used by %q", *e.CompactID, prev)
					} else {
						compactIDs[*e.CompactID] = id
					}
				}
			case *grammar.Exception:
				v.checkSliced(e, e.Base, e.Fields)
			case *grammar.Enum:
				v.checkEnum(e)
			case *grammar.Interface:
				v.checkInterface(e)
			}
		}
	}
	return defs, v.errs
}

type validator struct {
	defs *grammar.Definitions
	file *grammar.File
	errs []ValidationError
}

func (v *validator) add(field, code, format string, args ...any) {
	var file string
	if v.file != nil {
		file = v.file.Filename
	}
	v.errs = append(v.errs, ValidationError{
		File:    file,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	})
}

func (v *validator) checkFiles(files []*grammar.File) {
	names := make(map[string]bool)
	ids := make(map[string]string)
	for _, f := range files {
		v.file = f
		if names[f.Filename] {
			v.add("file", ErrDuplicateDefinition, "duplicate file name %q", f.Filename)
		}
		names[f.Filename] = true

		if f.Module == nil && len(f.Entities) > 0 {
			v.add("module", ErrMissingModule, "definitions must be declared inside a module")
		}
		for _, e := range f.Entities {
			id := grammar.ScopedIdentifier(e)
			if prev, ok := ids[id]; ok {
				v.add(id, ErrDuplicateDefinition, "duplicate definition %q, first declared in %s.slice", id, prev)
				continue
			}
			ids[id] = f.Filename
		}
	}
	v.file = nil
}

// resolve rewrites a reference to its scoped identifier.
func (v *validator) resolve(field, module string, name *string) bool {
	id, ok := v.defs.Resolve(module, *name)
	if !ok {
		v.add(field, ErrUnresolvedReference, "unresolved reference %q", *name)
		return false
	}
	*name = id
	return true
}

func (v *validator) resolveType(field, module string, t *grammar.TypeRef) {
	switch t.Kind {
	case grammar.TypeSequence:
		v.resolveType(field, module, t.Element)
	case grammar.TypeDictionary:
		v.resolveType(field, module, t.Key)
		v.resolveType(field, module, t.Element)
	case grammar.TypeNamed:
		v.resolve(field, module, &t.Name)
	}
}

func (v *validator) resolveMembers(owner, module string, members []grammar.Member) {
	for i := range members {
		v.resolveType(owner+"."+members[i].Name, module, &members[i].Type)
	}
}

func (v *validator) resolveEntity(e grammar.Entity) {
	id := grammar.ScopedIdentifier(e)
	module := e.Scope()
	switch e := e.(type) {
	case *grammar.Struct:
		v.resolveMembers(id, module, e.Fields)
	case *grammar.Class:
		if e.Base != "" {
			v.resolve(id+".base", module, &e.Base)
		}
		v.resolveMembers(id, module, e.Fields)
	case *grammar.Exception:
		if e.Base != "" {
			v.resolve(id+".base", module, &e.Base)
		}
		v.resolveMembers(id, module, e.Fields)
	case *grammar.Enum:
	case *grammar.Interface:
		for k := range e.Bases {
			v.resolve(id+".bases", module, &e.Bases[k])
		}
		for _, op := range e.Operations {
			field := id + "." + op.Name
			for k := range op.Parameters {
				v.resolveType(field+"."+op.Parameters[k].Name, module, &op.Parameters[k].Type)
			}
			if op.Return != nil {
				v.resolveType(field+".returns", module, op.Return)
			}
			for k := range op.Raises {
				v.resolve(field+".raises", module, &op.Raises[k])
			}
		}
	}
}

// checkMembers validates one member list: unique names, unique tags,
// optional tagged types and valid dictionary keys.
func (v *validator) checkMembers(owner string, members []grammar.Member) {
	names := make(map[string]bool)
	tags := make(map[int32]string)
	for _, m := range members {
		field := owner + "." + m.Name
		if names[m.Name] {
			v.add(field, ErrDuplicateMember, "duplicate member name %q", m.Name)
		}
		names[m.Name] = true

		if m.IsTagged() {
			if prev, ok := tags[*m.Tag]; ok {
				v.add(field, ErrDuplicateTag, "tag %d is already used by %q", *m.Tag, prev)
			} else {
				tags[*m.Tag] = m.Name
			}
			if !m.Type.Optional {
				v.add(field, ErrTaggedNotOptional, "tagged member must have an optional type, got %s", m.Type)
			}
		}
		v.checkDictionaries(field, m.Type)
	}
}

func (v *validator) checkDictionaries(field string, t grammar.TypeRef) {
	switch t.Kind {
	case grammar.TypeSequence:
		v.checkDictionaries(field, *t.Element)
	case grammar.TypeDictionary:
		if !v.validKey(*t.Key, nil) {
			v.add(field, ErrInvalidDictionary, "%s is not a valid dictionary key type", t.Key)
		}
		v.checkDictionaries(field, *t.Element)
	}
}

// validKey reports whether t can be used as a dictionary key: a non-optional
// integral, bool or string primitive, an enum, or a compact struct made of
// valid keys.
func (v *validator) validKey(t grammar.TypeRef, seen map[string]bool) bool {
	if t.Optional {
		return false
	}
	switch t.Kind {
	case grammar.TypePrimitive:
		return t.Primitive.IsIntegral() || t.Primitive == grammar.Bool || t.Primitive == grammar.String
	case grammar.TypeNamed:
		e, ok := v.defs.Lookup(t.Name)
		if !ok {
			return false
		}
		switch e := e.(type) {
		case *grammar.Enum:
			return true
		case *grammar.Struct:
			if !e.Compact || seen[t.Name] {
				return false
			}
			if seen == nil {
				seen = make(map[string]bool)
			}
			seen[t.Name] = true
			for _, f := range e.Fields {
				if !v.validKey(f.Type, seen) {
					return false
				}
			}
			return true
		}
	}
	return false
}

func (v *validator) checkStruct(s *grammar.Struct) {
	id := grammar.ScopedIdentifier(s)
	v.checkMembers(id, s.Fields)
	if s.Compact {
		for _, f := range s.Fields {
			if f.IsTagged() {
				v.add(id+"."+f.Name, ErrCompactTagged, "compact struct cannot have tagged fields")
			}
		}
	}
}

// checkSliced validates a class or exception: base kind, acyclic
// inheritance and member names unique across the whole chain.
func (v *validator) checkSliced(e grammar.Entity, base string, fields []grammar.Member) {
	id := grammar.ScopedIdentifier(e)
	v.checkMembers(id, fields)

	if base != "" {
		b, _ := v.defs.Lookup(base)
		if b.Kind() != e.Kind() {
			v.add(id+".base", ErrWrongBaseKind, "base %q is a %s, not a %s", base, b.Kind(), e.Kind())
			return
		}
	}
	all, err := v.defs.AllFields(e)
	if err != nil {
		v.add(id+".base", ErrInheritanceCycle, "%v", err)
		return
	}
	names := make(map[string]bool)
	for _, f := range all[:len(all)-len(fields)] {
		names[f.Name] = true
	}
	for _, f := range fields {
		if names[f.Name] {
			v.add(id+"."+f.Name, ErrDuplicateMember, "field %q shadows an inherited field", f.Name)
		}
	}
}

func (v *validator) checkEnum(e *grammar.Enum) {
	id := grammar.ScopedIdentifier(e)
	underlying := grammar.VarInt32
	if e.Underlying != nil {
		underlying = *e.Underlying
		if !underlying.IsIntegral() {
			v.add(id, ErrEnumUnderlying, "underlying type %s is not an integral type", underlying)
			return
		}
	}
	if len(e.Enumerators) == 0 && !e.Unchecked {
		v.add(id, ErrEmptyEnum, "enum must have at least one enumerator")
	}

	lo, hi := underlying.Range()
	names := make(map[string]bool)
	values := make(map[int64]string)
	for _, en := range e.Enumerators {
		field := id + "." + en.Name
		if names[en.Name] {
			v.add(field, ErrDuplicateMember, "duplicate enumerator name %q", en.Name)
		}
		names[en.Name] = true
		if prev, ok := values[en.Value]; ok {
			v.add(field, ErrDuplicateEnumerator, "value %d is already used by %q", en.Value, prev)
		} else {
			values[en.Value] = en.Name
		}
		if en.Value < lo || (en.Value > 0 && uint64(en.Value) > hi) {
			v.add(field, ErrEnumeratorRange, "value %d is outside the range of %s", en.Value, underlying)
		}
	}
}

func (v *validator) checkInterface(i *grammar.Interface) {
	id := grammar.ScopedIdentifier(i)

	for _, baseID := range i.Bases {
		b, _ := v.defs.Lookup(baseID)
		if b.Kind() != grammar.KindInterface {
			v.add(id+".bases", ErrWrongBaseKind, "base %q is a %s, not an interface", baseID, b.Kind())
			return
		}
	}

	ops := make(map[string]bool)
	for _, op := range i.Operations {
		field := id + "." + op.Name
		if ops[op.Name] {
			v.add(field, ErrDuplicateMember, "duplicate operation name %q", op.Name)
		}
		ops[op.Name] = true

		v.checkMembers(field, op.Inputs())
		v.checkMembers(field+".outputs", op.Outputs())

		for _, ex := range op.Raises {
			e, _ := v.defs.Lookup(ex)
			if e.Kind() != grammar.KindException {
				v.add(field+".raises", ErrRaisesNotException, "%q is a %s, not an exception", ex, e.Kind())
			}
		}
	}

	if v.interfaceCycle(i, nil) {
		v.add(id+".bases", ErrInheritanceCycle, "interface inheritance cycle through %q", id)
		return
	}
	if _, err := v.defs.AllOperations(i); err != nil {
		v.add(id, ErrOperationConflict, "%v", err)
	}
}

func (v *validator) interfaceCycle(i *grammar.Interface, path []string) bool {
	id := grammar.ScopedIdentifier(i)
	for _, p := range path {
		if p == id {
			return true
		}
	}
	path = append(path, id)
	for _, baseID := range i.Bases {
		base, ok := v.defs.Lookup(baseID)
		if !ok {
			continue
		}
		if bi, ok := base.(*grammar.Interface); ok && v.interfaceCycle(bi, path) {
			return true
		}
	}
	return false
}
