package grammar

import (
	"fmt"
	"sort"
	"strings"
)

// Definitions is an arena of entities indexed by scoped identifier.
//
// Inheritance is modeled as parent links stored by identifier; BaseChain and
// AllOperations walk those links explicitly instead of following pointers.
// A Definitions value is immutable once built and safe for concurrent reads.
type Definitions struct {
	byID  map[string]Entity
	order []string
}

// NewDefinitions builds an arena from the entities of the given files.
// Duplicate identifiers are reported as an error.
func NewDefinitions(files ...*File) (*Definitions, error) {
	defs := &Definitions{byID: make(map[string]Entity)}
	for _, f := range files {
		for _, e := range f.Entities {
			if err := defs.add(e); err != nil {
				return nil, fmt.Errorf("%s.slice: %w", f.Filename, err)
			}
		}
	}
	return defs, nil
}

// MustDefinitions is like NewDefinitions but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustDefinitions(files ...*File) *Definitions {
	defs, err := NewDefinitions(files...)
	if err != nil {
		panic(err)
	}
	return defs
}

func (d *Definitions) add(e Entity) error {
	id := ScopedIdentifier(e)
	if _, exists := d.byID[id]; exists {
		return fmt.Errorf("duplicate definition %q", id)
	}
	d.byID[id] = e
	d.order = append(d.order, id)
	return nil
}

// Lookup returns the entity with the given scoped identifier.
func (d *Definitions) Lookup(id string) (Entity, bool) {
	e, ok := d.byID[strings.TrimPrefix(id, "::")]
	return e, ok
}

// LookupTypeID returns the entity with the given Slice type ID ("::A::B").
func (d *Definitions) LookupTypeID(typeID string) (Entity, bool) {
	if !strings.HasPrefix(typeID, "::") {
		return nil, false
	}
	return d.Lookup(typeID)
}

// IDs returns every identifier in insertion order.
func (d *Definitions) IDs() []string {
	return append([]string(nil), d.order...)
}

// Without returns a copy of the arena with the given identifiers removed.
// Used to model a peer that only knows part of a hierarchy.
func (d *Definitions) Without(ids ...string) *Definitions {
	skip := make(map[string]bool, len(ids))
	for _, id := range ids {
		skip[strings.TrimPrefix(id, "::")] = true
	}
	out := &Definitions{byID: make(map[string]Entity)}
	for _, id := range d.order {
		if skip[id] {
			continue
		}
		out.byID[id] = d.byID[id]
		out.order = append(out.order, id)
	}
	return out
}

// Resolve looks up name from within module: the innermost enclosing module is
// tried first, then each parent scope, then the global scope. Names starting
// with "::" are absolute.
func (d *Definitions) Resolve(module, name string) (string, bool) {
	if strings.HasPrefix(name, "::") {
		id := strings.TrimPrefix(name, "::")
		_, ok := d.byID[id]
		return id, ok
	}
	scope := module
	for {
		id := name
		if scope != "" {
			id = scope + "::" + name
		}
		if _, ok := d.byID[id]; ok {
			return id, true
		}
		if scope == "" {
			return "", false
		}
		if i := strings.LastIndex(scope, "::"); i >= 0 {
			scope = scope[:i]
		} else {
			scope = ""
		}
	}
}

// BaseChain returns the inheritance chain of a class or exception, root first
// and ending with the entity itself. It fails on a missing base or a cycle.
func (d *Definitions) BaseChain(e Entity) ([]Entity, error) {
	var chain []Entity
	seen := make(map[string]bool)
	cur := e
	for cur != nil {
		id := ScopedIdentifier(cur)
		if seen[id] {
			return nil, fmt.Errorf("inheritance cycle through %q", id)
		}
		seen[id] = true
		chain = append(chain, cur)

		base := baseOf(cur)
		if base == "" {
			break
		}
		next, ok := d.Lookup(base)
		if !ok {
			return nil, fmt.Errorf("%q: base %q is not defined", id, base)
		}
		if next.Kind() != cur.Kind() {
			return nil, fmt.Errorf("%q: base %q is a %s, not a %s", id, base, next.Kind(), cur.Kind())
		}
		cur = next
	}
	// Reverse so the root comes first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

func baseOf(e Entity) string {
	switch v := e.(type) {
	case *Class:
		return v.Base
	case *Exception:
		return v.Base
	default:
		return ""
	}
}

// FieldsOf returns the declared fields of a struct, class or exception.
func FieldsOf(e Entity) []Member {
	switch v := e.(type) {
	case *Struct:
		return v.Fields
	case *Class:
		return v.Fields
	case *Exception:
		return v.Fields
	default:
		return nil
	}
}

// AllFields returns the fields of e and all of its bases, root first.
func (d *Definitions) AllFields(e Entity) ([]Member, error) {
	chain, err := d.BaseChain(e)
	if err != nil {
		return nil, err
	}
	var fields []Member
	for _, level := range chain {
		fields = append(fields, FieldsOf(level)...)
	}
	return fields, nil
}

// AllOperations returns the merged operation set of an interface: the
// operations of every base (depth-first, in base declaration order) followed
// by the interface's own operations. An operation reachable through several
// paths appears once, at its first position. Two distinct operations with
// the same name are reported as a conflict; rejecting them is the front end's
// job, so this only guards against unvalidated input.
func (d *Definitions) AllOperations(i *Interface) ([]*Operation, error) {
	var ops []*Operation
	byName := make(map[string]*Operation)
	visited := make(map[string]bool)

	var walk func(iface *Interface, path []string) error
	walk = func(iface *Interface, path []string) error {
		id := ScopedIdentifier(iface)
		for _, p := range path {
			if p == id {
				return fmt.Errorf("interface inheritance cycle through %q", id)
			}
		}
		if visited[id] {
			return nil
		}
		path = append(path, id)
		for _, baseID := range iface.Bases {
			base, ok := d.Lookup(baseID)
			if !ok {
				return fmt.Errorf("%q: base interface %q is not defined", id, baseID)
			}
			baseIface, ok := base.(*Interface)
			if !ok {
				return fmt.Errorf("%q: base %q is a %s, not an interface", id, baseID, base.Kind())
			}
			if err := walk(baseIface, path); err != nil {
				return err
			}
		}
		visited[id] = true
		for _, op := range iface.Operations {
			if prev, exists := byName[op.Name]; exists {
				if prev != op {
					return fmt.Errorf("operation %q is declared by both %q and %q", op.Name, prev.Interface, op.Interface)
				}
				continue
			}
			byName[op.Name] = op
			ops = append(ops, op)
		}
		return nil
	}

	if err := walk(i, nil); err != nil {
		return nil, err
	}
	return ops, nil
}

// DerivedOf returns the identifiers of every class or exception whose chain
// includes id, excluding id itself, sorted.
func (d *Definitions) DerivedOf(id string) []string {
	id = strings.TrimPrefix(id, "::")
	var derived []string
	for _, other := range d.order {
		if other == id {
			continue
		}
		chain, err := d.BaseChain(d.byID[other])
		if err != nil {
			continue
		}
		for _, level := range chain[:len(chain)-1] {
			if ScopedIdentifier(level) == id {
				derived = append(derived, other)
				break
			}
		}
	}
	sort.Strings(derived)
	return derived
}
