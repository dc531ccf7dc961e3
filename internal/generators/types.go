package generators

import (
	"fmt"

	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
)

// csPrimitives maps Slice built-in types to C# types.
var csPrimitives = map[grammar.Primitive]string{
	grammar.Bool:      "bool",
	grammar.Int8:      "sbyte",
	grammar.UInt8:     "byte",
	grammar.Int16:     "short",
	grammar.UInt16:    "ushort",
	grammar.Int32:     "int",
	grammar.UInt32:    "uint",
	grammar.VarInt32:  "int",
	grammar.VarUInt32: "uint",
	grammar.Int64:     "long",
	grammar.UInt64:    "ulong",
	grammar.VarInt62:  "long",
	grammar.VarUInt62: "ulong",
	grammar.Float32:   "float",
	grammar.Float64:   "double",
	grammar.String:    "string",
	grammar.AnyClass:  "SliceClass",
}

// codecSuffix is the suffix of the SliceEncoder/SliceDecoder method for a
// primitive, e.g. EncodeVarInt62.
var codecSuffix = map[grammar.Primitive]string{
	grammar.Bool:      "Bool",
	grammar.Int8:      "Int8",
	grammar.UInt8:     "UInt8",
	grammar.Int16:     "Int16",
	grammar.UInt16:    "UInt16",
	grammar.Int32:     "Int32",
	grammar.UInt32:    "UInt32",
	grammar.VarInt32:  "VarInt32",
	grammar.VarUInt32: "VarUInt32",
	grammar.Int64:     "Int64",
	grammar.UInt64:    "UInt64",
	grammar.VarInt62:  "VarInt62",
	grammar.VarUInt62: "VarUInt62",
	grammar.Float32:   "Float32",
	grammar.Float64:   "Float64",
	grammar.String:    "String",
}

const (
	csList       = "global::System.Collections.Generic.IList"
	csDictionary = "global::System.Collections.Generic.IDictionary"
	csDictImpl   = "global::System.Collections.Generic.Dictionary"
)

// generator holds the state shared by the entity generators of one file.
type generator struct {
	defs      *grammar.Definitions
	file      *grammar.File
	opts      Options
	namespace string
	// entity names the definition being generated, for error reports.
	entity string
}

func newGenerator(file *grammar.File, defs *grammar.Definitions, opts Options) *generator {
	g := &generator{defs: defs, file: file, opts: opts}
	if file.Module != nil {
		g.namespace = file.Module.Namespace()
	}
	return g
}

func (g *generator) fail(format string, args ...any) {
	panic(&GenerateError{File: g.file.Filename, Entity: g.entity, Detail: fmt.Sprintf(format, args...)})
}

// lookup resolves a scoped identifier or fails.
func (g *generator) lookup(id string) grammar.Entity {
	e, ok := g.defs.Lookup(id)
	if !ok {
		g.fail("unresolved reference %q", id)
	}
	return e
}

func (g *generator) namespaceOf(module string) string {
	if ns, ok := g.opts.Namespaces[module]; ok {
		return ns
	}
	if g.file.Module != nil && g.file.Module.Name == module {
		return g.namespace
	}
	return grammar.NamespaceOf(module)
}

// qualify returns name as seen from the file's namespace: bare when the
// entity lives in the same namespace, global::-qualified otherwise.
func (g *generator) qualify(module, name string) string {
	ns := g.namespaceOf(module)
	if ns == g.namespace {
		return name
	}
	if ns == "" {
		return "global::" + name
	}
	return "global::" + ns + "." + name
}

// entityType is the C# type generated for a named entity.
func (g *generator) entityType(e grammar.Entity) string {
	name := e.EntityName()
	if e.Kind() == grammar.KindInterface {
		name += "Proxy"
	}
	return g.qualify(e.Scope(), name)
}

// csType maps a field or parameter type to C#.
func (g *generator) csType(t grammar.TypeRef) string {
	var s string
	switch t.Kind {
	case grammar.TypePrimitive:
		cs, ok := csPrimitives[t.Primitive]
		if !ok {
			g.fail("no C# mapping for primitive %q", t.Primitive)
		}
		s = cs
	case grammar.TypeSequence:
		s = fmt.Sprintf("%s<%s>", csList, g.csType(*t.Element))
	case grammar.TypeDictionary:
		s = fmt.Sprintf("%s<%s, %s>", csDictionary, g.csType(*t.Key), g.csType(*t.Element))
	case grammar.TypeNamed:
		s = g.entityType(g.lookup(t.Name))
	default:
		g.fail("unknown type kind %d", t.Kind)
	}
	if t.Optional {
		s += "?"
	}
	return s
}

// csDecodedType is the concrete type a decoder produces for t: arrays for
// sequences, Dictionary for dictionaries. Only the outermost dictionary is
// concrete; its type arguments are the declared types, since
// IDictionary<,> is invariant.
func (g *generator) csDecodedType(t grammar.TypeRef) string {
	var s string
	switch t.Kind {
	case grammar.TypeSequence:
		s = g.csDecodedType(*t.Element) + "[]"
	case grammar.TypeDictionary:
		s = fmt.Sprintf("%s<%s, %s>", csDictImpl, g.csType(*t.Key), g.csType(*t.Element))
	default:
		return g.csType(t)
	}
	if t.Optional {
		s += "?"
	}
	return s
}

// isValueType reports whether the C# type of t (ignoring optionality) is a
// value type.
func (g *generator) isValueType(t grammar.TypeRef) bool {
	switch t.Kind {
	case grammar.TypePrimitive:
		return t.Primitive != grammar.String && t.Primitive != grammar.AnyClass
	case grammar.TypeNamed:
		switch g.lookup(t.Name).Kind() {
		case grammar.KindStruct, grammar.KindEnum, grammar.KindInterface:
			return true
		}
	}
	return false
}
