package grammar

import "strings"

// Kind identifies the variant of an Entity.
type Kind int

const (
	KindStruct Kind = iota
	KindClass
	KindException
	KindEnum
	KindInterface
)

func (k Kind) String() string {
	switch k {
	case KindStruct:
		return "struct"
	case KindClass:
		return "class"
	case KindException:
		return "exception"
	case KindEnum:
		return "enum"
	case KindInterface:
		return "interface"
	default:
		return "unknown"
	}
}

// Entity is a sealed interface over the top-level Slice declarations.
// Only *Struct, *Class, *Exception, *Enum and *Interface implement it.
type Entity interface {
	Kind() Kind
	// EntityName returns the unqualified name as written in the Slice file.
	EntityName() string
	// Scope returns the module the entity is declared in ("A::B").
	Scope() string
	// Documentation returns the doc comment, or "".
	Documentation() string

	entity() // Sealed
}

// Definition carries the attributes shared by every entity.
type Definition struct {
	Name   string `json:"name"`
	Module string `json:"module"`
	Doc    string `json:"doc,omitempty"`
}

func (d Definition) EntityName() string { return d.Name }
func (d Definition) Scope() string      { return d.Module }

func (d Definition) Documentation() string { return d.Doc }

// ScopedIdentifier returns the entity's identifier relative to the global scope,
// e.g. "Example::Hello::Point".
func ScopedIdentifier(e Entity) string {
	if e.Scope() == "" {
		return e.EntityName()
	}
	return e.Scope() + "::" + e.EntityName()
}

// TypeID returns the Slice type ID of an entity, e.g. "::Example::Hello::Point".
func TypeID(e Entity) string {
	return "::" + ScopedIdentifier(e)
}

// Struct is a named aggregate of ordered fields.
type Struct struct {
	Definition
	Fields []Member `json:"fields"`
	// Compact structs are encoded without a trailing tag-end marker and
	// cannot carry tagged fields.
	Compact bool `json:"compact,omitempty"`
}

func (*Struct) Kind() Kind { return KindStruct }
func (*Struct) entity()    {}

// Class is a struct-like aggregate with single inheritance and sliced encoding.
type Class struct {
	Definition
	// Base is the scoped identifier of the base class, empty for a root class.
	Base   string   `json:"base,omitempty"`
	Fields []Member `json:"fields"`
	// CompactID is an optional numeric type ID.
	CompactID *uint32 `json:"compact_id,omitempty"`
}

func (*Class) Kind() Kind { return KindClass }
func (*Class) entity()    {}

// Exception is laid out like a Class but maps to the host error type.
type Exception struct {
	Definition
	Base   string   `json:"base,omitempty"`
	Fields []Member `json:"fields"`
}

func (*Exception) Kind() Kind { return KindException }
func (*Exception) entity()    {}

// Enum is a named ordered set of enumerators.
type Enum struct {
	Definition
	// Underlying is nil for enums encoded as varint32.
	Underlying  *Primitive   `json:"underlying,omitempty"`
	Enumerators []Enumerator `json:"enumerators"`
	// Unchecked enums accept any value of the underlying type.
	Unchecked bool `json:"unchecked,omitempty"`
}

func (*Enum) Kind() Kind { return KindEnum }
func (*Enum) entity()    {}

// Enumerator is one named value of an Enum.
type Enumerator struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
	Doc   string `json:"doc,omitempty"`
}

// Interface is a named set of operations with multiple inheritance.
type Interface struct {
	Definition
	// Bases are scoped identifiers of the base interfaces, in declaration order.
	Bases      []string     `json:"bases,omitempty"`
	Operations []*Operation `json:"operations"`
}

func (*Interface) Kind() Kind { return KindInterface }
func (*Interface) entity()    {}

// Direction is the flow of an operation parameter.
type Direction int

const (
	In Direction = iota
	Out
)

// Operation is a remote call declared on exactly one Interface.
type Operation struct {
	Name       string      `json:"name"`
	Parameters []Parameter `json:"parameters"`
	// Return is nil for operations without a return value.
	Return     *TypeRef `json:"return,omitempty"`
	Raises     []string `json:"raises,omitempty"` // scoped exception identifiers
	Idempotent bool     `json:"idempotent,omitempty"`
	Doc        string   `json:"doc,omitempty"`
	// Interface is the scoped identifier of the declaring interface.
	Interface string `json:"interface"`
}

// Inputs returns the operation's input parameters in declaration order.
func (o *Operation) Inputs() []Member {
	return o.members(In)
}

// Outputs returns the operation's result members: the return value first
// (named "returnValue"), then the output parameters in declaration order.
func (o *Operation) Outputs() []Member {
	var out []Member
	if o.Return != nil {
		out = append(out, Member{Name: "returnValue", Type: *o.Return})
	}
	return append(out, o.members(Out)...)
}

// IsVoid reports whether the operation completes with an acknowledgement only.
func (o *Operation) IsVoid() bool {
	return o.Return == nil && len(o.members(Out)) == 0
}

func (o *Operation) members(dir Direction) []Member {
	var members []Member
	for _, p := range o.Parameters {
		if p.Direction == dir {
			members = append(members, p.Member)
		}
	}
	return members
}

// Parameter is an operation parameter with a direction.
type Parameter struct {
	Member
	Direction Direction `json:"direction"`
}

// Member is a field of a struct/class/exception or an operation parameter.
type Member struct {
	Name string  `json:"name"`
	Type TypeRef `json:"type"`
	// Tag is non-nil for tagged members.
	Tag *int32 `json:"tag,omitempty"`
	Doc string `json:"doc,omitempty"`
}

// IsTagged reports whether the member is encoded as a tagged member.
func (m Member) IsTagged() bool { return m.Tag != nil }

// Tag returns a pointer to tag, for building tagged members.
func Tag(tag int32) *int32 { return &tag }

// Module is a named scope that maps to a C# namespace.
type Module struct {
	Name string `json:"name"` // "Example::Hello"
	// CSNamespace overrides the namespace derived from Name.
	CSNamespace string `json:"cs_namespace,omitempty"`
}

// Namespace returns the C# namespace for the module.
func (m *Module) Namespace() string {
	if m.CSNamespace != "" {
		return m.CSNamespace
	}
	return NamespaceOf(m.Name)
}

// NamespaceOf converts a Slice module path to a C# namespace.
func NamespaceOf(module string) string {
	return strings.ReplaceAll(module, "::", ".")
}

// File is one parsed Slice file.
type File struct {
	// Filename is the base name without the ".slice" extension.
	Filename string `json:"filename"`
	// Module is nil for files that declare nothing.
	Module   *Module  `json:"module,omitempty"`
	Entities []Entity `json:"-"`
}

// HasInterfaces reports whether the file declares at least one interface.
func (f *File) HasInterfaces() bool {
	for _, e := range f.Entities {
		if e.Kind() == KindInterface {
			return true
		}
	}
	return false
}
