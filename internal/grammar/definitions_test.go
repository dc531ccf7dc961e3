package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zooFile() *File {
	str := PrimitiveOf(String)
	return &File{
		Filename: "zoo",
		Module:   &Module{Name: "Zoo"},
		Entities: []Entity{
			&Class{Definition: Definition{Name: "Animal", Module: "Zoo"}, Fields: []Member{{Name: "name", Type: str}}},
			&Class{Definition: Definition{Name: "Dog", Module: "Zoo"}, Base: "Zoo::Animal", Fields: []Member{{Name: "breed", Type: str}}},
			&Class{Definition: Definition{Name: "Puppy", Module: "Zoo"}, Base: "Zoo::Dog"},
			&Class{Definition: Definition{Name: "Cat", Module: "Zoo"}, Base: "Zoo::Animal"},
			&Struct{Definition: Definition{Name: "Cage", Module: "Zoo::Inner"}},
		},
	}
}

func TestNewDefinitionsRejectsDuplicates(t *testing.T) {
	a := &File{Filename: "a", Entities: []Entity{&Struct{Definition: Definition{Name: "S", Module: "M"}}}}
	b := &File{Filename: "b", Entities: []Entity{&Enum{Definition: Definition{Name: "S", Module: "M"}}}}

	_, err := NewDefinitions(a, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `b.slice: duplicate definition "M::S"`)
}

func TestLookup(t *testing.T) {
	defs := MustDefinitions(zooFile())

	e, ok := defs.Lookup("Zoo::Dog")
	require.True(t, ok)
	assert.Equal(t, "Dog", e.EntityName())

	_, ok = defs.Lookup("::Zoo::Dog")
	assert.True(t, ok)

	_, ok = defs.LookupTypeID("Zoo::Dog")
	assert.False(t, ok, "type IDs are absolute")

	assert.Equal(t, []string{"Zoo::Animal", "Zoo::Dog", "Zoo::Puppy", "Zoo::Cat", "Zoo::Inner::Cage"}, defs.IDs())
}

func TestResolve(t *testing.T) {
	defs := MustDefinitions(zooFile())

	tests := []struct {
		module string
		name   string
		want   string
		ok     bool
	}{
		{"Zoo", "Dog", "Zoo::Dog", true},
		{"Zoo::Inner", "Dog", "Zoo::Dog", true},
		{"Zoo::Inner", "Cage", "Zoo::Inner::Cage", true},
		{"Zoo", "Inner::Cage", "Zoo::Inner::Cage", true},
		{"Other", "Dog", "", false},
		{"Other", "::Zoo::Dog", "Zoo::Dog", true},
		{"", "Zoo::Cat", "Zoo::Cat", true},
	}
	for _, tt := range tests {
		t.Run(tt.module+"/"+tt.name, func(t *testing.T) {
			got, ok := defs.Resolve(tt.module, tt.name)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestBaseChainAndAllFields(t *testing.T) {
	defs := MustDefinitions(zooFile())
	puppy, _ := defs.Lookup("Zoo::Puppy")

	chain, err := defs.BaseChain(puppy)
	require.NoError(t, err)
	ids := make([]string, len(chain))
	for i, e := range chain {
		ids[i] = TypeID(e)
	}
	assert.Equal(t, []string{"::Zoo::Animal", "::Zoo::Dog", "::Zoo::Puppy"}, ids)

	fields, err := defs.AllFields(puppy)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "name", fields[0].Name)
	assert.Equal(t, "breed", fields[1].Name)
}

func TestBaseChainFailures(t *testing.T) {
	file := &File{Filename: "bad", Entities: []Entity{
		&Class{Definition: Definition{Name: "A", Module: "M"}, Base: "M::B"},
		&Class{Definition: Definition{Name: "B", Module: "M"}, Base: "M::A"},
		&Class{Definition: Definition{Name: "Orphan", Module: "M"}, Base: "M::Missing"},
		&Exception{Definition: Definition{Name: "E", Module: "M"}, Base: "M::A"},
	}}
	defs := MustDefinitions(file)

	a, _ := defs.Lookup("M::A")
	_, err := defs.BaseChain(a)
	assert.ErrorContains(t, err, "inheritance cycle")

	orphan, _ := defs.Lookup("M::Orphan")
	_, err = defs.BaseChain(orphan)
	assert.ErrorContains(t, err, `base "M::Missing" is not defined`)

	e, _ := defs.Lookup("M::E")
	_, err = defs.BaseChain(e)
	assert.ErrorContains(t, err, "is a class, not a exception")
}

func TestDerivedOf(t *testing.T) {
	defs := MustDefinitions(zooFile())

	assert.Equal(t, []string{"Zoo::Cat", "Zoo::Dog", "Zoo::Puppy"}, defs.DerivedOf("::Zoo::Animal"))
	assert.Equal(t, []string{"Zoo::Puppy"}, defs.DerivedOf("Zoo::Dog"))
	assert.Empty(t, defs.DerivedOf("Zoo::Cat"))
}

func TestWithout(t *testing.T) {
	defs := MustDefinitions(zooFile())
	partial := defs.Without("::Zoo::Dog")

	_, ok := partial.Lookup("Zoo::Dog")
	assert.False(t, ok)
	_, ok = defs.Lookup("Zoo::Dog")
	assert.True(t, ok, "the original arena is unchanged")
	assert.Len(t, partial.IDs(), 4)
}

func op(iface, name string) *Operation {
	return &Operation{Name: name, Interface: iface}
}

func TestAllOperationsDiamond(t *testing.T) {
	base := &Interface{Definition: Definition{Name: "Base", Module: "M"}, Operations: []*Operation{op("M::Base", "ping")}}
	left := &Interface{Definition: Definition{Name: "Left", Module: "M"}, Bases: []string{"M::Base"}, Operations: []*Operation{op("M::Left", "left")}}
	right := &Interface{Definition: Definition{Name: "Right", Module: "M"}, Bases: []string{"M::Base"}, Operations: []*Operation{op("M::Right", "right")}}
	bottom := &Interface{Definition: Definition{Name: "Bottom", Module: "M"}, Bases: []string{"M::Left", "M::Right"}, Operations: []*Operation{op("M::Bottom", "bottom")}}
	defs := MustDefinitions(&File{Filename: "m", Entities: []Entity{base, left, right, bottom}})

	ops, err := defs.AllOperations(bottom)
	require.NoError(t, err)
	names := make([]string, len(ops))
	for i, o := range ops {
		names[i] = o.Name
	}
	assert.Equal(t, []string{"ping", "left", "right", "bottom"}, names)
}

func TestAllOperationsConflict(t *testing.T) {
	a := &Interface{Definition: Definition{Name: "A", Module: "M"}, Operations: []*Operation{op("M::A", "run")}}
	b := &Interface{Definition: Definition{Name: "B", Module: "M"}, Operations: []*Operation{op("M::B", "run")}}
	c := &Interface{Definition: Definition{Name: "C", Module: "M"}, Bases: []string{"M::A", "M::B"}}
	defs := MustDefinitions(&File{Filename: "m", Entities: []Entity{a, b, c}})

	_, err := defs.AllOperations(c)
	assert.ErrorContains(t, err, `operation "run" is declared by both "M::A" and "M::B"`)
}

func TestAllOperationsCycle(t *testing.T) {
	a := &Interface{Definition: Definition{Name: "A", Module: "M"}, Bases: []string{"M::B"}}
	b := &Interface{Definition: Definition{Name: "B", Module: "M"}, Bases: []string{"M::A"}}
	defs := MustDefinitions(&File{Filename: "m", Entities: []Entity{a, b}})

	_, err := defs.AllOperations(a)
	assert.ErrorContains(t, err, "interface inheritance cycle")
}

func TestTypeRefString(t *testing.T) {
	dict := DictionaryOf(PrimitiveOf(String), SequenceOf(Named("Zoo::Dog")).AsOptional())
	assert.Equal(t, "dictionary<string, sequence<Zoo::Dog>?>", dict.String())
	assert.True(t, dict.Equal(DictionaryOf(PrimitiveOf(String), SequenceOf(Named("Zoo::Dog")).AsOptional())))
	assert.Equal(t, "int32", PrimitiveOf(Int32).AsOptional().AsRequired().String())
}

func TestPrimitiveRange(t *testing.T) {
	lo, hi := UInt8.Range()
	assert.Equal(t, int64(0), lo)
	assert.Equal(t, uint64(255), hi)
	lo, hi = VarInt62.Range()
	assert.Equal(t, int64(-1<<61), lo)
	assert.Equal(t, uint64(1<<61-1), hi)
	assert.False(t, String.IsIntegral())
	assert.Equal(t, 0, VarUInt32.FixedSize())
}

func TestModuleNamespace(t *testing.T) {
	assert.Equal(t, "Example.Hello", (&Module{Name: "Example::Hello"}).Namespace())
	assert.Equal(t, "Acme.Hello", (&Module{Name: "Example::Hello", CSNamespace: "Acme.Hello"}).Namespace())
}
