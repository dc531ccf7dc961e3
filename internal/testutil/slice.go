package testutil

import (
	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
)

// Fixture files shared by the generator, codec and harness tests. Each call
// returns fresh values so tests may mutate them.

// PointFile declares a compact struct with two int32 fields.
//
//	module Geometry
//	compact struct Point { x: int32, y: int32 }
func PointFile() *grammar.File {
	return &grammar.File{
		Filename: "point",
		Module:   &grammar.Module{Name: "Geometry"},
		Entities: []grammar.Entity{
			&grammar.Struct{
				Definition: grammar.Definition{Name: "Point", Module: "Geometry", Doc: "A point on a plane."},
				Compact:    true,
				Fields: []grammar.Member{
					{Name: "x", Type: grammar.PrimitiveOf(grammar.Int32)},
					{Name: "y", Type: grammar.PrimitiveOf(grammar.Int32)},
				},
			},
		},
	}
}

// SettingsFile declares a non-compact struct with optional, tagged,
// sequence and dictionary members.
func SettingsFile() *grammar.File {
	return &grammar.File{
		Filename: "settings",
		Module:   &grammar.Module{Name: "Config"},
		Entities: []grammar.Entity{
			&grammar.Struct{
				Definition: grammar.Definition{Name: "Settings", Module: "Config"},
				Fields: []grammar.Member{
					{Name: "name", Type: grammar.PrimitiveOf(grammar.String)},
					{Name: "retries", Type: grammar.PrimitiveOf(grammar.Int32).AsOptional()},
					{Name: "labels", Type: grammar.SequenceOf(grammar.PrimitiveOf(grammar.String))},
					{Name: "limits", Type: grammar.DictionaryOf(
						grammar.PrimitiveOf(grammar.String),
						grammar.PrimitiveOf(grammar.VarInt62).AsOptional())},
					{Name: "timeout", Type: grammar.PrimitiveOf(grammar.VarUInt62).AsOptional(), Tag: grammar.Tag(2)},
					{Name: "verbose", Type: grammar.PrimitiveOf(grammar.Bool).AsOptional(), Tag: grammar.Tag(1)},
				},
			},
		},
	}
}

// AnimalsFile declares the class hierarchy Animal <- Dog and an exception.
func AnimalsFile() *grammar.File {
	return &grammar.File{
		Filename: "animals",
		Module:   &grammar.Module{Name: "Zoo"},
		Entities: []grammar.Entity{
			&grammar.Class{
				Definition: grammar.Definition{Name: "Animal", Module: "Zoo"},
				Fields: []grammar.Member{
					{Name: "name", Type: grammar.PrimitiveOf(grammar.String)},
				},
			},
			&grammar.Class{
				Definition: grammar.Definition{Name: "Dog", Module: "Zoo"},
				Base:       "Zoo::Animal",
				Fields: []grammar.Member{
					{Name: "breed", Type: grammar.PrimitiveOf(grammar.String)},
					{Name: "goodBoy", Type: grammar.PrimitiveOf(grammar.Bool).AsOptional(), Tag: grammar.Tag(1)},
				},
			},
			&grammar.Exception{
				Definition: grammar.Definition{Name: "ZooClosed", Module: "Zoo"},
				Fields: []grammar.Member{
					{Name: "reason", Type: grammar.PrimitiveOf(grammar.String)},
				},
			},
		},
	}
}

// ColorFile declares a checked enum over uint8 and an unchecked enum.
func ColorFile() *grammar.File {
	u8 := grammar.UInt8
	return &grammar.File{
		Filename: "color",
		Module:   &grammar.Module{Name: "Paint"},
		Entities: []grammar.Entity{
			&grammar.Enum{
				Definition: grammar.Definition{Name: "Color", Module: "Paint"},
				Underlying: &u8,
				Enumerators: []grammar.Enumerator{
					{Name: "Red", Value: 0},
					{Name: "Green", Value: 1},
					{Name: "Blue", Value: 2},
				},
			},
			&grammar.Enum{
				Definition: grammar.Definition{Name: "Shade", Module: "Paint"},
				Unchecked:  true,
				Enumerators: []grammar.Enumerator{
					{Name: "Light", Value: 1},
					{Name: "Dark", Value: 10},
				},
			},
		},
	}
}

// GreeterFile declares an exception and the interfaces Greeter and
// LoudGreeter, which inherits from it.
func GreeterFile() *grammar.File {
	str := grammar.PrimitiveOf(grammar.String)
	return &grammar.File{
		Filename: "greeter",
		Module:   &grammar.Module{Name: "Hello"},
		Entities: []grammar.Entity{
			&grammar.Exception{
				Definition: grammar.Definition{Name: "GreetingError", Module: "Hello"},
				Fields: []grammar.Member{
					{Name: "reason", Type: str},
				},
			},
			&grammar.Interface{
				Definition: grammar.Definition{Name: "Greeter", Module: "Hello", Doc: "Greets people."},
				Operations: []*grammar.Operation{
					{
						Name:       "greet",
						Interface:  "Hello::Greeter",
						Parameters: []grammar.Parameter{{Member: grammar.Member{Name: "name", Type: str}}},
						Return:     &str,
						Raises:     []string{"Hello::GreetingError"},
					},
					{
						Name:       "ping",
						Interface:  "Hello::Greeter",
						Idempotent: true,
					},
				},
			},
			&grammar.Interface{
				Definition: grammar.Definition{Name: "LoudGreeter", Module: "Hello"},
				Bases:      []string{"Hello::Greeter"},
				Operations: []*grammar.Operation{
					{
						Name:      "shout",
						Interface: "Hello::LoudGreeter",
						Parameters: []grammar.Parameter{
							{Member: grammar.Member{Name: "message", Type: str}},
							{Member: grammar.Member{Name: "times", Type: grammar.PrimitiveOf(grammar.Int32).AsOptional()}},
							{Member: grammar.Member{Name: "echo", Type: str}, Direction: grammar.Out},
						},
						Return: &grammar.TypeRef{Kind: grammar.TypePrimitive, Primitive: grammar.Int32},
					},
				},
			},
		},
	}
}

// AllFiles returns every fixture file.
func AllFiles() []*grammar.File {
	return []*grammar.File{PointFile(), SettingsFile(), AnimalsFile(), ColorFile(), GreeterFile()}
}

// Definitions returns an arena over AllFiles.
func Definitions() *grammar.Definitions {
	return grammar.MustDefinitions(AllFiles()...)
}
