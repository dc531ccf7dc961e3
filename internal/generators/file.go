package generators

import (
	"fmt"

	"github.com/IvanVnn/icerpc-csharp/internal/codeblock"
	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
)

// UnitKind distinguishes the two source units generated per Slice file.
type UnitKind string

const (
	// UnitTypes holds structs, classes, exceptions and enums: <file>.cs.
	UnitTypes UnitKind = "types"
	// UnitInterfaces holds proxies and dispatchers: <file>.IceRpc.cs.
	UnitInterfaces UnitKind = "interfaces"
)

// Unit is one generated C# source file.
type Unit struct {
	Kind     UnitKind
	Filename string
	Content  string
}

// UnitFilename returns the name of the unit of the given kind for a Slice file.
func UnitFilename(file string, kind UnitKind) string {
	if kind == UnitInterfaces {
		return file + ".IceRpc.cs"
	}
	return file + ".cs"
}

// GenerateFile produces one complete C# source unit for file: preamble,
// using directives, the assembly attribute (types unit only), the file-scoped
// namespace and the generated entities, ending with exactly one newline.
//
// The output is a pure function of its inputs. A precondition violation
// aborts the whole file and is returned as a *GenerateError.
func GenerateFile(file *grammar.File, defs *grammar.Definitions, forInterfaces bool, opts Options) (code string, err error) {
	defer recoverGenerateError(&err)

	g := newGenerator(file, defs, opts)
	out := codeblock.New()
	out.AddBlock(preamble(file.Filename, opts.version()))

	if forInterfaces {
		out.AddBlock("using IceRpc.Slice;\nusing ZeroC.Slice;")
	} else {
		out.AddBlock("using ZeroC.Slice;")
		out.AddBlock(fmt.Sprintf("[assembly:Slice(%q)]", file.Filename+".slice"))
	}

	if file.Module != nil {
		out.AddBlock(fmt.Sprintf("namespace %s;", g.namespace))
		g.visit(forInterfaces, out)
	}
	return out.String() + "\n", nil
}

// GenerateUnits generates the types unit and, when the file declares at
// least one interface, the interfaces unit. No unit is returned on error.
func GenerateUnits(file *grammar.File, defs *grammar.Definitions, opts Options) ([]Unit, error) {
	types, err := GenerateFile(file, defs, false, opts)
	if err != nil {
		return nil, err
	}
	units := []Unit{{Kind: UnitTypes, Filename: UnitFilename(file.Filename, UnitTypes), Content: types}}

	if file.HasInterfaces() {
		ifaces, err := GenerateFile(file, defs, true, opts)
		if err != nil {
			return nil, err
		}
		units = append(units, Unit{Kind: UnitInterfaces, Filename: UnitFilename(file.Filename, UnitInterfaces), Content: ifaces})
	}
	return units, nil
}

func preamble(file, version string) string {
	return fmt.Sprintf(`// <auto-generated/>
// slicec-cs version: '%s'
// Generated from file: '%s.slice'

#nullable enable

#pragma warning disable CS1591 // Missing XML Comment
#pragma warning disable CS1573 // Parameter has no matching param tag in the XML comment
#pragma warning disable CS0612 // Type or member is obsolete
#pragma warning disable CS0618 // Type or member is obsolete
#pragma warning disable CS0619 // Type or member is obsolete`, version, file)
}
